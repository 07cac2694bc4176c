package remediation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Route53 caps a change batch at 1000 changes.
const changeBatchLimit = 1000

// Route53Client is the slice of the Route53 API the cleanup needs.
type Route53Client interface {
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// DnsCleanup deletes leftover certificate validation records from a hosted
// zone when its stack is deleted. ACM creates those records outside of
// CloudFormation, so without this the zone can never be removed.
type DnsCleanup struct {
	Client Route53Client
}

// Handle processes a custom resource event. It never returns an error: a
// failed cleanup must not block the surrounding stack deletion, so failures
// are logged and reported as success.
func (c *DnsCleanup) Handle(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	physicalResourceID := event.PhysicalResourceID
	if physicalResourceID == "" {
		physicalResourceID = "dns-validation-cleanup"
	}

	result := c.process(ctx, event)
	zap.S().Infow("dns cleanup done",
		"requestType", event.RequestType,
		"outcome", result.Outcome.String(),
		"detail", result.Detail,
	)
	return physicalResourceID, nil, nil
}

func (c *DnsCleanup) process(ctx context.Context, event cfn.Event) Result {
	if event.RequestType != cfn.RequestDelete {
		return Result{Outcome: NotApplicable, Detail: "only delete events are handled"}
	}
	zoneID, _ := event.ResourceProperties["HostedZoneId"].(string)
	if zoneID == "" {
		return Result{Outcome: FailedAcknowledged, Detail: "event has no HostedZoneId property"}
	}

	deleted, err := c.Cleanup(ctx, zoneID)
	if err != nil {
		var notFound *types.NoSuchHostedZone
		if errors.As(err, &notFound) {
			return Result{Outcome: NotApplicable, Detail: "hosted zone is already gone"}
		}
		return Result{Outcome: FailedAcknowledged, Detail: err.Error()}
	}
	return Result{Outcome: Succeeded, Detail: fmt.Sprintf("deleted %d validation records", deleted)}
}

// Cleanup removes every validation record from the zone and returns how many
// records were deleted.
func (c *DnsCleanup) Cleanup(ctx context.Context, zoneID string) (int, error) {
	records, err := c.listValidationRecords(ctx, zoneID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	for start := 0; start < len(records); start += changeBatchLimit {
		end := start + changeBatchLimit
		if end > len(records) {
			end = len(records)
		}
		changes := make([]types.Change, 0, end-start)
		for _, record := range records[start:end] {
			record := record
			changes = append(changes, types.Change{
				Action:            types.ChangeActionDelete,
				ResourceRecordSet: &record,
			})
		}
		_, err := c.Client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(zoneID),
			ChangeBatch:  &types.ChangeBatch{Changes: changes},
		})
		if err != nil {
			return 0, errors.Wrapf(err, "deleting validation records from zone %s", zoneID)
		}
	}
	return len(records), nil
}

func (c *DnsCleanup) listValidationRecords(ctx context.Context, zoneID string) ([]types.ResourceRecordSet, error) {
	var records []types.ResourceRecordSet
	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}
	for {
		out, err := c.Client.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, errors.Wrapf(err, "listing records of zone %s", zoneID)
		}
		for _, record := range out.ResourceRecordSets {
			if IsValidationRecord(record) {
				records = append(records, record)
			}
		}
		if !out.IsTruncated {
			return records, nil
		}
		input.StartRecordName = out.NextRecordName
		input.StartRecordType = out.NextRecordType
		input.StartRecordIdentifier = out.NextRecordIdentifier
	}
}

// IsValidationRecord reports whether a record looks like a certificate
// validation artifact: an ACM validation CNAME, an ACME challenge, or an
// underscore-prefixed record with the long random label ACM generates.
// NS and SOA records are never touched.
func IsValidationRecord(record types.ResourceRecordSet) bool {
	switch record.Type {
	case types.RRTypeNs, types.RRTypeSoa:
		return false
	}
	for _, rr := range record.ResourceRecords {
		if strings.Contains(aws.ToString(rr.Value), ".acm-validations.aws") {
			return true
		}
	}
	name := aws.ToString(record.Name)
	if strings.Contains(name, "_acme-challenge") {
		return true
	}
	if strings.HasPrefix(name, "_") {
		if label, _, _ := strings.Cut(name, "."); len(label) > 30 {
			return true
		}
	}
	return false
}
