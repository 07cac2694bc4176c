package remediation

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeRoute53 struct {
	pages   [][]types.ResourceRecordSet
	listErr error

	changeErr error
	deleted   []types.ResourceRecordSet
	batches   int
}

func (f *fakeRoute53) ListResourceRecordSets(_ context.Context, params *route53.ListResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := 0
	if params.StartRecordName != nil {
		page = 1
	}
	out := &route53.ListResourceRecordSetsOutput{ResourceRecordSets: f.pages[page]}
	if page < len(f.pages)-1 {
		out.IsTruncated = true
		out.NextRecordName = aws.String("next")
	}
	return out, nil
}

func (f *fakeRoute53) ChangeResourceRecordSets(_ context.Context, params *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	f.batches++
	for _, change := range params.ChangeBatch.Changes {
		f.deleted = append(f.deleted, *change.ResourceRecordSet)
	}
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

func record(name string, rrType types.RRType, values ...string) types.ResourceRecordSet {
	rs := types.ResourceRecordSet{Name: aws.String(name), Type: rrType}
	for _, v := range values {
		rs.ResourceRecords = append(rs.ResourceRecords, types.ResourceRecord{Value: aws.String(v)})
	}
	return rs
}

func TestIsValidationRecord(t *testing.T) {
	tests := []struct {
		name   string
		record types.ResourceRecordSet
		want   bool
	}{
		{
			name:   "acm validation cname",
			record: record("_x1.app.example.com.", types.RRTypeCname, "_y2.acm-validations.aws."),
			want:   true,
		},
		{
			name:   "acme challenge",
			record: record("_acme-challenge.app.example.com.", types.RRTypeTxt, "token"),
			want:   true,
		},
		{
			name: "long underscore label",
			record: record("_3f2a9c81b4d67e05f18a2c3b9d40e6a7.app.example.com.",
				types.RRTypeCname, "somewhere.example.net."),
			want: true,
		},
		{
			name:   "short underscore label",
			record: record("_dmarc.app.example.com.", types.RRTypeTxt, "v=DMARC1"),
			want:   false,
		},
		{
			name:   "regular cname",
			record: record("api.app.example.com.", types.RRTypeCname, "alb.eu-west-1.elb.amazonaws.com."),
			want:   false,
		},
		{
			name:   "ns is never touched",
			record: record("_acme-challenge.app.example.com.", types.RRTypeNs, "ns1.example.com."),
			want:   false,
		},
		{
			name:   "soa is never touched",
			record: record("app.example.com.", types.RRTypeSoa, "ns1.example.com. hostmaster.example.com. 1"),
			want:   false,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidationRecord(tt.record))
		})
	}
}

func TestCleanupDeletesOnlyValidationRecords(t *testing.T) {
	assert := assert.New(t)

	client := &fakeRoute53{pages: [][]types.ResourceRecordSet{
		{
			record("app.example.com.", types.RRTypeSoa, "ns1. host. 1"),
			record("_a1b2.app.example.com.", types.RRTypeCname, "_c3d4.acm-validations.aws."),
		},
		{
			record("api.app.example.com.", types.RRTypeCname, "alb.amazonaws.com."),
			record("_acme-challenge.sso.app.example.com.", types.RRTypeTxt, "token"),
		},
	}}
	cleanup := &DnsCleanup{Client: client}

	deleted, err := cleanup.Cleanup(context.Background(), "Z123")
	assert.NoError(err)
	assert.Equal(2, deleted)
	assert.Len(client.deleted, 2)
	assert.Equal("_a1b2.app.example.com.", *client.deleted[0].Name)
	assert.Equal("_acme-challenge.sso.app.example.com.", *client.deleted[1].Name)
	assert.Equal(1, client.batches)
}

func TestHandleIgnoresNonDeleteEvents(t *testing.T) {
	assert := assert.New(t)

	cleanup := &DnsCleanup{Client: &fakeRoute53{listErr: errors.New("must not be called")}}
	_, _, err := cleanup.Handle(context.Background(), cfn.Event{
		RequestType:        cfn.RequestCreate,
		ResourceProperties: map[string]interface{}{"HostedZoneId": "Z123"},
	})
	assert.NoError(err)
}

func TestHandleAcknowledgesFailures(t *testing.T) {
	assert := assert.New(t)

	cleanup := &DnsCleanup{Client: &fakeRoute53{listErr: errors.New("throttled")}}
	id, _, err := cleanup.Handle(context.Background(), cfn.Event{
		RequestType:        cfn.RequestDelete,
		PhysicalResourceID: "cleanup-1",
		ResourceProperties: map[string]interface{}{"HostedZoneId": "Z123"},
	})
	assert.NoError(err)
	assert.Equal("cleanup-1", id)
}

func TestProcessToleratesMissingZone(t *testing.T) {
	assert := assert.New(t)

	cleanup := &DnsCleanup{Client: &fakeRoute53{listErr: &types.NoSuchHostedZone{}}}
	result := cleanup.process(context.Background(), cfn.Event{
		RequestType:        cfn.RequestDelete,
		ResourceProperties: map[string]interface{}{"HostedZoneId": "Z404"},
	})
	assert.Equal(NotApplicable, result.Outcome)
}
