// Package imageref resolves container image URIs published to SSM Parameter
// Store by the release pipeline. The SSM client is injected so synthesis
// never constructs ambient SDK clients.
package imageref

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/naming"
)

// Client is the slice of the SSM API the resolver needs.
type Client interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Resolver struct {
	client Client
}

func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// FromConfig builds a resolver on the default AWS configuration chain. The
// parameters live in the principal account, so this is the session the CDK
// app already runs under.
func FromConfig(ctx context.Context) (*Resolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewResolver(ssm.NewFromConfig(cfg)), nil
}

// ParameterName returns the pipeline's parameter path for a service in one
// (tenant, environment) pair, e.g. "/Osd/OsdApi/Fr/Stg/EcrImageUri".
func ParameterName(service string, nctx naming.Context) string {
	return fmt.Sprintf("/Osd/%s/%s/%s/EcrImageUri",
		service, capitalize(nctx.TenantName), capitalize(nctx.EnvName))
}

// EcrImageURI looks up the image URI for a service. A missing parameter is
// not an error: the caller falls back to its configured image, so lookups
// that fail just log and return the empty string.
func (r *Resolver) EcrImageURI(ctx context.Context, service string, nctx naming.Context) string {
	name := ParameterName(service, nctx)
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{Name: &name})
	if err != nil {
		zap.S().Infof("no pipeline image for %s: %v", name, err)
		return ""
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return ""
	}
	zap.S().Infof("%s value: %s", name, *out.Parameter.Value)
	return *out.Parameter.Value
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
