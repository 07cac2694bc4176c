package imageref

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/osdcloud/osd-infra/pkg/naming"
)

type fakeClient struct {
	parameters map[string]string
	requested  []string
}

func (f *fakeClient) GetParameter(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.requested = append(f.requested, *params.Name)
	value, ok := f.parameters[*params.Name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{
		Parameter: &types.Parameter{Value: aws.String(value)},
	}, nil
}

func TestParameterName(t *testing.T) {
	assert := assert.New(t)
	ctx := naming.Context{TenantName: "fr", EnvName: "stg"}
	assert.Equal("/Osd/OsdApi/Fr/Stg/EcrImageUri", ParameterName("OsdApi", ctx))
}

func TestEcrImageURI(t *testing.T) {
	assert := assert.New(t)
	client := &fakeClient{parameters: map[string]string{
		"/Osd/OsdApi/Fr/Stg/EcrImageUri": "111111111111.dkr.ecr.eu-west-1.amazonaws.com/osd/osd-api-fr:abc",
	}}
	resolver := NewResolver(client)
	nctx := naming.Context{TenantName: "fr", EnvName: "stg"}

	uri := resolver.EcrImageURI(context.Background(), "OsdApi", nctx)
	assert.Equal("111111111111.dkr.ecr.eu-west-1.amazonaws.com/osd/osd-api-fr:abc", uri)
	assert.Equal([]string{"/Osd/OsdApi/Fr/Stg/EcrImageUri"}, client.requested)
}

func TestEcrImageURI_MissingParameterFallsBackToEmpty(t *testing.T) {
	assert := assert.New(t)
	resolver := NewResolver(&fakeClient{})
	nctx := naming.Context{TenantName: "de", EnvName: "prd"}

	assert.Empty(resolver.EcrImageURI(context.Background(), "OsdApi", nctx))
}
