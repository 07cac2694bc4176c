// The dns-cleanup command is the Lambda handler behind the hosted zone
// cleanup custom resource. It builds into the bootstrap binary shipped in
// the stack's Lambda asset.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"go.uber.org/zap"

	"github.com/osdcloud/osd-infra/pkg/logging"
	"github.com/osdcloud/osd-infra/pkg/remediation"
)

func main() {
	zap.ReplaceGlobals(logging.LogOpts{Encoding: "json"}.NewLogger())

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		zap.S().Fatalf("loading aws configuration: %v", err)
	}

	handler := &remediation.DnsCleanup{Client: route53.NewFromConfig(cfg)}
	lambda.Start(cfn.LambdaWrap(handler.Handle))
}
