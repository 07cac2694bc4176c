// The docdb-password command is the Lambda handler behind the managed master
// password custom resource. It builds into the bootstrap binary shipped in
// the stack's Lambda asset.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/docdb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
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

	handler := &remediation.PasswordManager{
		Client:  docdb.NewFromConfig(cfg),
		Secrets: secretsmanager.NewFromConfig(cfg),
	}
	lambda.Start(cfn.LambdaWrap(handler.Handle))
}
