package remediation

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/docdb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultConversionWait = 60 * time.Second

// DocDBClient is the slice of the cluster API the password manager needs.
// DocumentDB and Aurora share the RDS control plane, so the same calls
// convert either cluster kind.
type DocDBClient interface {
	ModifyDBCluster(ctx context.Context, params *docdb.ModifyDBClusterInput, optFns ...func(*docdb.Options)) (*docdb.ModifyDBClusterOutput, error)
	DescribeDBClusters(ctx context.Context, params *docdb.DescribeDBClustersInput, optFns ...func(*docdb.Options)) (*docdb.DescribeDBClustersOutput, error)
}

type SecretsClient interface {
	CancelRotateSecret(ctx context.Context, params *secretsmanager.CancelRotateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CancelRotateSecretOutput, error)
}

// PasswordManager switches a database cluster to a Secrets Manager managed
// master password and reports the resulting secret ARN back to the stack.
type PasswordManager struct {
	Client  DocDBClient
	Secrets SecretsClient
	// Wait is how long to wait for the conversion to settle before
	// reading the secret ARN back. Defaults to one minute.
	Wait time.Duration
}

// Handle processes a custom resource event. Unlike the DNS cleanup this one
// is load bearing: a failed conversion fails the stack operation.
func (m *PasswordManager) Handle(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	clusterID, _ := event.ResourceProperties["ClusterId"].(string)
	physicalResourceID := event.PhysicalResourceID
	if physicalResourceID == "" {
		physicalResourceID = "managed-password-" + clusterID
	}

	if event.RequestType != cfn.RequestCreate {
		// The password stays managed for the lifetime of the cluster;
		// updates and deletes have nothing to undo.
		zap.S().Infow("nothing to do", "requestType", event.RequestType, "cluster", clusterID)
		return physicalResourceID, nil, nil
	}

	if clusterID == "" {
		return physicalResourceID, nil, errors.New("event has no ClusterId property")
	}
	kmsKeyID, _ := event.ResourceProperties["KmsKeyId"].(string)

	secretArn, err := m.convert(ctx, clusterID, kmsKeyID)
	if err != nil {
		return physicalResourceID, nil, err
	}
	return physicalResourceID, map[string]interface{}{"SecretArn": secretArn}, nil
}

func (m *PasswordManager) convert(ctx context.Context, clusterID, kmsKeyID string) (string, error) {
	input := &docdb.ModifyDBClusterInput{
		DBClusterIdentifier:      aws.String(clusterID),
		ManageMasterUserPassword: aws.Bool(true),
		ApplyImmediately:         aws.Bool(true),
	}
	if kmsKeyID != "" {
		input.MasterUserSecretKmsKeyId = aws.String(kmsKeyID)
	}
	if _, err := m.Client.ModifyDBCluster(ctx, input); err != nil {
		return "", errors.Wrapf(err, "enabling managed master password on cluster %s", clusterID)
	}

	if err := m.wait(ctx); err != nil {
		return "", err
	}

	secretArn, err := m.secretArn(ctx, clusterID)
	if err != nil {
		return "", err
	}

	// The managed secret comes with rotation scheduled; the platform
	// rotates on its own terms, so cancel the pending rotation. Rotation
	// may not have been set up yet, in which case there is nothing to
	// cancel.
	if _, err := m.Secrets.CancelRotateSecret(ctx, &secretsmanager.CancelRotateSecretInput{
		SecretId: aws.String(secretArn),
	}); err != nil {
		zap.S().Infow("could not cancel secret rotation", "secret", secretArn, "error", err)
	}

	return secretArn, nil
}

func (m *PasswordManager) wait(ctx context.Context) error {
	wait := m.Wait
	if wait <= 0 {
		wait = defaultConversionWait
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for password conversion")
	}
}

func (m *PasswordManager) secretArn(ctx context.Context, clusterID string) (string, error) {
	out, err := m.Client.DescribeDBClusters(ctx, &docdb.DescribeDBClustersInput{
		DBClusterIdentifier: aws.String(clusterID),
	})
	if err != nil {
		return "", errors.Wrapf(err, "describing cluster %s", clusterID)
	}
	if len(out.DBClusters) == 0 {
		return "", errors.Errorf("cluster %s not found", clusterID)
	}
	secret := out.DBClusters[0].MasterUserSecret
	if secret == nil || secret.SecretArn == nil {
		return "", errors.Errorf("cluster %s has no managed master user secret", clusterID)
	}
	return *secret.SecretArn, nil
}
