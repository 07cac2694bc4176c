package remediation

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/docdb"
	docdbtypes "github.com/aws/aws-sdk-go-v2/service/docdb/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeDocDB struct {
	modifyErr   error
	modifyInput *docdb.ModifyDBClusterInput
	secretArn   string
}

func (f *fakeDocDB) ModifyDBCluster(_ context.Context, params *docdb.ModifyDBClusterInput, _ ...func(*docdb.Options)) (*docdb.ModifyDBClusterOutput, error) {
	if f.modifyErr != nil {
		return nil, f.modifyErr
	}
	f.modifyInput = params
	return &docdb.ModifyDBClusterOutput{}, nil
}

func (f *fakeDocDB) DescribeDBClusters(_ context.Context, _ *docdb.DescribeDBClustersInput, _ ...func(*docdb.Options)) (*docdb.DescribeDBClustersOutput, error) {
	return &docdb.DescribeDBClustersOutput{
		DBClusters: []docdbtypes.DBCluster{
			{MasterUserSecret: &docdbtypes.ClusterMasterUserSecret{SecretArn: aws.String(f.secretArn)}},
		},
	}, nil
}

type fakeSecrets struct {
	cancelled []string
	cancelErr error
}

func (f *fakeSecrets) CancelRotateSecret(_ context.Context, params *secretsmanager.CancelRotateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CancelRotateSecretOutput, error) {
	f.cancelled = append(f.cancelled, *params.SecretId)
	return &secretsmanager.CancelRotateSecretOutput{}, f.cancelErr
}

func TestPasswordManagerCreate(t *testing.T) {
	assert := assert.New(t)

	client := &fakeDocDB{secretArn: "arn:aws:secretsmanager:eu-west-1:111111111111:secret:rds!cluster-abc"}
	secrets := &fakeSecrets{}
	manager := &PasswordManager{Client: client, Secrets: secrets, Wait: time.Millisecond}

	id, data, err := manager.Handle(context.Background(), cfn.Event{
		RequestType: cfn.RequestCreate,
		ResourceProperties: map[string]interface{}{
			"ClusterId": "fr-stg-docdb",
			"KmsKeyId":  "key-1",
		},
	})
	assert.NoError(err)
	assert.Equal("managed-password-fr-stg-docdb", id)
	assert.Equal(client.secretArn, data["SecretArn"])

	assert.Equal("fr-stg-docdb", *client.modifyInput.DBClusterIdentifier)
	assert.True(*client.modifyInput.ManageMasterUserPassword)
	assert.Equal("key-1", *client.modifyInput.MasterUserSecretKmsKeyId)
	assert.Equal([]string{client.secretArn}, secrets.cancelled)
}

func TestPasswordManagerCreateFailure(t *testing.T) {
	assert := assert.New(t)

	manager := &PasswordManager{
		Client:  &fakeDocDB{modifyErr: errors.New("cluster busy")},
		Secrets: &fakeSecrets{},
		Wait:    time.Millisecond,
	}

	_, _, err := manager.Handle(context.Background(), cfn.Event{
		RequestType:        cfn.RequestCreate,
		ResourceProperties: map[string]interface{}{"ClusterId": "fr-stg-docdb"},
	})
	if assert.Error(err) {
		assert.Contains(err.Error(), "enabling managed master password")
	}
}

func TestPasswordManagerCreateToleratesRotationCancelFailure(t *testing.T) {
	assert := assert.New(t)

	client := &fakeDocDB{secretArn: "arn:secret"}
	manager := &PasswordManager{
		Client:  client,
		Secrets: &fakeSecrets{cancelErr: errors.New("no rotation configured")},
		Wait:    time.Millisecond,
	}

	_, data, err := manager.Handle(context.Background(), cfn.Event{
		RequestType:        cfn.RequestCreate,
		ResourceProperties: map[string]interface{}{"ClusterId": "c1"},
	})
	assert.NoError(err)
	assert.Equal("arn:secret", data["SecretArn"])
}

func TestPasswordManagerIgnoresUpdateAndDelete(t *testing.T) {
	for _, requestType := range []cfn.RequestType{cfn.RequestUpdate, cfn.RequestDelete} {
		requestType := requestType
		t.Run(string(requestType), func(t *testing.T) {
			assert := assert.New(t)

			manager := &PasswordManager{
				Client:  &fakeDocDB{modifyErr: errors.New("must not be called")},
				Secrets: &fakeSecrets{},
			}
			id, _, err := manager.Handle(context.Background(), cfn.Event{
				RequestType:        requestType,
				PhysicalResourceID: "managed-password-c1",
				ResourceProperties: map[string]interface{}{"ClusterId": "c1"},
			})
			assert.NoError(err)
			assert.Equal("managed-password-c1", id)
		})
	}
}
