package resources

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// BucketNamingAspect names every unnamed S3 bucket after its stack and
// logical id. Extension stacks apply it so tenant buckets get predictable
// physical names without naming each one by hand.
type BucketNamingAspect struct{}

var _ awscdk.IAspect = (*BucketNamingAspect)(nil)

func (a *BucketNamingAspect) Visit(node constructs.IConstruct) {
	bucket, ok := node.(awss3.CfnBucket)
	if !ok {
		return
	}
	if bucket.BucketName() != nil {
		return
	}
	stack := awscdk.Stack_Of(node)
	name := strings.ToLower(fmt.Sprintf("%s-%s", *stack.StackName(), *bucket.LogicalId()))
	bucket.SetBucketName(jsii.String(name))
}
