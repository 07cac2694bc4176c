package discovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadListing(t *testing.T) {
	assert := assert.New(t)
	entries, err := ReadListing(filepath.Join("testdata", "cdk_stacks_long.yml"))
	require.NoError(t, err)
	assert.Len(entries, 5)
	assert.Equal("Fr-Dev/NetworkStack (Fr-Dev-NetworkStack)", entries[0].ID)
	assert.Equal("111111111111", entries[0].Environment.Account)
	assert.Equal("eu-west-1", entries[0].Environment.Region)
}

func TestReadListing_MissingFile(t *testing.T) {
	assert := assert.New(t)
	_, err := ReadListing(filepath.Join("testdata", "does-not-exist.yml"))
	assert.Error(err)
}

func TestStackIDs(t *testing.T) {
	assert := assert.New(t)
	entries, err := ReadListing(filepath.Join("testdata", "cdk_stacks_long.yml"))
	require.NoError(t, err)

	stacks := StackIDs(entries)
	// the alias after the space is dropped, the id-less entry is skipped
	assert.Equal([]string{
		"Fr-Dev/NetworkStack",
		"Fr-Dev/SecurityStack",
		"Tenantc-Prd/NetworkStack",
		"Tenantc-Prd/ExtraBucketStack",
	}, stacks)
}

func TestUniqueAccounts(t *testing.T) {
	assert := assert.New(t)
	entries, err := ReadListing(filepath.Join("testdata", "cdk_stacks_long.yml"))
	require.NoError(t, err)

	accounts := UniqueAccounts(entries)
	assert.Equal([]Account{
		{AccountID: "111111111111", Region: "eu-west-1"},
		{AccountID: "222222222222", Region: "eu-west-1"},
		{AccountID: "333333333333", Region: "us-east-1"},
	}, accounts)
}

func TestUniqueAccounts_SkipsPartialEnvironments(t *testing.T) {
	assert := assert.New(t)
	entries := []ListingEntry{{ID: "A/B"}}
	assert.Empty(UniqueAccounts(entries))
}
