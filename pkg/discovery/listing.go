// Package discovery turns `cdk list --long` output into CI deployment
// artifacts: a stage inventory, per-tier pipeline job definitions, and a
// bootstrap plan for every target account.
package discovery

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ListingEntry is one record of `cdk list --long` YAML output.
type ListingEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Environment struct {
		Account string `yaml:"account"`
		Region  string `yaml:"region"`
		Name    string `yaml:"name"`
	} `yaml:"environment"`
}

// Account is a unique (account id, region) deployment target.
type Account struct {
	AccountID string `json:"account_id"`
	Region    string `json:"region"`
}

// ReadListing parses a `cdk list --long` YAML file.
func ReadListing(path string) ([]ListingEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading stack listing %s", path)
	}
	var entries []ListingEntry
	if err := yaml.Unmarshal(content, &entries); err != nil {
		return nil, errors.Wrapf(err, "parsing stack listing %s", path)
	}
	return entries, nil
}

// StackIDs extracts the stack ids from the listing. Ids carry a
// parenthesized alias after the first space ("Stage/Stack (Stage-Stack)");
// only the part before the space is kept. Entries without an id are skipped.
func StackIDs(entries []ListingEntry) []string {
	var stacks []string
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		id, _, _ := strings.Cut(entry.ID, " ")
		stacks = append(stacks, id)
	}
	return stacks
}

// UniqueAccounts collects the distinct (account, region) pairs of the
// listing, sorted by account then region. Entries missing either field are
// skipped.
func UniqueAccounts(entries []ListingEntry) []Account {
	seen := make(map[Account]struct{})
	for _, entry := range entries {
		acct := Account{AccountID: entry.Environment.Account, Region: entry.Environment.Region}
		if acct.AccountID == "" || acct.Region == "" {
			continue
		}
		seen[acct] = struct{}{}
	}
	accounts := make([]Account, 0, len(seen))
	for acct := range seen {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].AccountID != accounts[j].AccountID {
			return accounts[i].AccountID < accounts[j].AccountID
		}
		return accounts[i].Region < accounts[j].Region
	})
	return accounts
}
