package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ToKebab normalizes a name to lower kebab-case ("Tenant_Test" -> "tenant-test").
func ToKebab(s string) string {
	return strcase.ToKebab(strings.ToLower(s))
}

// ToPascal normalizes a name to PascalCase ("tenant-test" -> "TenantTest").
func ToPascal(s string) string {
	return strcase.ToCamel(s)
}

// SanitizeForCfn strips every character CloudFormation rejects in logical ids
// and export names.
func SanitizeForCfn(s string) string {
	return nonAlnum.ReplaceAllString(s, "")
}

// Context identifies a (tenant, environment) deployment target. All resource
// names, construct ids and tags are derived from this pair so that stacks for
// different tenants and environments never collide.
type Context struct {
	EnvName    string
	TenantName string
}

// KebabPrefix returns "<tenant>-<env>-<base>" in kebab-case. Used for
// physical resource names (buckets, clusters, namespaces).
func (c Context) KebabPrefix(base string) string {
	return ToKebab(fmt.Sprintf("%s-%s", c.TenantName, c.EnvName)) + "-" + ToKebab(base)
}

// PascalPrefix returns "<Tenant><Env><Base>" in PascalCase. Used for
// construct ids and CloudFormation export names.
func (c Context) PascalPrefix(base string) string {
	return ToPascal(c.TenantName) + ToPascal(c.EnvName) + ToPascal(base)
}

// StageName returns the CDK stage id, e.g. "TenantTestPrdStage".
func (c Context) StageName() string {
	return ToPascal(fmt.Sprintf("%s-%s-stage", c.TenantName, c.EnvName))
}

// Tags returns the tag set applied to every resource in a stage.
func (c Context) Tags() map[string]string {
	return map[string]string{
		"EnvName":    c.EnvName,
		"TenantName": c.TenantName,
		"ManagedBy":  "CDK",
	}
}

// IsDev reports whether the environment is a development tier. Development
// stages get destroy-friendly retention policies and relaxed access rules.
func (c Context) IsDev() bool {
	return strings.Contains(strings.ToLower(c.EnvName), "dev")
}
