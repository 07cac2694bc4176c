package discovery

import "os"

// DefaultPrincipalAccount is the deployment account assumed when neither
// AWS_PRINCIPAL_ACCOUNT_ID nor AWS_ACCOUNT_ID is set.
const DefaultPrincipalAccount = "111111111111"

// BootstrapAccount describes one account/region pair to CDK-bootstrap.
type BootstrapAccount struct {
	AccountID   string `json:"account_id"`
	Region      string `json:"region"`
	IsPrincipal bool   `json:"is_principal"`
	NeedsTrust  bool   `json:"needs_trust"`
}

// BootstrapConfig is the plan written to bootstrap_config.json.
type BootstrapConfig struct {
	PrincipalAccount string             `json:"principal_account"`
	Accounts         []BootstrapAccount `json:"accounts"`
}

// BuildBootstrapConfig marks each discovered account relative to the
// principal: the principal account runs deployments and needs no trust
// relationship, every other account must trust it.
func BuildBootstrapConfig(accounts []Account, principalAccount string) BootstrapConfig {
	cfg := BootstrapConfig{
		PrincipalAccount: principalAccount,
		Accounts:         make([]BootstrapAccount, 0, len(accounts)),
	}
	for _, acct := range accounts {
		isPrincipal := acct.AccountID == principalAccount
		cfg.Accounts = append(cfg.Accounts, BootstrapAccount{
			AccountID:   acct.AccountID,
			Region:      acct.Region,
			IsPrincipal: isPrincipal,
			NeedsTrust:  !isPrincipal,
		})
	}
	return cfg
}

// PrincipalAccountFromEnv resolves the principal account id from
// AWS_PRINCIPAL_ACCOUNT_ID, then AWS_ACCOUNT_ID, then the default.
func PrincipalAccountFromEnv() string {
	if v := os.Getenv("AWS_PRINCIPAL_ACCOUNT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("AWS_ACCOUNT_ID"); v != "" {
		return v
	}
	return DefaultPrincipalAccount
}

// ImageFromEnv resolves the job container image from ECR_IMAGE.
func ImageFromEnv() string {
	if v := os.Getenv("ECR_IMAGE"); v != "" {
		return v
	}
	return DefaultImage
}
