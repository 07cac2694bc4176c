// Package remediation implements the CloudFormation custom resource handlers
// backing the platform stacks: DNS validation record cleanup on zone deletion
// and switching database clusters to managed master passwords.
package remediation

import "fmt"

type Outcome int

const (
	// Succeeded means the handler did its work.
	Succeeded Outcome = iota
	// NotApplicable means the event required no action (wrong request
	// type, nothing to clean up).
	NotApplicable
	// FailedAcknowledged means the work failed but the failure is
	// reported as success to CloudFormation, so a broken cleanup never
	// wedges a stack deletion.
	FailedAcknowledged
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case NotApplicable:
		return "not applicable"
	case FailedAcknowledged:
		return "failed (acknowledged)"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes what a best-effort handler did with an event.
type Result struct {
	Outcome Outcome
	Detail  string
}
