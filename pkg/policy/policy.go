// Package policy implements the ordered, first-match-wins rule engine that
// decides whether a certificate request may be issued.
package policy

import "strings"

// Action determines what happens when a rule's condition is resolved.
// Actions are stored as strings in policy documents; unknown values never
// fire (see Engine.Evaluate).
type Action string

const (
	// ActionIssue permits the request when the rule's condition matches.
	ActionIssue Action = "Issue"

	// ActionIssueOnFail permits the request when the rule's condition
	// does not match.
	ActionIssueOnFail Action = "IssueOnFail"

	// ActionReject denies the request when the rule's condition matches.
	ActionReject Action = "Reject"

	// ActionRejectOnFail denies the request when the rule's condition
	// does not match.
	ActionRejectOnFail Action = "RejectOnFail"
)

// equals compares the action to a document value case-insensitively so
// hand-written policy files don't fail on casing.
func (a Action) equals(other Action) bool {
	return strings.EqualFold(string(a), string(other))
}

// Rule is one entry in an ordered policy list. The directory conditions
// have any-of semantics: the rule's condition is satisfied when at least
// one of its DirectoryPolicies matches, or unconditionally when the rule
// carries none.
type Rule struct {
	Name              string            `yaml:"name" json:"name" mapstructure:"name"`
	Action            Action            `yaml:"action" json:"action" mapstructure:"action"`
	DirectoryPolicies []DirectoryPolicy `yaml:"directory-policies" json:"directory_policies" mapstructure:"directory-policies"`
}

// DirectoryPolicy constrains a rule to accounts with certain directory
// properties. An empty constraint set is treated as satisfied.
type DirectoryPolicy struct {
	// Groups lists group distinguished names; membership in any one of
	// them satisfies the group condition.
	Groups []string `yaml:"groups" json:"groups" mapstructure:"groups"`

	// OrganizationalUnits lists OU suffixes the account's distinguished
	// name must NOT end with. The polarity is inverted relative to a
	// conventional allow-list; existing policy documents depend on it,
	// so it is kept as-is. See the matcher for details.
	OrganizationalUnits []string `yaml:"organizational-units" json:"organizational_units" mapstructure:"organizational-units"`

	// PermitDisabledAccounts allows the policy to match even when the
	// account is administratively disabled.
	PermitDisabledAccounts bool `yaml:"permit-disabled-accounts" json:"permit_disabled_accounts" mapstructure:"permit-disabled-accounts"`
}
