// Package directory models the resolved account backing a certificate
// request. Lookups against the directory service happen upstream; this
// package only carries the snapshot the validators consume.
package directory

import "strings"

// Principal is a read-only snapshot of a directory account at the time a
// certificate request is evaluated.
type Principal struct {
	// DistinguishedName locates the account in the directory tree, e.g.
	// "CN=Jane Doe,OU=Users,DC=example,DC=com".
	DistinguishedName string `json:"distinguishedName" yaml:"distinguished-name" mapstructure:"distinguished-name"`

	// MemberOf holds the distinguished names of every group the account
	// belongs to, direct and nested.
	MemberOf []string `json:"memberOf" yaml:"member-of" mapstructure:"member-of"`

	// Disabled reports whether the account is administratively disabled.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`

	// Attributes is an open string map of directory attributes (mail,
	// displayName, department, ...) used for token substitution. Keys are
	// compared case-insensitively by the token engine.
	Attributes map[string]string `json:"attributes" yaml:"attributes" mapstructure:"attributes"`
}

// IsMemberOfAny reports whether the principal belongs to at least one of
// the given group distinguished names. Comparison is case-insensitive, as
// directory distinguished names are.
func (p *Principal) IsMemberOfAny(groups []string) bool {
	for _, group := range groups {
		for _, member := range p.MemberOf {
			if strings.EqualFold(member, group) {
				return true
			}
		}
	}
	return false
}
