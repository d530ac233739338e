package policy

import (
	"fmt"

	"github.com/virot/tamemycerts/pkg/directory"
	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/validation"
)

// Engine walks an ordered rule list and resolves the first rule whose
// action fires. Rules whose action does not fire are no-ops for the
// request; when no rule fires at all the request is implicitly permitted.
type Engine struct {
	logger  *logging.Logger
	matcher *Matcher
}

func NewEngine(logger *logging.Logger) *Engine {
	return &Engine{
		logger:  logger,
		matcher: NewMatcher(logger),
	}
}

// Evaluate applies the rule list to the principal and records a denial on
// the result when a Reject/RejectOnFail rule fires. A request that is
// already denied is left untouched.
func (e *Engine) Evaluate(
	result *validation.Result,
	rules []Rule,
	principal *directory.Principal) *validation.Result {

	if result.DeniedForIssuance() {
		return result
	}

	for _, rule := range rules {

		match := true
		if len(rule.DirectoryPolicies) > 0 {
			match = false
			for _, dp := range rule.DirectoryPolicies {
				if e.matcher.Satisfies(dp, principal) {
					match = true
					break
				}
			}
		}

		switch {
		case rule.Action.equals(ActionIssue) && match:
			e.logger.Debug("policy: rule permits issuance",
				"rule", rule.Name)
			return result

		case rule.Action.equals(ActionIssueOnFail) && !match:
			e.logger.Debug("policy: rule permits issuance on non-match",
				"rule", rule.Name)
			return result

		case rule.Action.equals(ActionReject) && match:
			result.SetFailureStatus(validation.StatusPolicyDenied,
				fmt.Sprintf("Failed on policy: %s", rule.Name))
			return result

		case rule.Action.equals(ActionRejectOnFail) && !match:
			result.SetFailureStatus(validation.StatusPolicyDenied,
				fmt.Sprintf("Failed on policy: %s", rule.Name))
			return result
		}

		// No condition fired, including any unknown action value. The
		// rule is a no-op for this request; continue down the list.
	}

	return result
}
