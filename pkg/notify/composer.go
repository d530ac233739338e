package notify

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/virot/tamemycerts/pkg/directory"
	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/tokens"
	"github.com/virot/tamemycerts/pkg/validation"
)

var (
	ErrMissingMailTo     = errors.New("notify: policy is missing the MailTo recipient template")
	ErrMissingMailFrom   = errors.New("notify: policy is missing the MailFrom sender address")
	ErrMissingMailServer = errors.New("notify: policy is missing the MailServer host")
	ErrInvalidRecipient  = errors.New("notify: recipient is not a valid mail address after substitution")
)

const (
	defaultSuccessText = "Certificate Issuance Succeeded"
	defaultFailureText = "Certificate Issuance Failed"

	// noReasonGiven is rendered for {vr:reason} when the result carries
	// no description strings.
	noReasonGiven = "No reason given"
)

// Composer selects and renders the outcome notification for one request.
type Composer struct {
	logger *logging.Logger
}

func NewComposer(logger *logging.Logger) *Composer {
	return &Composer{logger: logger}
}

// Compose returns the rendered message for the request, or nil when the
// policy produces no notification for this outcome. A missing required
// field or an invalid recipient aborts composition with an error; the
// caller reports it without altering the request's verdict.
func (c *Composer) Compose(
	requestID int,
	template string,
	result *validation.Result,
	policy *Policy,
	principal *directory.Principal) (*Message, error) {

	if !policy.Enabled() {
		return nil, nil
	}

	if policy.MailTo == "" {
		c.logger.Warn("notify: missing required information",
			"requestID", requestID, "template", template, "field", "MailTo")
		return nil, ErrMissingMailTo
	}
	if policy.MailFrom == "" {
		c.logger.Warn("notify: missing required information",
			"requestID", requestID, "template", template, "field", "MailFrom")
		return nil, ErrMissingMailFrom
	}
	if policy.MailServer == "" {
		c.logger.Warn("notify: missing required information",
			"requestID", requestID, "template", template, "field", "MailServer")
		return nil, ErrMissingMailServer
	}

	directoryAttributes := map[string]string{}
	if principal != nil {
		directoryAttributes = principal.Attributes
	}
	recipient := tokens.Substitute(policy.MailTo, "ad", directoryAttributes)

	c.logger.Debug("notify: resolved recipient",
		"requestID", requestID, "template", template, "recipient", recipient)

	if _, err := mail.ParseAddress(recipient); err != nil {
		c.logger.Error(ErrInvalidRecipient)
		return nil, ErrInvalidRecipient
	}

	var selected MessageTemplate
	switch {
	case result.DeniedForIssuance() && policy.NotifyOnFailure:
		selected = withDefaults(policy.MailFailure, defaultFailureText)
	case !result.DeniedForIssuance() && policy.NotifyOnSuccess:
		selected = withDefaults(policy.MailSuccess, defaultSuccessText)
	default:
		// This outcome is not one the policy notifies about.
		return nil, nil
	}

	resultAttributes := map[string]string{
		"RequestID": strconv.Itoa(requestID),
		"Template":  template,
		"Status":    status(result),
		"Reason":    reason(result),
	}

	return &Message{
		To:      recipient,
		From:    policy.MailFrom,
		Subject: tokens.Substitute(selected.Subject, "vr", resultAttributes),
		Body:    tokens.Substitute(selected.Body, "vr", resultAttributes),
		Server:  policy.MailServer,
		Port:    policy.MailPort,
		UseTLS:  policy.MailUseTLS,
	}, nil
}

func withDefaults(template MessageTemplate, fallback string) MessageTemplate {
	if template.Subject == "" {
		template.Subject = fallback
	}
	if template.Body == "" {
		template.Body = fallback
	}
	return template
}

func status(result *validation.Result) string {
	if result.DeniedForIssuance() {
		return "Denied"
	}
	return "Approved"
}

// reason deduplicates the result's descriptions preserving order and
// joins them with newlines.
func reason(result *validation.Result) string {
	if len(result.Descriptions) == 0 {
		return noReasonGiven
	}
	seen := make(map[string]struct{}, len(result.Descriptions))
	unique := make([]string, 0, len(result.Descriptions))
	for _, description := range result.Descriptions {
		if _, ok := seen[description]; ok {
			continue
		}
		seen[description] = struct{}{}
		unique = append(unique, description)
	}
	return strings.Join(unique, "\n")
}
