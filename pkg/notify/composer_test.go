package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virot/tamemycerts/pkg/directory"
	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/validation"
)

func testPolicy() *Policy {
	return &Policy{
		NotifyOnSuccess: true,
		NotifyOnFailure: true,
		MailTo:          "{ad:mail}",
		MailFrom:        "pki@example.com",
		MailServer:      "smtp.example.com",
		MailPort:        587,
		MailSuccess: MessageTemplate{
			Subject: "Request {vr:requestid} approved",
			Body:    "Template {vr:template} status {vr:status}",
		},
		MailFailure: MessageTemplate{
			Subject: "Req {vr:requestid} denied",
			Body:    "Req {vr:requestid} denied: {vr:reason}",
		},
	}
}

func testRecipient() *directory.Principal {
	return &directory.Principal{
		DistinguishedName: "CN=Jane Doe,OU=Users,DC=example,DC=com",
		Attributes: map[string]string{
			"mail": "jane.doe@example.com",
		},
	}
}

func TestComposeFailureMessage(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	result := validation.NewResult()
	result.SetFailureStatus(validation.StatusPolicyDenied, "bad key")

	message, err := composer.Compose(42, "UserTemplate", result, testPolicy(), testRecipient())

	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "jane.doe@example.com", message.To)
	assert.Equal(t, "pki@example.com", message.From)
	assert.Equal(t, "Req 42 denied", message.Subject)
	assert.Equal(t, "Req 42 denied: bad key", message.Body)
	assert.Equal(t, "smtp.example.com", message.Server)
	assert.Equal(t, 587, message.Port)
}

func TestComposeSuccessMessage(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	result := validation.NewResult()

	message, err := composer.Compose(7, "UserTemplate", result, testPolicy(), testRecipient())

	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "Request 7 approved", message.Subject)
	assert.Equal(t, "Template UserTemplate status Approved", message.Body)
}

func TestComposeDefaultTexts(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	policy := testPolicy()
	policy.MailSuccess = MessageTemplate{}
	policy.MailFailure = MessageTemplate{}

	message, err := composer.Compose(1, "T", validation.NewResult(), policy, testRecipient())
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "Certificate Issuance Succeeded", message.Subject)
	assert.Equal(t, "Certificate Issuance Succeeded", message.Body)

	denied := validation.NewResult()
	denied.SetFailureStatus(validation.StatusPolicyDenied, "nope")
	message, err = composer.Compose(1, "T", denied, policy, testRecipient())
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "Certificate Issuance Failed", message.Subject)
}

func TestComposeNoReasonGiven(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	policy := testPolicy()
	policy.NotifyOnSuccess = true
	policy.MailSuccess.Body = "Reason: {vr:reason}"

	message, err := composer.Compose(1, "T", validation.NewResult(), policy, testRecipient())

	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "Reason: No reason given", message.Body)
}

func TestComposeDeduplicatesReasons(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	policy := testPolicy()
	policy.MailFailure.Body = "{vr:reason}"

	result := validation.NewResult()
	result.SetFailureStatus(validation.StatusPolicyDenied, "first")
	result.SetFailureStatus(validation.StatusPolicyDenied, "second")
	result.SetFailureStatus(validation.StatusPolicyDenied, "first")

	message, err := composer.Compose(1, "T", result, policy, testRecipient())

	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "first\nsecond", message.Body)
}

func TestComposeDisabledPolicy(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	policy := testPolicy()
	policy.NotifyOnSuccess = false
	policy.NotifyOnFailure = false

	message, err := composer.Compose(1, "T", validation.NewResult(), policy, testRecipient())

	assert.NoError(t, err)
	assert.Nil(t, message)
}

func TestComposeOutcomeNotSubscribed(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	policy := testPolicy()
	policy.NotifyOnSuccess = false

	// An approved request under a failure-only policy produces nothing.
	message, err := composer.Compose(1, "T", validation.NewResult(), policy, testRecipient())

	assert.NoError(t, err)
	assert.Nil(t, message)
}

func TestComposeMissingRequiredFields(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())

	policy := testPolicy()
	policy.MailTo = ""
	_, err := composer.Compose(1, "T", validation.NewResult(), policy, testRecipient())
	assert.ErrorIs(t, err, ErrMissingMailTo)

	policy = testPolicy()
	policy.MailFrom = ""
	_, err = composer.Compose(1, "T", validation.NewResult(), policy, testRecipient())
	assert.ErrorIs(t, err, ErrMissingMailFrom)

	policy = testPolicy()
	policy.MailServer = ""
	_, err = composer.Compose(1, "T", validation.NewResult(), policy, testRecipient())
	assert.ErrorIs(t, err, ErrMissingMailServer)
}

func TestComposeUnresolvedRecipientIsInvalid(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())

	// The principal carries no mail attribute so the recipient template
	// survives substitution as a literal token, which is not an address.
	principal := testRecipient()
	principal.Attributes = map[string]string{}

	_, err := composer.Compose(1, "T", validation.NewResult(), testPolicy(), principal)

	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestComposeLiteralRecipient(t *testing.T) {

	composer := NewComposer(logging.DefaultLogger())
	policy := testPolicy()
	policy.MailTo = "pki-team@example.com"

	message, err := composer.Compose(1, "T", validation.NewResult(), policy, nil)

	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "pki-team@example.com", message.To)
}
