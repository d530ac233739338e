// Package notify renders and dispatches the outcome notification for a
// validated certificate request. The composer produces a fully rendered
// message; delivery is delegated to a Transport and never influences the
// request's verdict.
package notify

// MessageTemplate holds the subject and body template for one outcome.
// Placeholders use the {namespace:key} token syntax.
type MessageTemplate struct {
	Subject string `yaml:"subject" json:"subject" mapstructure:"subject"`
	Body    string `yaml:"body" json:"body" mapstructure:"body"`
}

// Policy is the notification configuration attached to a policy document.
// It is loaded by the configuration layer and read-only to the composer.
type Policy struct {
	NotifyOnSuccess bool `yaml:"notify-on-success" json:"notify_on_success" mapstructure:"notify-on-success"`
	NotifyOnFailure bool `yaml:"notify-on-failure" json:"notify_on_failure" mapstructure:"notify-on-failure"`

	// MailTo is a template; directory attributes are substituted under
	// the "ad" namespace to compute the recipient, e.g. "{ad:mail}".
	MailTo   string `yaml:"mail-to" json:"mail_to" mapstructure:"mail-to"`
	MailFrom string `yaml:"mail-from" json:"mail_from" mapstructure:"mail-from"`

	MailServer string `yaml:"mail-server" json:"mail_server" mapstructure:"mail-server"`
	MailPort   int    `yaml:"mail-port" json:"mail_port" mapstructure:"mail-port"`
	MailUseTLS bool   `yaml:"mail-use-tls" json:"mail_use_tls" mapstructure:"mail-use-tls"`

	MailSuccess MessageTemplate `yaml:"mail-success" json:"mail_success" mapstructure:"mail-success"`
	MailFailure MessageTemplate `yaml:"mail-failure" json:"mail_failure" mapstructure:"mail-failure"`
}

// Enabled reports whether any notification is requested at all.
func (p *Policy) Enabled() bool {
	return p.NotifyOnSuccess || p.NotifyOnFailure
}

// Message is a fully rendered notification ready for a Transport.
type Message struct {
	To      string
	From    string
	Subject string
	Body    string

	Server string
	Port   int
	UseTLS bool
}

// Transport delivers a rendered message. Implementations are external
// collaborators; failures are reported by the caller but never retried.
type Transport interface {
	Send(message *Message) error
}
