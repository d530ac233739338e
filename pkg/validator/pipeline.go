// Package validator wires the policy rule engine, the hardware
// attestation verifier and the outcome notifier into the per-request
// validation pipeline.
package validator

import (
	"fmt"
	"time"

	"github.com/virot/tamemycerts/pkg/attestation/yubikey"
	"github.com/virot/tamemycerts/pkg/config"
	"github.com/virot/tamemycerts/pkg/directory"
	"github.com/virot/tamemycerts/pkg/export"
	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/notify"
	"github.com/virot/tamemycerts/pkg/policy"
	"github.com/virot/tamemycerts/pkg/request"
	"github.com/virot/tamemycerts/pkg/validation"
)

// Pipeline evaluates certificate requests against a policy document.
// Policies and the pinned trust root are immutable once constructed and
// safe to share across concurrent requests; each request owns its own
// Result.
type Pipeline struct {
	logger    *logging.Logger
	engine    *policy.Engine
	verifier  *yubikey.Verifier
	composer  *notify.Composer
	transport notify.Transport
	storer    *export.Storer
	metrics   *Metrics
}

// PipelineOption customizes pipeline construction.
type PipelineOption func(*Pipeline)

// WithTransport sets the notification transport. Defaults to SMTP.
func WithTransport(transport notify.Transport) PipelineOption {
	return func(p *Pipeline) {
		p.transport = transport
	}
}

// WithVerifier replaces the attestation verifier, used by tests to anchor
// chains at a synthetic root.
func WithVerifier(verifier *yubikey.Verifier) PipelineOption {
	return func(p *Pipeline) {
		p.verifier = verifier
	}
}

// WithExportStorer enables audit record export after each validation.
func WithExportStorer(storer *export.Storer) PipelineOption {
	return func(p *Pipeline) {
		p.storer = storer
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(metrics *Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

func NewPipeline(logger *logging.Logger, opts ...PipelineOption) *Pipeline {
	pipeline := &Pipeline{
		logger:    logger,
		engine:    policy.NewEngine(logger),
		verifier:  yubikey.NewVerifier(logger),
		composer:  notify.NewComposer(logger),
		transport: notify.NewSMTPTransport(),
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	return pipeline
}

// Validate runs the full pipeline for one request: policy rules first,
// then attestation, then the outcome notification and audit export. The
// first denial wins; later validators leave the verdict untouched. The
// notifier always runs, regardless of verdict.
func (p *Pipeline) Validate(
	req *request.CertificateRequest,
	principal *directory.Principal,
	document *config.PolicyDocument) *validation.Result {

	started := time.Now()
	result := validation.NewResult()

	// Callers may omit the principal entirely; rules then evaluate
	// against an empty account snapshot.
	if principal == nil {
		principal = &directory.Principal{}
	}

	p.engine.Evaluate(result, document.Rules, principal)

	ykAttributes := p.verifier.Extract(result, req)

	yubikeyAttributes := map[string]string{}
	if ykAttributes != nil {
		yubikeyAttributes = ykAttributes.Map()
	}

	if document.Notify != nil {
		p.notify(req, result, document.Notify, principal)
	}

	if p.storer != nil {
		record := export.NewRecord(req, result, principal.Attributes, yubikeyAttributes)
		if err := p.storer.Store(record); err != nil {
			p.logger.Error(err)
		}
	}

	p.metrics.ObserveVerdict(result.Code.String(), req.Template, time.Since(started))

	p.logger.Info("validator: verdict",
		"requestID", req.RequestID,
		"template", req.Template,
		"status", result.Code.String(),
		"denied", result.DeniedForIssuance())

	return result
}

// notify composes and dispatches the outcome notification. Failures are
// reported and counted but never alter the verdict and are never retried.
func (p *Pipeline) notify(
	req *request.CertificateRequest,
	result *validation.Result,
	policy *notify.Policy,
	principal *directory.Principal) {

	message, err := p.composer.Compose(
		req.RequestID, req.Template, result, policy, principal)
	if err != nil {
		p.metrics.IncrementNotification("compose_failed")
		return
	}
	if message == nil {
		return
	}
	if err := p.transport.Send(message); err != nil {
		p.logger.Error(err)
		result.AppendWarning(fmt.Sprintf("mail delivery failed: %v", err))
		p.metrics.IncrementNotification("send_failed")
		return
	}
	p.metrics.IncrementNotification("sent")
}
