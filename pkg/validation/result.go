package validation

// StatusCode identifies the cause of a denial. Zero is success; every
// nonzero value names a specific failure class so the host pipeline can
// distinguish verdicts without parsing reason text.
type StatusCode uint32

const (
	StatusSuccess           StatusCode = 0
	StatusPolicyDenied      StatusCode = 1
	StatusAttestationDenied StatusCode = 2
	StatusRequestMalformed  StatusCode = 3
)

func (code StatusCode) String() string {
	switch code {
	case StatusSuccess:
		return "success"
	case StatusPolicyDenied:
		return "policy-denied"
	case StatusAttestationDenied:
		return "attestation-denied"
	case StatusRequestMalformed:
		return "request-malformed"
	default:
		return "unknown"
	}
}

// Result accumulates the decision for a single certificate request. Each
// request owns an independent Result; validators mutate it in sequence,
// never concurrently.
type Result struct {
	Code         StatusCode `json:"code"`
	Descriptions []string   `json:"descriptions"`
	Warnings     []string   `json:"warnings"`
}

func NewResult() *Result {
	return &Result{
		Descriptions: make([]string, 0),
		Warnings:     make([]string, 0),
	}
}

// SetFailureStatus records a denial with a human-readable reason. Once a
// request is denied the status code is never reset to success; a later
// failure may still append its reason for the audit trail.
func (r *Result) SetFailureStatus(code StatusCode, description string) {
	if code == StatusSuccess {
		return
	}
	if r.Code == StatusSuccess {
		r.Code = code
	}
	r.Descriptions = append(r.Descriptions, description)
}

// AppendWarning records a non-fatal finding. Warnings never affect the
// verdict.
func (r *Result) AppendWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// DeniedForIssuance reports whether any validator has denied the request.
func (r *Result) DeniedForIssuance() bool {
	return r.Code != StatusSuccess
}
