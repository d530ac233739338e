package webservice

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/virot/tamemycerts/pkg/directory"
	"github.com/virot/tamemycerts/pkg/request"
	"github.com/virot/tamemycerts/pkg/webservice/response"
)

var (
	ErrInvalidEnvelope = errors.New("webservice: invalid validation request envelope")
	ErrUnknownTemplate = errors.New("webservice: no policy document for the requested template")
)

// ValidationEnvelope is the JSON body of a validation call from the host
// CA pipeline: the decoded request plus the resolved directory principal.
type ValidationEnvelope struct {
	Request   *request.CertificateRequest `json:"request"`
	Principal *directory.Principal        `json:"principal"`
}

// validateHandler resolves the policy document for the request's template
// and runs the validation pipeline.
func (server *WebServer) validateHandler(httpWriter response.HttpWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		var envelope ValidationEnvelope
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			httpWriter.Error400(w, r, ErrInvalidEnvelope)
			return
		}
		if envelope.Request == nil {
			httpWriter.Error400(w, r, ErrInvalidEnvelope)
			return
		}
		// A missing principal is a valid envelope; rules that inspect
		// directory properties evaluate against an empty account.
		if envelope.Principal == nil {
			envelope.Principal = &directory.Principal{}
		}

		document, ok := server.documents[envelope.Request.Template]
		if !ok {
			httpWriter.Error404(w, r, ErrUnknownTemplate)
			return
		}

		result := server.pipeline.Validate(
			envelope.Request, envelope.Principal, document)

		httpWriter.Success200(w, r, result)
	}
}
