package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"gopkg.in/yaml.v2"

	"github.com/virot/tamemycerts/pkg/logging"
)

type HttpWriter interface {
	Write(w http.ResponseWriter, r *http.Request, status int, response interface{})
	WriteYaml(w http.ResponseWriter, status int, response interface{})
	WriteJson(w http.ResponseWriter, status int, response interface{})
	Success200(w http.ResponseWriter, r *http.Request, payload interface{})
	Error400(w http.ResponseWriter, r *http.Request, err error)
	Error404(w http.ResponseWriter, r *http.Request, err error)
	Error500(w http.ResponseWriter, r *http.Request, err error)
}

type WebServiceResponse struct {
	Code    int         `yaml:"code" json:"code"`
	Error   string      `yaml:"error" json:"error"`
	Success bool        `yaml:"success" json:"success"`
	Payload interface{} `yaml:"payload" json:"payload"`
}

type ResponseWriter struct {
	logger *logging.Logger
	HttpWriter
}

func NewResponseWriter(logger *logging.Logger) HttpWriter {
	return &ResponseWriter{logger: logger}
}

// Write serializes the response as JSON or YAML depending on the client
// accept header. Default is JSON if a valid header can not be found.
func (writer *ResponseWriter) Write(w http.ResponseWriter, r *http.Request, status int, response interface{}) {
	acceptHeader := r.Header.Get("accept")
	if acceptHeader == "application/yaml" || acceptHeader == "text/yaml" {
		writer.WriteYaml(w, status, response)
		return
	}
	writer.WriteJson(w, status, response)
}

func (writer *ResponseWriter) WriteYaml(w http.ResponseWriter, status int, response interface{}) {
	yamlResponse, err := yaml.Marshal(response)
	if err != nil {
		errResponse := WebServiceResponse{Error: fmt.Sprintf(
			"YamlWriter failed to marshal response entity %s %+v",
			reflect.TypeOf(response), response)}
		errBytes, _ := yaml.Marshal(errResponse)
		http.Error(w, string(errBytes), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	w.Write(yamlResponse)

	writer.logResponse(w, status, string(yamlResponse))
}

func (writer *ResponseWriter) WriteJson(w http.ResponseWriter, status int, response interface{}) {
	jsonResponse, err := json.Marshal(response)
	if err != nil {
		errResponse := WebServiceResponse{Error: fmt.Sprintf(
			"ResponseWriter failed to marshal response entity %s %+v",
			reflect.TypeOf(response), response)}
		errBytes, _ := json.Marshal(errResponse)
		http.Error(w, string(errBytes), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonResponse)

	writer.logResponse(w, status, string(jsonResponse))
}

func (writer *ResponseWriter) Success200(w http.ResponseWriter, r *http.Request, payload interface{}) {
	writer.logRequest(r)
	writer.Write(w, r, http.StatusOK, WebServiceResponse{
		Code:    http.StatusOK,
		Success: true,
		Payload: payload})
}

func (writer *ResponseWriter) Error400(w http.ResponseWriter, r *http.Request, err error) {
	writer.logError(r, err)
	writer.Write(w, r, http.StatusBadRequest, WebServiceResponse{
		Code:    http.StatusBadRequest,
		Error:   err.Error(),
		Success: false,
		Payload: nil})
}

func (writer *ResponseWriter) Error404(w http.ResponseWriter, r *http.Request, err error) {
	writer.logError(r, err)
	writer.Write(w, r, http.StatusNotFound, WebServiceResponse{
		Code:    http.StatusNotFound,
		Error:   err.Error(),
		Success: false,
		Payload: nil})
}

func (writer *ResponseWriter) Error500(w http.ResponseWriter, r *http.Request, err error) {
	writer.logError(r, err)
	writer.Write(w, r, http.StatusInternalServerError, WebServiceResponse{
		Code:    http.StatusInternalServerError,
		Error:   err.Error(),
		Success: false,
		Payload: nil})
}

func (writer *ResponseWriter) logResponse(w http.ResponseWriter, status int, response interface{}) {
	writer.logger.Debugf("header: %s, status: %d, response: %s",
		w.Header(), status, response)
}

func (writer *ResponseWriter) logRequest(r *http.Request) {
	writer.logger.Debugf("url: %s, method: %s, remoteAddress: %s, requestUri: %s",
		r.URL.Path, r.Method, r.RemoteAddr, r.RequestURI)
}

func (writer *ResponseWriter) logError(r *http.Request, err error) {
	writer.logger.Debugf("url: %s, method: %s, remoteAddress: %s, requestUri: %s, error: %s",
		r.URL.Path, r.Method, r.RemoteAddr, r.RequestURI, err)
}
