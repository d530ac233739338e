// Package request carries the decoded certificate signing request handed
// in by the host certificate authority pipeline.
package request

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
)

var (
	ErrInvalidPEM = errors.New("request: data is not a PEM encoded certificate request")
	ErrInvalidCSR = errors.New("request: unable to parse certificate signing request")
)

// CertificateRequest is the decoded view of one CSR as it enters the
// validation pipeline. Extensions maps the dotted object identifier of
// each request extension to its raw value bytes.
type CertificateRequest struct {
	RequestID  int               `json:"requestId"`
	Template   string            `json:"template"`
	Subject    string            `json:"subject"`
	PublicKey  []byte            `json:"publicKey"`
	Extensions map[string][]byte `json:"extensions"`
}

// Extension returns the raw value of the extension with the given dotted
// OID, or nil when the request does not carry it.
func (r *CertificateRequest) Extension(oid string) []byte {
	if r.Extensions == nil {
		return nil
	}
	return r.Extensions[oid]
}

// HasExtension reports whether the request carries the given extension.
func (r *CertificateRequest) HasExtension(oid string) bool {
	_, ok := r.Extensions[oid]
	return ok
}

// FromPEM decodes a PEM encoded PKCS #10 certificate request into the
// pipeline's request envelope. The CSR signature is checked so a request
// with a tampered public key is rejected before any policy runs.
func FromPEM(requestID int, template string, pemBytes []byte) (*CertificateRequest, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, ErrInvalidPEM
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, ErrInvalidCSR
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, err
	}
	spki, err := x509.MarshalPKIXPublicKey(csr.PublicKey)
	if err != nil {
		return nil, err
	}
	extensions := make(map[string][]byte, len(csr.Extensions))
	for _, ext := range csr.Extensions {
		extensions[ext.Id.String()] = ext.Value
	}
	return &CertificateRequest{
		RequestID:  requestID,
		Template:   template,
		Subject:    csr.Subject.String(),
		PublicKey:  spki,
		Extensions: extensions,
	}, nil
}
