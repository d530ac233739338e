// Package export persists an audit record of each validation run: the
// request metadata, the verdict, and the merged token map every namespace
// contributed. Records are written as CBOR blobs, one file per request.
package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/request"
	"github.com/virot/tamemycerts/pkg/validation"
)

// Record is the exported snapshot of one validation run.
type Record struct {
	ID           string            `cbor:"id"`
	RequestID    int               `cbor:"request_id"`
	Template     string            `cbor:"template"`
	Subject      string            `cbor:"subject"`
	StatusCode   uint32            `cbor:"status_code"`
	Denied       bool              `cbor:"denied"`
	Descriptions []string          `cbor:"descriptions"`
	Warnings     []string          `cbor:"warnings"`
	TokenValues  map[string]string `cbor:"token_values"`
	ExportedAt   time.Time         `cbor:"exported_at"`
}

// NewRecord merges the per-namespace attribute maps into a single
// prefixed token map ("ad:mail", "yk:SerialNumber", ...) alongside the
// request and result snapshot.
func NewRecord(
	req *request.CertificateRequest,
	result *validation.Result,
	directoryAttributes map[string]string,
	yubikeyAttributes map[string]string) *Record {

	tokenValues := make(map[string]string,
		len(directoryAttributes)+len(yubikeyAttributes))
	for key, value := range directoryAttributes {
		tokenValues[fmt.Sprintf("ad:%s", key)] = value
	}
	for key, value := range yubikeyAttributes {
		tokenValues[fmt.Sprintf("yk:%s", key)] = value
	}

	return &Record{
		ID:           uuid.New().String(),
		RequestID:    req.RequestID,
		Template:     req.Template,
		Subject:      req.Subject,
		StatusCode:   uint32(result.Code),
		Denied:       result.DeniedForIssuance(),
		Descriptions: result.Descriptions,
		Warnings:     result.Warnings,
		TokenValues:  tokenValues,
		ExportedAt:   time.Now().UTC(),
	}
}

// Storer writes records beneath a directory on the provided filesystem.
type Storer struct {
	logger    *logging.Logger
	fs        afero.Fs
	exportDir string
}

func NewStorer(logger *logging.Logger, fs afero.Fs, exportDir string) *Storer {
	return &Storer{
		logger:    logger,
		fs:        fs,
		exportDir: exportDir,
	}
}

// Store encodes the record and writes it to <exportDir>/<id>.cbor. The
// export is an observability aid; callers report a failed write but never
// let it affect the request's verdict.
func (s *Storer) Store(record *Record) error {
	if err := s.fs.MkdirAll(s.exportDir, 0755); err != nil {
		return err
	}
	encoded, err := cbor.Marshal(record)
	if err != nil {
		return err
	}
	path := filepath.Join(s.exportDir, fmt.Sprintf("%s.cbor", record.ID))
	if err := afero.WriteFile(s.fs, path, encoded, 0644); err != nil {
		return err
	}
	s.logger.Debug("export: wrote validation record",
		"path", path, "requestID", record.RequestID)
	return nil
}

// Load reads a previously stored record, used by the CLI to inspect
// exports.
func (s *Storer) Load(id string) (*Record, error) {
	path := filepath.Join(s.exportDir, fmt.Sprintf("%s.cbor", id))
	encoded, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := cbor.Unmarshal(encoded, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
