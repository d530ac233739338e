// Package config loads and serializes the policy documents the validator
// evaluates. Documents are YAML on disk; the filesystem is abstracted so
// tests can feed in-memory documents.
package config

import (
	"errors"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/virot/tamemycerts/pkg/notify"
	"github.com/virot/tamemycerts/pkg/policy"
)

var (
	ErrPolicyNotFound = errors.New("config: policy document not found")
	ErrPolicyParse    = errors.New("config: unable to parse policy document")
)

// PolicyDocument is one certificate template's validation configuration:
// the ordered rule list and the notification policy. Loaded once and
// shared read-only across requests.
type PolicyDocument struct {
	Name   string         `yaml:"name" json:"name" mapstructure:"name"`
	Rules  []policy.Rule  `yaml:"rules" json:"rules" mapstructure:"rules"`
	Notify *notify.Policy `yaml:"notify" json:"notify" mapstructure:"notify"`
}

// LoadPolicyDocument reads and parses a YAML policy document.
func LoadPolicyDocument(fs afero.Fs, path string) (*PolicyDocument, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPolicyNotFound
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var document PolicyDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, ErrPolicyParse
	}
	return &document, nil
}

// Save writes the document back out as YAML.
func (d *PolicyDocument) Save(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}

// String renders the document as YAML for diagnostic dumps.
func (d *PolicyDocument) String() string {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err.Error()
	}
	return string(data)
}
