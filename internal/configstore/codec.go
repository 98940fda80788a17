package configstore

import (
	"errors"

	"github.com/arencloud/stackdeck/internal/models"

	json "github.com/goccy/go-json"
)

// ParseError reports a configuration document that is not valid JSON or does
// not have the configuration shape.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "invalid configuration: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// wireConfig accepts the current keys and the ones written by older console
// builds (localstackInstances / defaultInstance).
type wireConfig struct {
	Instances           *[]models.Instance `json:"instances"`
	DefaultInstanceName *string            `json:"defaultInstanceName"`
	LegacyInstances     *[]models.Instance `json:"localstackInstances"`
	LegacyDefault       *string            `json:"defaultInstance"`
}

// Decode parses a configuration document. Only structure is checked: the
// default name need not match an instance and names are not deduplicated.
func Decode(data []byte) (models.Configuration, error) {
	var w wireConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Configuration{}, &ParseError{Err: err}
	}
	insts := w.Instances
	if insts == nil {
		insts = w.LegacyInstances
	}
	if insts == nil {
		return models.Configuration{}, &ParseError{Err: errors.New(`missing "instances" list`)}
	}
	cfg := models.Configuration{Instances: *insts}
	switch {
	case w.DefaultInstanceName != nil:
		cfg.DefaultInstanceName = *w.DefaultInstanceName
	case w.LegacyDefault != nil:
		cfg.DefaultInstanceName = *w.LegacyDefault
	}
	return cfg, nil
}

// Encode renders the configuration in the export shape.
func Encode(cfg models.Configuration) ([]byte, error) {
	if cfg.Instances == nil {
		cfg.Instances = []models.Instance{}
	}
	return json.MarshalIndent(cfg, "", "  ")
}
