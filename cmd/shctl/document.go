package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"nithronos/secheaders/pkg/secheaders"
)

// loadDocument reads a YAML or JSON config document and checks it against
// the config schema. A non-empty env fills in or must match the document's
// environment.
func loadDocument(path string, env secheaders.Environment) (secheaders.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return secheaders.Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := toJSON(path, raw)
	if err != nil {
		return secheaders.Config{}, err
	}
	cfg, err := secheaders.DecodeDocument(doc)
	if err != nil {
		return secheaders.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	switch {
	case env == "":
	case cfg.Environment == "":
		cfg.Environment = env
	case cfg.Environment != env:
		return secheaders.Config{}, fmt.Errorf("%s is for %s, not %s", path, cfg.Environment, env)
	}
	if cfg.Environment == "" {
		return secheaders.Config{}, fmt.Errorf("%s: no environment; pass one as an argument", path)
	}
	return cfg, nil
}

// toJSON converts YAML documents to JSON so both go through the same schema.
func toJSON(path string, raw []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", path, err)
		}
		return b, nil
	}
	return raw, nil
}
