package secheaders

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed config.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func configSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// DocumentError lists the structural problems found in a config document.
type DocumentError struct {
	Problems []string
}

func (e *DocumentError) Error() string {
	return ErrInvalidDocument.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *DocumentError) Is(target error) bool { return target == ErrInvalidDocument }

// CheckDocument validates raw JSON against the config schema: known
// environment, directive and feature names, frame action and a non-negative
// integer HSTS max-age. It does not look for insecure values; see Validate.
func CheckDocument(raw []byte) error {
	s, err := configSchema()
	if err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &DocumentError{Problems: []string{err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return &DocumentError{Problems: problems}
}

// DecodeDocument checks raw against the schema and decodes it.
func DecodeDocument(raw []byte) (Config, error) {
	if err := CheckDocument(raw); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, &DocumentError{Problems: []string{err.Error()}}
	}
	return cfg, nil
}
