package classifier

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed patterns.schema.json
var patternSchemaJSON []byte

const patternSchemaURL = "https://sentryd.dev/schema/pattern-library-v1.schema.json"

// ConfigError reports a pattern library file that failed validation.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pattern library %s: %s", e.Path, e.Reason)
}

// patternFile is the on-disk wrapper document.
type patternFile struct {
	Patterns []Pattern `json:"patterns"`
}

// LoadPatterns reads a pattern library from a JSON file, validates it
// against the embedded schema, and returns the parsed patterns. The
// builtin library is not implied: the file fully replaces it.
func LoadPatterns(path string) ([]Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern library: %w", err)
	}
	patterns, err := ParsePatterns(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}
	return patterns, nil
}

// ParsePatterns validates and decodes a pattern library document.
func ParsePatterns(data []byte) ([]Pattern, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	schema, err := compilePatternSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var file patternFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Patterns, nil
}

func compilePatternSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(patternSchemaURL, bytes.NewReader(patternSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(patternSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
