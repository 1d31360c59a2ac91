package cliconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaJSON string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("config.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile("config.schema.json")
})

// validateSchema checks a parsed YAML document against the config schema.
func validateSchema(path string, doc *yaml.Node) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees JSON types.
	var raw any
	if err := doc.Decode(&raw); err != nil {
		return yamlError(path, err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return &ConfigError{Path: path, Message: err.Error()}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &ConfigError{Path: path, Message: err.Error()}
	}

	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return &ConfigError{Path: path, Message: err.Error()}
		}
		var msgs []string
		collectSchemaErrors(ve, &msgs)
		sort.Strings(msgs)
		return &ConfigError{Path: path, Message: strings.Join(msgs, "; ")}
	}
	return nil
}

// collectSchemaErrors flattens the leaf causes of a validation error.
func collectSchemaErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		loc := strings.TrimPrefix(err.InstanceLocation, "/")
		if loc == "" {
			loc = "(root)"
		}
		*msgs = append(*msgs, strings.ReplaceAll(loc, "/", ".")+": "+err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, msgs)
	}
}
