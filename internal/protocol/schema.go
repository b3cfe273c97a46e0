package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	SchemaState = "state.schema.json"
	SchemaCmd   = "cmd.schema.json"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	names := []string{SchemaState, SchemaCmd}
	for _, name := range names {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("add %s: %w", name, err)
			return
		}
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := c.Compile(name)
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		out[name] = s
	}
	schemas = out
}

// Validate checks a raw JSON document against one of the embedded schemas.
func Validate(name string, raw []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &Error{Code: ErrProtoBadRequest, Message: err.Error()}
	}
	if err := s.Validate(doc); err != nil {
		return &Error{Code: ErrProtoBadRequest, Message: err.Error()}
	}
	return nil
}

func ValidateState(raw []byte) error { return Validate(SchemaState, raw) }
