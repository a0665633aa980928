package core

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaValidation = "validation.json"
	schemaResearch   = "research.json"
	schemaStructure  = "structure.json"
)

var (
	compileOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled := make(map[string]*jsonschema.Schema, 3)
		for _, name := range []string{schemaValidation, schemaResearch, schemaStructure} {
			raw, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			compiler := jsonschema.NewCompiler()
			if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", name, err)
				return
			}
			schema, err := compiler.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = schema
		}
		schemas = compiled
	})
	return schemas, compileErr
}

var (
	errNotJSON       = errors.New("completion does not contain a JSON object")
	errSchemaFailure = errors.New("payload does not match schema")
)

// decodePayload pulls the JSON object out of a completion, checks it against
// the named schema and decodes it into out. The returned kind tells the caller
// which step failed.
func decodePayload(completion, schemaName string, out any) (ErrorKind, error) {
	payload := ExtractJSON(completion)

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return KindPayloadParse, fmt.Errorf("%w: %v", errNotJSON, err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return KindPayloadParse, fmt.Errorf("%w: top-level value is %T", errNotJSON, doc)
	}

	compiled, err := compileSchemas()
	if err != nil {
		return KindSchema, err
	}
	if err := compiled[schemaName].Validate(doc); err != nil {
		return KindSchema, fmt.Errorf("%w: %v", errSchemaFailure, err)
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return KindPayloadParse, fmt.Errorf("decode payload: %w", err)
	}
	return "", nil
}
