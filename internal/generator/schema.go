package generator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed fact_batch.schema.json
var factBatchSchemaJSON string

type batchItem struct {
	Topic      string `json:"topic"`
	Content    string `json:"content"`
	SourceName string `json:"source_name,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// validateBatch checks a raw model response against the batch schema and
// returns the decoded items. A malformed batch is rejected whole; partial
// salvage is not worth serving half-validated content.
func validateBatch(payload []byte) ([]batchItem, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode batch JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize batch JSON: %w", err)
	}

	var items []batchItem
	if err := json.Unmarshal(normalized, &items); err != nil {
		return nil, fmt.Errorf("unmarshal batch: %w", err)
	}

	for i, item := range items {
		if strings.TrimSpace(item.Topic) == "" {
			return nil, fmt.Errorf("items[%d].topic must not be blank", i)
		}
		if strings.TrimSpace(item.Content) == "" {
			return nil, fmt.Errorf("items[%d].content must not be blank", i)
		}
	}
	return items, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("fact_batch.schema.json", strings.NewReader(factBatchSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("fact_batch.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("batch contains trailing content")
	}
	return value, nil
}
