package record

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFiles embed.FS

const schemaBase = "https://blackjack.lox.dev/schemas/"

// Validator checks stored documents against the embedded JSON schemas and
// decodes them into Rounds.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}

	// Register everything before compiling so relative refs resolve.
	var names []string
	for _, entry := range entries {
		data, err := schemaFiles.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaBase+entry.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", entry.Name(), err)
		}
		names = append(names, entry.Name())
	}

	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		schema, err := compiler.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		schemas[strings.TrimSuffix(name, ".json")] = schema
	}
	return &Validator{schemas: schemas}, nil
}

// Validate checks data against a named schema such as "outcomes.v2".
func (v *Validator) Validate(name string, data []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema not found: %s", name)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// Decode validates and decodes a stored round. Rounds that were never
// settled return ErrIncomplete; anything that fails validation returns a
// *MalformedError.
func (v *Validator) Decode(raw Raw) (Round, error) {
	if empty(raw.Outcomes) {
		return Round{}, fmt.Errorf("round %s: %w", raw.ID, ErrIncomplete)
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw.Outcomes, &probe); err != nil {
		return Round{}, &MalformedError{ID: raw.ID, Err: fmt.Errorf("outcomes: %w", err)}
	}
	version := Version1
	if probe.Version != nil {
		version = *probe.Version
	}

	r := Round{
		Version:   version,
		ID:        raw.ID,
		UserID:    raw.UserID,
		Seed:      raw.Seed,
		StartedAt: raw.StartedAt,
	}
	if raw.EndedAt != nil {
		r.EndedAt = *raw.EndedAt
	}

	var err error
	switch version {
	case Version2:
		err = v.decodeV2(raw, &r)
	case Version1:
		err = v.decodeV1(raw, &r)
	default:
		err = fmt.Errorf("unknown record version %d", version)
	}
	if err != nil {
		return Round{}, &MalformedError{ID: raw.ID, Err: err}
	}
	return r, nil
}

func (v *Validator) decodeV2(raw Raw, r *Round) error {
	if err := v.Validate("outcomes.v2", raw.Outcomes); err != nil {
		return fmt.Errorf("outcomes: %w", err)
	}
	var out Outcomes
	if err := json.Unmarshal(raw.Outcomes, &out); err != nil {
		return fmt.Errorf("outcomes: %w", err)
	}
	r.Hands = out.Hands
	r.Dealer = out.Dealer

	if empty(raw.Actions) {
		return nil
	}
	if err := v.Validate("actions.v2", raw.Actions); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	if err := json.Unmarshal(raw.Actions, &r.Actions); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	for _, a := range r.Actions {
		if a.HandIndex >= len(r.Hands) {
			return fmt.Errorf("actions: hand index %d out of range", a.HandIndex)
		}
	}
	return nil
}

func (v *Validator) decodeV1(raw Raw, r *Round) error {
	if err := v.Validate("outcomes.v1", raw.Outcomes); err != nil {
		return fmt.Errorf("outcomes: %w", err)
	}
	var legacy legacyOutcomes
	if err := json.Unmarshal(raw.Outcomes, &legacy); err != nil {
		return fmt.Errorf("outcomes: %w", err)
	}
	r.Hands = []Hand{legacy.hand()}
	r.Dealer = legacy.DealerHand

	if empty(raw.Actions) {
		return nil
	}
	if err := v.Validate("actions.v1", raw.Actions); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	var actions []legacyAction
	if err := json.Unmarshal(raw.Actions, &actions); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	for _, a := range actions {
		r.Actions = append(r.Actions, a.action())
	}
	return nil
}

func empty(doc json.RawMessage) bool {
	switch string(bytes.TrimSpace(doc)) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
