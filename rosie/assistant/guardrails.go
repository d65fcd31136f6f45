package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Guardrails decides which requested actions may run.
type Guardrails struct {
	allowlist map[ActionType]bool // empty means every action is allowed
}

// NewGuardrails builds guardrails from the configured allowlist.
func NewGuardrails(allowed []string) *Guardrails {
	g := &Guardrails{allowlist: make(map[ActionType]bool)}
	for _, name := range allowed {
		name = strings.TrimSpace(name)
		if name != "" {
			g.allowlist[ActionType(name)] = true
		}
	}
	return g
}

// Allowed reports whether the action type may be executed.
func (g *Guardrails) Allowed(t ActionType) bool {
	if g == nil || len(g.allowlist) == 0 {
		return true
	}
	return g.allowlist[t]
}

// DisabledResult is the informational result recorded for a blocked action.
func DisabledResult(t ActionType) string {
	return fmt.Sprintf("Action %s is disabled by configuration", t)
}

// JSONValidator checks documents against a compiled JSON schema.
type JSONValidator struct {
	schema *gojsonschema.Schema
}

// NewJSONValidator compiles schema once for repeated use.
func NewJSONValidator(schema string) (*JSONValidator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &JSONValidator{schema: compiled}, nil
}

// Validate checks that data is JSON and conforms to the schema.
func (v *JSONValidator) Validate(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("data is not valid JSON")
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(problems, "; "))
	}

	return nil
}
