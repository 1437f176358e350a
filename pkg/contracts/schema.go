package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed plan_request.schema.json
var planRequestSchemaJSON []byte

var planRequestSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("plan-request.json", bytes.NewReader(planRequestSchemaJSON)); err != nil {
		panic(fmt.Sprintf("contracts: add plan request schema: %v", err))
	}
	schema, err := c.Compile("plan-request.json")
	if err != nil {
		panic(fmt.Sprintf("contracts: compile plan request schema: %v", err))
	}
	return schema
}

// ValidateSchema checks the request against the embedded JSON schema.
// This catches shape problems (oversized names, wrong types in the
// extension map) that the field-level Validate does not.
func (r *PlanRequest) ValidateSchema() error {
	raw, err := json.Marshal(r)
	if err != nil {
		return &ValidationError{Field: "request", Reason: "not serializable"}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Field: "request", Reason: "not serializable"}
	}
	if err := planRequestSchema.Validate(doc); err != nil {
		return &ValidationError{Field: "request", Reason: err.Error()}
	}
	return nil
}
