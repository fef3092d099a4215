package config

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Schema checks the types of keys that are present. Required keys are not
// enforced here: a missing key is reported by the getter that needs it.
const Schema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"WEB": {
			"type": "object",
			"properties": {
				"urls": {
					"type": "object",
					"additionalProperties": {"type": "string"}
				},
				"browser": {"type": "string"},
				"headless": {"type": "boolean"},
				"driver_paths": {
					"type": "object",
					"additionalProperties": {"type": "string"}
				},
				"arguments": {
					"type": "array",
					"items": {"type": "string"}
				}
			}
		},
		"MOBILE": {
			"type": "object",
			"properties": {
				"appium_server": {"type": "string"},
				"desired_capabilities": {"type": "object"}
			}
		}
	}
}`

func validate(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(Schema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("- %s\n", desc)
		}
		return fmt.Errorf("schema validation failed:\n%s", errMsg)
	}
	return nil
}
