// internal/intent/schema.go
package intent

import "github.com/xeipuuv/gojsonschema"

// intentSchema is deliberately tolerant: the model sometimes omits optional
// fields or returns page as a quoted number, and the gateway repairs those.
// Only the shape that would break retrieval is rejected outright.
const intentSchema = `{
	"type": "object",
	"required": ["type", "ai_reply"],
	"properties": {
		"type": {
			"type": "string",
			"enum": ["search_product", "search_category", "conversation"]
		},
		"term": {"type": ["string", "null"]},
		"tag": {"type": ["string", "null"]},
		"price_min": {"type": ["number", "null"]},
		"price_max": {"type": ["number", "null"]},
		"price_exact": {"type": ["number", "null"]},
		"price_min_exclusive": {"type": ["boolean", "null"]},
		"price_max_exclusive": {"type": ["boolean", "null"]},
		"page": {"type": ["integer", "string", "null"]},
		"sort": {
			"anyOf": [
				{"type": "null"},
				{"type": "string", "enum": ["price_asc", "price_desc", ""]}
			]
		},
		"ai_reply": {"type": "string"},
		"is_category_list": {"type": ["boolean", "null"]}
	}
}`

var intentSchemaLoader = gojsonschema.NewStringLoader(intentSchema)

func validateIntentJSON(raw string) error {
	result, err := gojsonschema.Validate(intentSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return err
	}
	if !result.Valid() {
		return &schemaError{errors: result.Errors()}
	}
	return nil
}

type schemaError struct {
	errors []gojsonschema.ResultError
}

func (e *schemaError) Error() string {
	if len(e.errors) == 0 {
		return "intent does not match schema"
	}
	return "intent does not match schema: " + e.errors[0].String()
}
