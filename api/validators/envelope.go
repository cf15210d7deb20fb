package validators

import (
	"bytes"
	_ "embed"
	"fmt"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const trackEventSchemaURL = "https://rentalcrm.local/schemas/track_event.json"

//go:embed schemas/track_event.json
var trackEventSchema []byte

var envelopeSchema = mustCompileSchema(trackEventSchemaURL, trackEventSchema)

func mustCompileSchema(url string, raw []byte) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse schema %s: %v", url, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", url, err))
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", url, err))
	}
	return schema
}

// ValidateTrackEnvelope checks the raw tracking body against the envelope schema
// before it is decoded or published.
func ValidateTrackEnvelope(body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid json").WithDetails(map[string]any{"error": err.Error()})
	}
	if err := envelopeSchema.Validate(inst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event envelope").WithDetails(map[string]any{"error": err.Error()})
	}
	return nil
}
