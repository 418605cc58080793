package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Response schemas for structured model output. Models add fields freely, so
// only the fields the application reads are constrained.
var (
	placeSchema = mustSchema(`{
		"type": "object",
		"required": ["short", "full", "district", "state"],
		"properties": {
			"short":    {"type": "string"},
			"full":     {"type": "string"},
			"district": {"type": "string"},
			"state":    {"type": "string"}
		}
	}`)

	droneServicesSchema = mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name":    {"type": "string", "minLength": 1},
				"contact": {"type": ["string", "number", "null"]},
				"type":    {"type": ["string", "null"]},
				"address": {"type": ["string", "null"]}
			}
		}
	}`)

	diagnosisSchema = mustSchema(`{
		"type": "object",
		"required": ["problemName", "diagnosis"],
		"properties": {
			"problemName":        {"type": "string"},
			"diagnosis":          {"type": "string"},
			"solutionOrganic":    {"type": ["string", "array"]},
			"solutionChemical":   {"type": ["string", "array"]},
			"estimatedCostRange": {"type": ["string", "number"]},
			"preventionTips":     {"type": ["string", "array"]}
		}
	}`)

	expenseSchema = mustSchema(`{
		"type": "object",
		"required": ["amount"],
		"properties": {
			"amount":      {"type": ["number", "string"]},
			"category":    {"type": "string"},
			"description": {"type": "string"}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("advisor: invalid schema: %v", err))
	}
	return s
}

// decodeValidated validates doc against schema and decodes it into dst.
func decodeValidated(schema *gojsonschema.Schema, doc string, dst any) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(errs, "; "))
	}
	if err := json.Unmarshal([]byte(doc), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// extractJSON returns the outermost span of text delimited by openCh and
// closeCh, or "" if there is none. Models often wrap JSON in prose or fences.
func extractJSON(text string, openCh, closeCh byte) string {
	start := strings.IndexByte(text, openCh)
	end := strings.LastIndexByte(text, closeCh)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// textList decodes a JSON string or array of strings.
type textList []string

func (l *textList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = textList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// flexString decodes a JSON string or number as a string.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}
