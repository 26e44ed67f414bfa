package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/construehq/construe/internal/tasks"
)

// resultEnvelope is the shape of a succeeded operation document. Field
// values appear under analyzeResult.fields keyed by field name, each
// carrying a typed value or plain content plus an optional confidence.
type resultEnvelope struct {
	AnalyzeResult struct {
		Fields map[string]*fieldData `json:"fields"`
	} `json:"analyzeResult"`
}

type fieldData struct {
	Value      any      `json:"value"`
	Content    any      `json:"content"`
	Confidence *float64 `json:"confidence"`
}

// parseResult extracts the field values from a raw succeeded-operation
// document. Null fields and fields without a value are skipped.
func parseResult(raw []byte) (*ResultPayload, error) {
	var envelope resultEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode analyze result: %w", err)
	}

	var fields []tasks.Field
	for name, data := range envelope.AnalyzeResult.Fields {
		if data == nil {
			continue
		}

		value := data.Value
		if value == nil {
			value = data.Content
		}
		if value == nil {
			continue
		}

		fields = append(fields, tasks.Field{
			Name:       name,
			Value:      value,
			Confidence: data.Confidence,
		})
	}

	return &ResultPayload{Fields: fields, Raw: json.RawMessage(raw)}, nil
}
