package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{"valid set", string(questionJSON(mcqJSON("q?", "t"))), true},
		{"not json", `{"questions": [`, false},
		{"missing wrapper", `[{"stem":"s"}]`, false},
		{"empty list", `{"questions":[]}`, false},
		{"unknown type label", `{"questions":[{"stem":"s","options":["a","b"],"correct_answer_index":0,"explanation":"e","topic":"t","marks":1,"type":"Essay"}]}`, false},
		{"too many options", `{"questions":[{"stem":"s","options":["a","b","c","d","e"],"correct_answer_index":0,"explanation":"e","topic":"t","marks":1,"type":"Multiple Choice"}]}`, false},
		{"extra field", `{"questions":[{"stem":"s","options":["a","b"],"correct_answer_index":0,"explanation":"e","topic":"t","marks":1,"type":"True/False","hint":"x"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(QuestionSetSchema, json.RawMessage(tt.content))
			if tt.valid {
				require.NoError(t, err)
				return
			}
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
		})
	}
}

func TestValidateResponseWithoutSchema(t *testing.T) {
	assert.NoError(t, validateResponse(nil, json.RawMessage(`not json at all`)))
}
