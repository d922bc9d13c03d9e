package llm

// Type labels the models are asked to use.
const (
	labelMultipleChoice = "Multiple Choice"
	labelTrueFalse      = "True/False"
	labelFillBlank      = "Fill in the Blank"
)

func questionItemSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"stem", "options", "correct_answer_index", "explanation", "topic", "marks", "type"},
		"properties": map[string]any{
			"stem": map[string]any{
				"type":        "string",
				"description": "The question text. For 'Fill in the Blank', use '___' for the blank.",
			},
			"options": map[string]any{
				"type":        "array",
				"description": "2 to 4 possible answers.",
				"minItems":    2,
				"maxItems":    4,
				"items":       map[string]any{"type": "string"},
			},
			"correct_answer_index": map[string]any{
				"type":        "integer",
				"description": "The 0-based index of the correct answer in options.",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "A brief explanation of why the correct answer is right.",
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "The specific topic of the question.",
			},
			"marks": map[string]any{
				"type":        "integer",
				"description": "Marks for this question, typically 1 or 2.",
			},
			"type": map[string]any{
				"type": "string",
				"enum": []string{labelMultipleChoice, labelTrueFalse, labelFillBlank},
			},
		},
	}
}

// QuestionSetSchema is the response shape of every generation call: a
// non-empty list of questions wrapped in an object.
var QuestionSetSchema = &Schema{
	Name:        "question_set",
	Description: "A list of exam questions",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    questionItemSchema(),
			},
		},
	},
}
