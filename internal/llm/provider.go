// Package llm talks to generative models that draft exam questions. Every
// provider returns JSON which is schema-checked here and validated by the
// catalog before anything is stored.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one structured completion.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// ModelID returns the model the provider sends requests to.
	ModelID() string
}

// Request is a single-turn generation request.
type Request struct {
	System string
	Prompt string
	// Document is an optional source the model should work from.
	Document *Document
	// Schema, when set, constrains the response to JSON of this shape.
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Document is an uploaded source file, typically a PDF.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// IsText reports whether the document can be inlined as plain text.
func (d *Document) IsText() bool {
	switch d.MIMEType {
	case "text/plain", "text/markdown", "text/csv", "application/json":
		return true
	}
	return false
}

// Schema names a JSON Schema definition.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output.
type Response struct {
	Content      json.RawMessage
	Model        string
	InputTokens  int
	OutputTokens int
}
