package llm

import "context"

// PartKind distinguishes inline text from binary payloads.
type PartKind string

const (
	PartText   PartKind = "text"
	PartBinary PartKind = "binary"
)

// Part is one element of the multi-part user message, in order.
type Part struct {
	Kind     PartKind
	Text     string // PartText
	Data     string // PartBinary, base64
	MimeType string // PartBinary
	Filename string
}

// Request is a provider-neutral extraction call.
type Request struct {
	System        string
	Parts         []Part
	DocumentCount int
	// Schema is sent to providers that accept a structured-output hint.
	Schema map[string]any
}

// Generator is the extraction service: prompt plus parts in, free text out.
// Any error it returns is a transport failure.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
