package advisor

import "context"

// Generator is the generative AI collaborator.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: errors carrying an HTTP status should implement
//     coordinator.StatusCoder so rate limits are recognised.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// Part is one piece of prompt content.
type Part struct {
	Text string

	// InlineData holds base64 encoded media, such as a crop photo.
	InlineData *Blob
}

// Blob is inline base64 media.
type Blob struct {
	MIMEType string
	Data     string
}

// TextPart returns a text Part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// GenerateRequest is one content generation call.
type GenerateRequest struct {
	// Model overrides the client's default model.
	Model string

	Parts []Part

	// GoogleSearch enables search grounding.
	GoogleSearch bool

	// ResponseMIMEType requests structured output, e.g. "application/json".
	ResponseMIMEType string

	// Voice requests an audio response spoken by the named prebuilt voice.
	Voice string
}

// GenerateResponse is the first candidate of a generation call.
type GenerateResponse struct {
	Text    string
	Sources []Source

	// Audio is the base64 audio payload of a speech response.
	Audio         string
	AudioMIMEType string
}

// Source is a web page that grounded a response.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}
