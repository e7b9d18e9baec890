package llm

import "strings"

const (
	RoleSystem = "system"
	RoleUser   = "user"

	PartText     = "text"
	PartImageURL = "image_url"
)

// ErrorPrefix starts every result string produced from a failed model call.
const ErrorPrefix = "An error occurred: "

type Part struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Message is one chat turn. Content is used for plain-text turns, Parts for multimodal ones.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// Text returns Content or the concatenated text parts.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Images returns the image URLs of the turn in order.
func (m Message) Images() []string {
	var out []string
	for _, p := range m.Parts {
		if p.Type == PartImageURL {
			out = append(out, p.ImageURL)
		}
	}
	return out
}

type Request struct {
	Messages []Message `json:"messages"`
}

// Outcome keeps model success and failure apart internally while Result renders
// both into the one string users see and storage keeps.
type Outcome struct {
	Text string
	Err  error
}

func (o Outcome) OK() bool { return o.Err == nil }

func (o Outcome) Result() string {
	if o.Err != nil {
		return ErrorPrefix + o.Err.Error()
	}
	return o.Text
}
