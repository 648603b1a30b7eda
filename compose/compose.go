// Package compose maps a conversation onto the request shape the hosted
// model expects.
package compose

import (
	"encoding/base64"
	"fmt"

	"github.com/kir-gadjello/gemtutor/attachment"
	"github.com/kir-gadjello/gemtutor/conversation"
	"google.golang.org/genai"
)

// Role is the model-facing author vocabulary.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

var roleByAuthor = map[conversation.Author]Role{
	conversation.AuthorUser:      RoleUser,
	conversation.AuthorAssistant: RoleModel,
}

// RoleOf maps a store author to the model's role name.
func RoleOf(a conversation.Author) (Role, error) {
	r, ok := roleByAuthor[a]
	if !ok {
		return "", fmt.Errorf("no model role for author %v", a)
	}
	return r, nil
}

// Part is a unit of content: text, or inline data when MediaType is set.
type Part struct {
	Text      string
	Data      string // base64
	MediaType string
}

func (p Part) Inline() bool { return p.MediaType != "" }

type Turn struct {
	Role  Role
	Parts []Part
}

type Sampling struct {
	Temperature float32
	TopP        float32
	TopK        float32
}

// DefaultSampling is sent with every request.
var DefaultSampling = Sampling{Temperature: 0.7, TopP: 0.8, TopK: 40}

type Request struct {
	SystemInstruction string
	History           []Turn
	Current           Turn
	Sampling          Sampling
}

// Turns returns history followed by the current turn.
func (r Request) Turns() []Turn {
	out := make([]Turn, 0, len(r.History)+1)
	out = append(out, r.History...)
	return append(out, r.Current)
}

// Compose builds the request for a new user turn. history is the store
// snapshot taken before that turn was appended. Earlier attachments are not
// resent; only the text of each prior message travels.
func Compose(history []conversation.Message, text string, atts []attachment.Attachment) (Request, error) {
	req := Request{
		SystemInstruction: SystemInstruction,
		History:           make([]Turn, 0, len(history)),
		Sampling:          DefaultSampling,
	}

	for _, m := range history {
		role, err := RoleOf(m.Author)
		if err != nil {
			return Request{}, err
		}
		req.History = append(req.History, Turn{Role: role, Parts: []Part{{Text: m.Text}}})
	}

	parts := make([]Part, 0, len(atts)+1)
	parts = append(parts, Part{Text: text})
	for _, a := range atts {
		parts = append(parts, Part{Data: a.Payload, MediaType: a.MediaType})
	}
	req.Current = Turn{Role: RoleUser, Parts: parts}

	return req, nil
}

// GenAI converts the request into Gemini SDK values.
func (r Request) GenAI() ([]*genai.Content, *genai.GenerateContentConfig, error) {
	turns := r.Turns()
	contents := make([]*genai.Content, 0, len(turns))

	for i, t := range turns {
		parts := make([]*genai.Part, 0, len(t.Parts))
		for j, p := range t.Parts {
			if !p.Inline() {
				parts = append(parts, genai.NewPartFromText(p.Text))
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.Data)
			if err != nil {
				return nil, nil, fmt.Errorf("turn %d part %d: decode inline data: %w", i, j, err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, p.MediaType))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(t.Role)))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(r.Sampling.Temperature),
		TopP:        genai.Ptr(r.Sampling.TopP),
		TopK:        genai.Ptr(r.Sampling.TopK),
	}
	if r.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(r.SystemInstruction, genai.RoleUser)
	}

	return contents, config, nil
}
