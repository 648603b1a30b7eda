package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kir-gadjello/gemtutor/attachment"
)

// Author identifies who wrote a message. The model-facing role names live in
// the compose package and never leak in here.
type Author int

const (
	AuthorUser Author = iota
	AuthorAssistant
)

func (a Author) String() string {
	switch a {
	case AuthorUser:
		return "user"
	case AuthorAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// WelcomeText greets the user when a store is seeded.
const WelcomeText = "Halo! Aku Gemini AI Chatbot, asisten cerdasmu. Aku siap membantumu menjawab pertanyaan, menganalisis gambar, atau membedah dokumen dengan penjelasan yang ringkas.\n\nApa yang bisa aku bantu hari ini?"

// Message is one entry of the conversation. It is never modified after Append.
type Message struct {
	ID          string
	Author      Author
	Text        string
	Attachments []attachment.Attachment
	CreatedAt   time.Time
}

func NewUserMessage(text string, attachments []attachment.Attachment) Message {
	atts := make([]attachment.Attachment, len(attachments))
	copy(atts, attachments)
	return Message{
		Author:      AuthorUser,
		Text:        text,
		Attachments: atts,
		CreatedAt:   time.Now(),
	}
}

func NewAssistantMessage(text string) Message {
	return Message{
		Author:    AuthorAssistant,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// Store holds the ordered conversation of one session.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	ids      map[string]struct{}
}

func NewStore() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// NewStoreWithWelcome returns a store seeded with the assistant greeting.
func NewStoreWithWelcome() *Store {
	s := NewStore()
	s.Append(NewAssistantMessage(WelcomeText))
	return s
}

// Append adds msg at the end of the conversation and returns it as stored.
// A missing or already used ID is replaced by a fresh one.
func (s *Store) Append(msg Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	for {
		if _, dup := s.ids[msg.ID]; !dup {
			break
		}
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if len(msg.Attachments) > 0 {
		atts := make([]attachment.Attachment, len(msg.Attachments))
		copy(atts, msg.Attachments)
		msg.Attachments = atts
	}

	s.ids[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
	return msg
}

// Snapshot returns the messages in append order.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	for i := range out {
		if len(out[i].Attachments) > 0 {
			out[i].Attachments = append([]attachment.Attachment(nil), out[i].Attachments...)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message.
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
