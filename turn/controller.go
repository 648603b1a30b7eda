// Package turn runs one request cycle at a time: it records the user's turn,
// calls the model and records exactly one reply.
package turn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kir-gadjello/gemtutor/attachment"
	"github.com/kir-gadjello/gemtutor/compose"
	"github.com/kir-gadjello/gemtutor/conversation"
	"go.uber.org/zap"
)

const (
	// ConnectionErrorReply replaces the answer when the model call fails.
	ConnectionErrorReply = "Waduh, sepertinya ada gangguan koneksi. Coba lagi sebentar ya!"
	// FallbackReply replaces an empty answer.
	FallbackReply = "Maaf, aku mengalami kendala teknis saat memproses jawaban. Bisa kamu ulangi pertanyaannya?"
)

var (
	ErrBusy      = errors.New("a turn is already in flight")
	ErrEmptyTurn = errors.New("nothing to send")
)

// Model is the hosted model as seen by the controller.
type Model interface {
	Generate(ctx context.Context, req compose.Request) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req compose.Request) (string, error)

func (f ModelFunc) Generate(ctx context.Context, req compose.Request) (string, error) {
	return f(ctx, req)
}

// Recorder observes every message appended to the store.
type Recorder func(conversation.Message) error

type State int

const (
	Idle State = iota
	Sending
)

func (s State) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

type Controller struct {
	store    *conversation.Store
	model    Model
	logger   *zap.Logger
	recorder Recorder
	busy     atomic.Bool
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func New(store *conversation.Store, model Model, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		model:  model,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Store() *conversation.Store { return c.store }

// Busy reports whether a turn is outstanding. UIs gate input on it.
func (c *Controller) Busy() bool { return c.busy.Load() }

func (c *Controller) State() State {
	if c.Busy() {
		return Sending
	}
	return Idle
}

// Send starts a turn. The user message is in the store when Send returns;
// the assistant reply arrives on the channel, which is then closed.
// A rejected send changes nothing.
func (c *Controller) Send(ctx context.Context, text string, atts []attachment.Attachment) (<-chan conversation.Message, error) {
	if strings.TrimSpace(text) == "" && len(atts) == 0 {
		return nil, ErrEmptyTurn
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	history := c.store.Snapshot()
	user := c.append(conversation.NewUserMessage(text, atts))
	c.logger.Debug("turn started",
		zap.String("id", user.ID),
		zap.Int("history", len(history)),
		zap.Int("attachments", len(atts)))

	out := make(chan conversation.Message, 1)
	go func() {
		defer close(out)

		reply := c.call(ctx, history, text, atts)
		stored := c.append(conversation.NewAssistantMessage(reply))
		// Idle before delivery, so a receiver may send again at once.
		c.busy.Store(false)
		out <- stored
	}()
	return out, nil
}

// Submit runs a whole turn and returns the assistant reply.
func (c *Controller) Submit(ctx context.Context, text string, atts []attachment.Attachment) (conversation.Message, error) {
	ch, err := c.Send(ctx, text, atts)
	if err != nil {
		return conversation.Message{}, err
	}
	return <-ch, nil
}

func (c *Controller) call(ctx context.Context, history []conversation.Message, text string, atts []attachment.Attachment) string {
	start := time.Now()

	req, err := compose.Compose(history, text, atts)
	if err != nil {
		c.logger.Error("compose request", zap.Error(err))
		return ConnectionErrorReply
	}

	answer, err := c.model.Generate(ctx, req)
	if err != nil {
		c.logger.Error("model call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return ConnectionErrorReply
	}
	if strings.TrimSpace(answer) == "" {
		c.logger.Warn("model returned an empty answer", zap.Duration("elapsed", time.Since(start)))
		return FallbackReply
	}

	c.logger.Debug("turn finished", zap.Int("chars", len(answer)), zap.Duration("elapsed", time.Since(start)))
	return answer
}

func (c *Controller) append(msg conversation.Message) conversation.Message {
	stored := c.store.Append(msg)
	if c.recorder != nil {
		if err := c.recorder(stored); err != nil {
			c.logger.Warn("recorder failed", zap.String("id", stored.ID), zap.Error(err))
		}
	}
	return stored
}
