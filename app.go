package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/kir-gadjello/gemtutor/attachment"
	"github.com/kir-gadjello/gemtutor/conversation"
	"github.com/kir-gadjello/gemtutor/history"
	"github.com/kir-gadjello/gemtutor/turn"
	"go.uber.org/zap"
)

// app wires one chat session together. The TUI and the one-shot runner
// both drive it.
type app struct {
	rc     RunConfig
	logger *zap.Logger
	model  turn.Model

	previews *attachment.Previews
	encoder  *attachment.Encoder
	loader   *attachment.Loader
	pending  *attachment.Pending
	index    *history.Index

	mu  sync.Mutex
	ctl *turn.Controller
}

func newApp(rc RunConfig, model turn.Model, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index, err := history.New()
	if err != nil {
		return nil, fmt.Errorf("failed to init transcript index: %w", err)
	}
	if !index.FullText() {
		logger.Info("FTS5 unavailable, transcript search falls back to substring matching")
	}

	previews := attachment.NewPreviews()
	a := &app{
		rc:       rc,
		logger:   logger,
		model:    model,
		previews: previews,
		encoder:  attachment.NewEncoder(previews, logger.Named("attachment")),
		loader:   attachment.NewLoader(rc.MaxFileSizeKB, rc.MaxImageSizeKB),
		pending:  attachment.NewPending(previews),
		index:    index,
	}
	a.ctl = a.newController()
	return a, nil
}

func (a *app) newController() *turn.Controller {
	store := conversation.NewStore()
	if a.rc.Welcome {
		store = conversation.NewStoreWithWelcome()
	}
	for _, m := range store.Snapshot() {
		if err := a.index.Add(m); err != nil {
			a.logger.Warn("index welcome", zap.Error(err))
		}
	}
	return turn.New(store, a.model,
		turn.WithLogger(a.logger.Named("turn")),
		turn.WithRecorder(a.index.Add))
}

func (a *app) controller() *turn.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctl
}

func (a *app) Close() error {
	a.pending.Clear()
	return a.index.Close()
}

// attach selects and encodes paths plus any ready-made sources into the
// pending list. Failed entries are skipped and reported.
func (a *app) attach(ctx context.Context, paths []string, extra ...attachment.Source) (int, []error) {
	srcs, errs := a.loader.SelectAll(paths)
	for _, err := range errs {
		a.logger.Warn("attachment rejected", zap.Error(err))
	}
	srcs = append(srcs, extra...)
	if len(srcs) == 0 {
		return 0, errs
	}

	added, encErrs := a.encoder.EncodeAll(ctx, srcs, a.pending)
	return added, append(errs, encErrs...)
}

// promptRefs splits @path references out of a prompt. Only references the
// loader accepts are taken; the rest stay in the text, since "@guru" is as
// likely a mention as a file.
func (a *app) promptRefs(prompt string) (string, []string) {
	return attachment.ParsePrompt(prompt, func(path string) bool {
		if _, err := a.loader.Select(path); err != nil {
			a.logger.Debug("@reference left as text", zap.String("ref", path), zap.Error(err))
			return false
		}
		return true
	})
}

// send takes the pending attachments and starts a turn with them. On
// rejection the attachments go back to the pending list.
func (a *app) send(ctx context.Context, text string) (<-chan conversation.Message, error) {
	atts := a.pending.Take()
	ch, err := a.controller().Send(ctx, text, atts)
	if err != nil {
		a.pending.Add(atts...)
		return nil, err
	}
	return ch, nil
}

// reset starts a new conversation. It refuses while a turn is in flight.
func (a *app) reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctl.Busy() {
		return turn.ErrBusy
	}
	for _, m := range a.ctl.Store().Snapshot() {
		for _, att := range m.Attachments {
			a.previews.Release(att.Preview)
		}
	}
	a.pending.Clear()
	if err := a.index.Reset(); err != nil {
		a.logger.Warn("reset transcript index", zap.Error(err))
	}
	a.ctl = a.newController()
	return nil
}
