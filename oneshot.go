package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kir-gadjello/gemtutor/attachment"
	"github.com/kir-gadjello/gemtutor/render"
	"github.com/kir-gadjello/gemtutor/turn"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const (
	stdinName      = "stdin.txt"
	previewRows    = 320
	fallbackWidth  = 80
	widthMargin    = 2
	minRenderWidth = 20
)

func is_interactive(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// terminalWidth picks the render width: explicit setting, then the
// terminal size, then a fixed fallback.
func terminalWidth(configured int, fd uintptr) int {
	if configured > 0 {
		return configured
	}
	if w, _, err := term.GetSize(int(fd)); err == nil && w > minRenderWidth {
		return w - widthMargin
	}
	return fallbackWidth
}

// readPiped returns stdin as a text attachment source when something was
// piped in.
func readPiped(stdin io.Reader) (attachment.Source, error) {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	return attachment.NewBytesSource(stdinName, "text/plain", data), nil
}

type onceIO struct {
	stdin    io.Reader
	piped    bool
	out      io.Writer
	errOut   io.Writer
	width    int
	styled   bool
	previews bool
}

// runOnce sends one turn built from the prompt, --files, @path references
// and piped stdin, then prints the rendered answer.
func runOnce(ctx context.Context, a *app, prompt string, rio onceIO) error {
	text, refs := a.promptRefs(prompt)
	paths := append(append([]string{}, a.rc.Files...), refs...)

	var extra []attachment.Source
	if rio.piped {
		src, err := readPiped(rio.stdin)
		if err != nil {
			return err
		}
		if src != nil {
			extra = append(extra, src)
		}
	}

	_, errs := a.attach(ctx, paths, extra...)
	for _, err := range errs {
		fmt.Fprintf(rio.errOut, "Warning: skipped attachment: %v\n", err)
	}

	if rio.previews {
		for _, att := range a.pending.List() {
			if att.Kind != attachment.KindImage {
				continue
			}
			data, _, err := a.previews.Lookup(att.Preview)
			if err == nil {
				err = writeInlineImage(rio.out, att.Name, data, previewRows)
			}
			if err != nil {
				a.logger.Debug("preview failed", zap.String("name", att.Name), zap.Error(err))
			}
		}
	}

	ch, err := a.send(ctx, text)
	if errors.Is(err, turn.ErrEmptyTurn) {
		return fmt.Errorf("nothing to send: give a prompt, --files or pipe something in")
	}
	if err != nil {
		return err
	}
	reply := <-ch

	theme := render.PlainTheme()
	if rio.styled {
		theme = render.DefaultTheme()
	}
	_, err = fmt.Fprintln(rio.out, theme.Text(reply.Text, rio.width))
	return err
}

func defaultOnceIO(rc RunConfig) onceIO {
	outTTY := is_interactive(os.Stdout.Fd())
	return onceIO{
		stdin:    os.Stdin,
		piped:    !is_interactive(os.Stdin.Fd()),
		out:      os.Stdout,
		errOut:   os.Stderr,
		width:    terminalWidth(rc.Width, os.Stdout.Fd()),
		styled:   outTTY,
		previews: rc.Preview && outTTY && inlineImagesSupported(),
	}
}
