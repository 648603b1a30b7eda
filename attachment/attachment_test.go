package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedSource blocks in Open until release is closed, so tests can choose
// the order in which concurrent encodes complete.
type gatedSource struct {
	name      string
	mediaType string
	data      []byte
	release   chan struct{}
}

func (g *gatedSource) Name() string      { return g.name }
func (g *gatedSource) MediaType() string { return g.mediaType }
func (g *gatedSource) Open() (io.ReadCloser, error) {
	<-g.release
	return NewBytesSource(g.name, g.mediaType, g.data).Open()
}

type brokenSource struct{ name string }

func (b brokenSource) Name() string      { return b.name }
func (b brokenSource) MediaType() string { return "image/png" }
func (b brokenSource) Open() (io.ReadCloser, error) {
	return nil, errors.New("permission denied")
}

func TestEncode(t *testing.T) {
	enc := NewEncoder(nil, nil)

	t.Run("image", func(t *testing.T) {
		att, err := enc.Encode(context.Background(), NewBytesSource("cat.png", "image/png", []byte("PNGDATA")))
		require.NoError(t, err)
		assert.Equal(t, KindImage, att.Kind)
		assert.Equal(t, "image/png", att.MediaType)
		assert.Equal(t, "cat.png", att.Name)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("PNGDATA")), att.Payload)

		data, mt, err := enc.Previews().Lookup(att.Preview)
		require.NoError(t, err)
		assert.Equal(t, []byte("PNGDATA"), data)
		assert.Equal(t, "image/png", mt)
	})

	t.Run("document", func(t *testing.T) {
		att, err := enc.Encode(context.Background(), NewBytesSource("notes.pdf", "application/pdf", []byte("%PDF-1.4")))
		require.NoError(t, err)
		assert.Equal(t, KindDocument, att.Kind)
	})

	t.Run("missing media type is sniffed", func(t *testing.T) {
		att, err := enc.Encode(context.Background(), NewBytesSource("readme.txt", "", []byte("hello")))
		require.NoError(t, err)
		assert.Equal(t, "text/plain", att.MediaType)
		assert.Equal(t, KindDocument, att.Kind)
	})

	t.Run("unreadable source", func(t *testing.T) {
		_, err := enc.Encode(context.Background(), brokenSource{name: "x.png"})
		require.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := enc.Encode(ctx, NewBytesSource("a.png", "image/png", []byte("a")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEncodeAll_ConcurrentImagesBothLand(t *testing.T) {
	previews := NewPreviews()
	enc := NewEncoder(previews, nil)
	pending := NewPending(previews)

	first := &gatedSource{name: "first.png", mediaType: "image/png", data: []byte("1"), release: make(chan struct{})}
	second := &gatedSource{name: "second.png", mediaType: "image/png", data: []byte("2"), release: make(chan struct{})}

	done := make(chan struct{})
	go func() {
		defer close(done)
		added, errs := enc.EncodeAll(context.Background(), []Source{first, second}, pending)
		assert.Equal(t, 2, added)
		assert.Empty(t, errs)
	}()

	// Finish the second one first.
	close(second.release)
	time.Sleep(10 * time.Millisecond)
	close(first.release)
	<-done

	got := pending.List()
	require.Len(t, got, 2)
	assert.Equal(t, "first.png", got[0].Name)
	assert.Equal(t, "second.png", got[1].Name)
	assert.NotEqual(t, got[0].Preview, got[1].Preview)
}

func TestEncodeAll_FailureSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	previews := NewPreviews()
	enc := NewEncoder(previews, zap.New(core))
	pending := NewPending(previews)

	srcs := []Source{
		NewBytesSource("ok.png", "image/png", []byte("ok")),
		brokenSource{name: "broken.png"},
		NewBytesSource("notes.txt", "text/plain", []byte("notes")),
	}

	added, errs := enc.EncodeAll(context.Background(), srcs, pending)
	assert.Equal(t, 2, added)
	require.Len(t, errs, 1)

	names := []string{}
	for _, att := range pending.List() {
		names = append(names, att.Name)
	}
	assert.Equal(t, []string{"ok.png", "notes.txt"}, names)
	assert.Equal(t, 1, logs.FilterMessage("attachment skipped").Len())
}

func TestEncodeAll_ParallelSelections(t *testing.T) {
	previews := NewPreviews()
	enc := NewEncoder(previews, nil)
	pending := NewPending(previews)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enc.EncodeAll(context.Background(), []Source{
				NewBytesSource("a.png", "image/png", []byte("a")),
				NewBytesSource("b.png", "image/png", []byte("b")),
			}, pending)
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, pending.Len())
}

func TestPending(t *testing.T) {
	previews := NewPreviews()
	pending := NewPending(previews)

	a := Attachment{Name: "a", Preview: previews.Register([]byte("a"), "image/png")}
	b := Attachment{Name: "b", Preview: previews.Register([]byte("b"), "image/png")}
	pending.Add(a, b)

	removed, ok := pending.Remove(0)
	require.True(t, ok)
	assert.Equal(t, "a", removed.Name)
	_, _, err := previews.Lookup(a.Preview)
	assert.ErrorIs(t, err, ErrReleased)

	_, ok = pending.Remove(5)
	assert.False(t, ok)

	taken := pending.Take()
	require.Len(t, taken, 1)
	assert.Equal(t, 0, pending.Len())
	_, _, err = previews.Lookup(b.Preview)
	assert.NoError(t, err, "taken attachments keep their previews")

	c := Attachment{Name: "c", Preview: previews.Register([]byte("c"), "text/plain")}
	pending.Add(c)
	pending.Clear()
	_, _, err = previews.Lookup(c.Preview)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestLoaderSelect(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o644))
		return p
	}

	png := write("pic.png", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	txt := write("notes.txt", []byte("some notes"))
	pdf := write("doc.pdf", []byte("%PDF-1.4 hello"))
	bin := write("tool.exe", []byte{0x4d, 0x5a, 0x00, 0x01})
	big := write("big.txt", bytes.Repeat([]byte("a"), 3*1024))

	l := NewLoader(2, 1)

	src, err := l.Select(png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", src.MediaType())
	assert.Equal(t, "pic.png", src.Name())

	src, err = l.Select(txt)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", src.MediaType())

	src, err = l.Select(pdf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", src.MediaType())

	_, err = l.Select(bin)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = l.Select(big)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = l.Select(dir)
	assert.Error(t, err)

	srcs, errs := l.SelectAll([]string{png, png, bin, txt})
	assert.Len(t, srcs, 2)
	assert.Len(t, errs, 1)
}

func TestParsePrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		cleaned string
		paths   []string
	}{
		{"no tokens", "jelaskan fotosintesis", "jelaskan fotosintesis", nil},
		{"single", "apa ini @foto.png", "apa ini", []string{"foto.png"}},
		{"multiple", "@a.png bandingkan dengan @docs/b.pdf ya", "bandingkan dengan ya", []string{"a.png", "docs/b.pdf"}},
		{"email is not a path", "kirim ke budi@example.com", "kirim ke budi@example.com", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cleaned, paths := ParsePrompt(tc.input, nil)
			assert.Equal(t, tc.cleaned, cleaned)
			assert.Equal(t, tc.paths, paths)
		})
	}
}

func TestParsePrompt_RejectedTokensStay(t *testing.T) {
	onlyPNG := func(p string) bool { return strings.HasSuffix(p, ".png") }

	cleaned, paths := ParsePrompt("tanya @guru tentang @sel.png ya", onlyPNG)
	assert.Equal(t, "tanya @guru tentang ya", cleaned)
	assert.Equal(t, []string{"sel.png"}, paths)

	cleaned, paths = ParsePrompt("tanya  @guru", onlyPNG)
	assert.Equal(t, "tanya  @guru", cleaned, "nothing accepted leaves the input untouched")
	assert.Nil(t, paths)
}
