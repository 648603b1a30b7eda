package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kind tells the UI how to present an attachment.
type Kind int

const (
	KindImage Kind = iota
	KindDocument
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "document"
}

// KindOf classifies a media type.
func KindOf(mediaType string) Kind {
	if strings.HasPrefix(mediaType, "image/") {
		return KindImage
	}
	return KindDocument
}

var (
	ErrTooLarge        = errors.New("attachment too large")
	ErrUnsupportedType = errors.New("unsupported attachment type")
)

// Attachment is an encoded file ready to be sent with a turn.
type Attachment struct {
	Kind      Kind
	Payload   string // standard base64
	MediaType string
	Name      string
	Preview   Handle
}

// Size returns the decoded payload size in bytes.
func (a Attachment) Size() int {
	return base64.StdEncoding.DecodedLen(len(a.Payload))
}

// Source is anything that can hand over a named, typed payload.
type Source interface {
	Name() string
	MediaType() string
	Open() (io.ReadCloser, error)
}

// Encoder turns sources into attachments.
type Encoder struct {
	previews *Previews
	logger   *zap.Logger
}

func NewEncoder(previews *Previews, logger *zap.Logger) *Encoder {
	if previews == nil {
		previews = NewPreviews()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{previews: previews, logger: logger}
}

// Previews returns the registry preview handles are issued from.
func (e *Encoder) Previews() *Previews {
	return e.previews
}

// Encode reads the whole payload of src and encodes it.
func (e *Encoder) Encode(ctx context.Context, src Source) (Attachment, error) {
	if err := ctx.Err(); err != nil {
		return Attachment{}, err
	}

	rc, err := src.Open()
	if err != nil {
		return Attachment{}, fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Attachment{}, fmt.Errorf("read %s: %w", src.Name(), err)
	}

	mediaType := src.MediaType()
	if mediaType == "" {
		mediaType = sniffMediaType(src.Name(), data)
	}

	return Attachment{
		Kind:      KindOf(mediaType),
		Payload:   base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType,
		Name:      src.Name(),
		Preview:   e.previews.Register(data, mediaType),
	}, nil
}

// EncodeAll encodes every source concurrently and appends the successful
// results to pending in submission order, as one batch. A source that fails
// is skipped; its error is logged and returned.
func (e *Encoder) EncodeAll(ctx context.Context, srcs []Source, pending *Pending) (int, []error) {
	results := make([]Attachment, len(srcs))
	errs := make([]error, len(srcs))

	var g errgroup.Group
	for i, src := range srcs {
		g.Go(func() error {
			att, err := e.Encode(ctx, src)
			if err != nil {
				e.logger.Warn("attachment skipped", zap.String("name", src.Name()), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = att
			return nil
		})
	}
	_ = g.Wait()

	added := make([]Attachment, 0, len(srcs))
	var failed []error
	for i := range srcs {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		added = append(added, results[i])
	}
	pending.Add(added...)

	e.logger.Debug("attachments encoded", zap.Int("added", len(added)), zap.Int("failed", len(failed)))
	return len(added), failed
}
