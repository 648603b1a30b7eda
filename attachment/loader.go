package attachment

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Accepts reports whether mediaType is one the file picker offers:
// images, PDF and plain text.
func Accepts(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") ||
		mediaType == "application/pdf" ||
		mediaType == "text/plain"
}

// sniffMediaType guesses a media type from the extension first and the
// content second, dropping parameters such as charset.
func sniffMediaType(name string, head []byte) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mt == "" {
		mt = http.DetectContentType(head)
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return mt
}

// FileSource is a file on disk whose type and size were checked when it was
// selected. The payload itself is read later, by the encoder.
type FileSource struct {
	path      string
	mediaType string
	size      int64
}

func (f *FileSource) Name() string      { return filepath.Base(f.path) }
func (f *FileSource) MediaType() string { return f.mediaType }
func (f *FileSource) Path() string      { return f.path }
func (f *FileSource) Size() int64       { return f.size }

func (f *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// BytesSource is an in-memory payload, e.g. piped stdin.
type BytesSource struct {
	name      string
	mediaType string
	data      []byte
}

func NewBytesSource(name, mediaType string, data []byte) *BytesSource {
	return &BytesSource{name: name, mediaType: mediaType, data: data}
}

func (b *BytesSource) Name() string      { return b.name }
func (b *BytesSource) MediaType() string { return b.mediaType }

func (b *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Loader selects files from disk, enforcing the accepted types and size limits.
type Loader struct {
	maxFileSizeKB  int
	maxImageSizeKB int
}

func NewLoader(maxFileSizeKB, maxImageSizeKB int) *Loader {
	if maxFileSizeKB <= 0 {
		maxFileSizeKB = 20480
	}
	if maxImageSizeKB <= 0 {
		maxImageSizeKB = 10240
	}
	return &Loader{
		maxFileSizeKB:  maxFileSizeKB,
		maxImageSizeKB: maxImageSizeKB,
	}
}

// Select validates a single path.
func (l *Loader) Select(path string) (*FileSource, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", absPath)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", absPath, err)
	}
	defer file.Close()

	// First 512 bytes are all content sniffing looks at.
	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read header from %s: %w", absPath, err)
	}
	mediaType := sniffMediaType(absPath, header[:n])

	if !Accepts(mediaType) {
		return nil, fmt.Errorf("%s (%s): %w", filepath.Base(absPath), mediaType, ErrUnsupportedType)
	}

	limitKB := l.maxFileSizeKB
	if KindOf(mediaType) == KindImage {
		limitKB = l.maxImageSizeKB
	}
	if info.Size() > int64(limitKB)*1024 {
		return nil, fmt.Errorf("%s (%d KB exceeds limit %d KB): %w",
			filepath.Base(absPath), info.Size()/1024, limitKB, ErrTooLarge)
	}

	return &FileSource{path: absPath, mediaType: mediaType, size: info.Size()}, nil
}

// SelectAll validates paths, dropping duplicates. Rejected paths are reported
// in errs and do not stop the others.
func (l *Loader) SelectAll(paths []string) ([]Source, []error) {
	seen := make(map[string]bool)
	var srcs []Source
	var errs []error

	for _, p := range paths {
		src, err := l.Select(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[src.path] {
			continue
		}
		seen[src.path] = true
		srcs = append(srcs, src)
	}
	return srcs, errs
}
