package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// inlineImagesSupported reports whether the terminal understands the iTerm2
// inline image protocol.
func inlineImagesSupported() bool {
	term := strings.ToLower(os.Getenv("TERM"))
	termProg := strings.ToLower(os.Getenv("TERM_PROGRAM"))

	switch {
	case os.Getenv("ITERM_SESSION_ID") != "" || strings.Contains(termProg, "iterm"):
		return true
	case strings.Contains(termProg, "wezterm") || strings.Contains(term, "wezterm"):
		return true
	case strings.Contains(term, "kitty"), strings.Contains(term, "alacritty"):
		return true
	case strings.Contains(termProg, "windowsterminal"):
		return true
	}
	return false
}

// scaleToHeight shrinks img to at most maxHeight pixels, keeping its aspect.
func scaleToHeight(img image.Image, maxHeight int) image.Image {
	b := img.Bounds()
	if maxHeight <= 0 || b.Dy() <= maxHeight {
		return img
	}
	w := b.Dx() * maxHeight / b.Dy()
	if w < 1 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, maxHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// writeInlineImage prints raw image bytes as an OSC 1337 inline image.
func writeInlineImage(w io.Writer, name string, data []byte, maxHeight int) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("image decode error: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaleToHeight(img, maxHeight)); err != nil {
		return fmt.Errorf("png encode error: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	nameB64 := base64.StdEncoding.EncodeToString([]byte(name))
	_, err = fmt.Fprintf(w, "\033]1337;File=name=%s;size=%d;inline=1:%s\a\n", nameB64, buf.Len(), encoded)
	return err
}
