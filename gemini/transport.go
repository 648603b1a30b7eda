package gemini

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxDumpBytes = 4096

// loggingTransport dumps each request and response at debug level. Inline
// payloads are large, so bodies are cut at maxDumpBytes.
type loggingTransport struct {
	logger *zap.Logger
	next   http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}

	var reqBody []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		reqBody = b
		req.Body = io.NopCloser(bytes.NewReader(b))
	}
	t.logger.Debug(">>> request",
		zap.String("method", req.Method),
		zap.String("url", redactURL(req)),
		zap.Strings("headers", headerNames(req.Header)),
		zap.String("body", dumpBody(reqBody)))

	resp, err := next.RoundTrip(req)
	if err != nil {
		t.logger.Debug("<<< transport error", zap.Error(err))
		return nil, err
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	t.logger.Debug("<<< response",
		zap.String("status", resp.Status),
		zap.String("body", dumpBody(respBody)))
	return resp, nil
}

// headerNames lists header keys only; the API key travels in a header.
func headerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	return names
}

func redactURL(req *http.Request) string {
	u := *req.URL
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func dumpBody(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err == nil {
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			b = pretty
		}
	}
	if len(b) > maxDumpBytes {
		return string(b[:maxDumpBytes]) + "...(truncated)"
	}
	return string(b)
}
