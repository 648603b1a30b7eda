package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kir-gadjello/gemtutor/attachment"
	"github.com/kir-gadjello/gemtutor/compose"
	"github.com/kir-gadjello/gemtutor/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, name := range KeyEnvVars {
		t.Setenv(name, "")
	}
}

type captured struct {
	path string
	key  string
	body map[string]interface{}
}

func fakeGemini(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.Header.Get("x-goog-api-key")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

const okReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hai!"}]},"finishReason":"STOP"}]}`

func TestLookupAPIKey_Order(t *testing.T) {
	clearKeys(t)
	key, from := LookupAPIKey()
	assert.Empty(t, key)
	assert.Empty(t, from)

	t.Setenv("GOOGLE_API_KEY", "g")
	key, from = LookupAPIKey()
	assert.Equal(t, "g", key)
	assert.Equal(t, "GOOGLE_API_KEY", from)

	t.Setenv("API_KEY", "a")
	key, _ = LookupAPIKey()
	assert.Equal(t, "a", key)

	t.Setenv("GEMINI_API_KEY", "k")
	key, from = LookupAPIKey()
	assert.Equal(t, "k", key)
	assert.Equal(t, "GEMINI_API_KEY", from)
}

func TestGenerate_MissingKeyFailsAtCallTime(t *testing.T) {
	clearKeys(t)
	c := New(Config{APIBase: "http://127.0.0.1:1"}, nil)

	req, err := compose.Compose(nil, "Halo", nil)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), req)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestGenerate_KeyReadPerCall(t *testing.T) {
	clearKeys(t)
	srv, got := fakeGemini(t, http.StatusOK, okReply)
	c := New(Config{APIBase: srv.URL}, nil)

	req, err := compose.Compose(nil, "Halo", nil)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	t.Setenv("GEMINI_API_KEY", "late-key")
	text, err := c.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hai!", text)
	assert.Equal(t, "late-key", got.key)
}

func TestGenerate_NoDeadlineByDefault(t *testing.T) {
	clearKeys(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okReply)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{APIBase: srv.URL}, nil)
	assert.Zero(t, c.httpClient().Timeout)

	req, err := compose.Compose(nil, "Halo", nil)
	require.NoError(t, err)
	text, err := c.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hai!", text)
}

func TestGenerate_SendsComposedRequest(t *testing.T) {
	clearKeys(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	srv, got := fakeGemini(t, http.StatusOK, okReply)
	c := New(Config{APIBase: srv.URL}, nil)

	history := []conversation.Message{conversation.NewAssistantMessage(conversation.WelcomeText)}
	img := attachment.Attachment{Kind: attachment.KindImage, Payload: "UElYRUxT", MediaType: "image/png", Name: "a.png"}
	req, err := compose.Compose(history, "apa ini?", []attachment.Attachment{img})
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hai!", text)

	assert.True(t, strings.HasSuffix(got.path, "models/"+ModelName+":generateContent"), got.path)

	contents, ok := got.body["contents"].([]interface{})
	require.True(t, ok)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[0].(map[string]interface{})["role"])

	current := contents[1].(map[string]interface{})
	parts := current["parts"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "apa ini?", parts[0].(map[string]interface{})["text"])
	inline := parts[1].(map[string]interface{})["inlineData"].(map[string]interface{})
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, "UElYRUxT", inline["data"])

	assert.NotNil(t, got.body["systemInstruction"])
	gen := got.body["generationConfig"].(map[string]interface{})
	assert.InDelta(t, 0.7, gen["temperature"], 1e-6)
	assert.InDelta(t, 40, gen["topK"], 1e-6)
}

func TestGenerate_NoCandidatesIsEmpty(t *testing.T) {
	clearKeys(t)
	t.Setenv("API_KEY", "test-key")
	srv, _ := fakeGemini(t, http.StatusOK, `{"candidates":[]}`)
	c := New(Config{APIBase: srv.URL}, nil)

	req, _ := compose.Compose(nil, "Halo", nil)
	text, err := c.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGenerate_ServerError(t *testing.T) {
	clearKeys(t)
	t.Setenv("GEMINI_API_KEY", "bad-key")
	srv, _ := fakeGemini(t, http.StatusBadRequest,
		`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	c := New(Config{APIBase: srv.URL}, nil)

	req, _ := compose.Compose(nil, "Halo", nil)
	_, err := c.Generate(context.Background(), req)
	assert.Error(t, err)
}

func TestGenerate_VerboseDumpsExchange(t *testing.T) {
	clearKeys(t)
	t.Setenv("GEMINI_API_KEY", "secret-key")
	srv, _ := fakeGemini(t, http.StatusOK, okReply)

	core, logs := observer.New(zap.DebugLevel)
	c := New(Config{APIBase: srv.URL, Verbose: true}, zap.New(core))

	req, _ := compose.Compose(nil, "Halo", nil)
	_, err := c.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage(">>> request").Len())
	assert.Equal(t, 1, logs.FilterMessage("<<< response").Len())
	for _, e := range logs.All() {
		for _, f := range e.Context {
			assert.NotContains(t, f.String, "secret-key")
		}
	}
}

func TestDumpBody_Truncates(t *testing.T) {
	long := strings.Repeat("x", maxDumpBytes+10)
	out := dumpBody([]byte(long))
	assert.True(t, strings.HasSuffix(out, "...(truncated)"))
	assert.Empty(t, dumpBody(nil))
}
