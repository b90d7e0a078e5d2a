package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/llm"
)

func chatAnswer(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return b
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "test-model", Lenient: true},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractNoticeOK(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write(chatAnswer(`{"numero_procedimiento":"LA-1","titulo":null}`))
	})

	out, raw, err := c.ExtractNotice(context.Background(), llm.NoticeRequest{
		Text:   "aviso",
		Fields: []string{"numero_procedimiento", "titulo"},
	})
	if err != nil {
		t.Fatalf("ExtractNotice: %v", err)
	}
	if out["numero_procedimiento"] == nil || *out["numero_procedimiento"] != "LA-1" || out["titulo"] != nil {
		t.Fatalf("out = %v", out)
	}
	if len(raw) == 0 {
		t.Fatalf("raw json missing")
	}
	if got["model"] != "test-model" {
		t.Fatalf("request model = %v", got["model"])
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Fatalf("response_format = %v", got["response_format"])
	}
}

func TestExtractNoticeHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	_, _, err := c.ExtractNotice(context.Background(), llm.NoticeRequest{Fields: []string{"titulo"}})
	var he *llm.HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusTooManyRequests || !llm.IsRetryable(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractNoticeBadContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(chatAnswer("no json here"))
	})
	_, _, err := c.ExtractNotice(context.Background(), llm.NoticeRequest{Fields: []string{"titulo"}})
	if !errors.Is(err, common.ErrOracleResponse) {
		t.Fatalf("err = %v, want ErrOracleResponse", err)
	}
}

func TestExtractNoticeNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, _, err := c.ExtractNotice(context.Background(), llm.NoticeRequest{Fields: []string{"titulo"}})
	if !errors.Is(err, common.ErrOracleResponse) {
		t.Fatalf("err = %v", err)
	}
}
