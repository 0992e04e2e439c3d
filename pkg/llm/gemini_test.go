package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func generateContentJSON(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
			"finishReason": "STOP",
		}},
	})
	return string(b)
}

func newGeminiTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewGeminiClient(context.Background(), ClientOptions{
		APIKey:  "g-test",
		BaseURL: srv.URL + "/",
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	return client
}

func TestGeminiJSONTranslateExtractsFencedJSON(t *testing.T) {
	var prompt string
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-1.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
			prompt = body.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(generateContentJSON("```json\n{\"english_sentences\": [\"Good evening.\"]}\n```")))
	})

	out, err := client.JSONTranslate(context.Background(), "SYSTEM", "USER", 400, 0.1)
	if err != nil {
		t.Fatalf("JSONTranslate: %v", err)
	}
	if out != `{"english_sentences": ["Good evening."]}` {
		t.Errorf("JSONTranslate = %q", out)
	}
	if !strings.HasPrefix(prompt, "SYSTEM\n\nUSER\n\n") || !strings.Contains(prompt, "Return ONLY valid JSON") {
		t.Errorf("combined prompt = %q", prompt)
	}
}

func TestGeminiChatTrims(t *testing.T) {
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(generateContentJSON("\n'Tor' means fool here.\n")))
	})

	out, err := client.Chat(context.Background(), "sys", "What does Tor mean?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "'Tor' means fool here." {
		t.Errorf("Chat = %q", out)
	}
}

func TestGeminiErrorIsWrapped(t *testing.T) {
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`))
	})

	_, err := client.SimpleTranslate(context.Background(), "Hallo", 200, 0)
	if !errors.Is(err, ErrProviderCallFailed) {
		t.Fatalf("error = %v, want ErrProviderCallFailed", err)
	}
}

func TestGeminiHasNoSpeech(t *testing.T) {
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := Speech(client); !errors.Is(err, ErrUnsupportedCapability) {
		t.Errorf("Speech(gemini) error = %v, want ErrUnsupportedCapability", err)
	}
	if got := client.Info(); got.Provider != "google" || got.Description != "Google gemini-1.5-flash" {
		t.Errorf("Info() = %+v", got)
	}
}
