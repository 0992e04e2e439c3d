package tutor

import (
	"context"
	"strings"
	"testing"

	"github.com/dasmlab/lektor/pkg/llm"
)

type recordingProvider struct {
	system, user string
}

func (r *recordingProvider) SimpleTranslate(context.Context, string, int, float32) (string, error) {
	return "", nil
}

func (r *recordingProvider) JSONTranslate(context.Context, string, string, int, float32) (string, error) {
	return "", nil
}

func (r *recordingProvider) Chat(_ context.Context, system, user string) (string, error) {
	r.system, r.user = system, user
	return "answer", nil
}

func (r *recordingProvider) Capabilities() []llm.Capability { return nil }

func (r *recordingProvider) Info() llm.ProviderInfo { return llm.ProviderInfo{Provider: "rec"} }

func TestChatPrompt(t *testing.T) {
	if got := ChatPrompt("What is a Tor?", ""); got != "Question: What is a Tor?" {
		t.Errorf("without context = %q", got)
	}
	got := ChatPrompt("What is a Tor?", "ich armer Tor")
	if got != "Question: What is a Tor?\n\nContext (German text): ich armer Tor" {
		t.Errorf("with context = %q", got)
	}
}

func TestChatUsesTutorPersona(t *testing.T) {
	p := &recordingProvider{}
	answer, err := Chat(context.Background(), p, "Why 'habe' and not 'hab'?", "Habe nun, ach!")
	if err != nil || answer != "answer" {
		t.Fatalf("Chat = %q, %v", answer, err)
	}
	if p.system != SystemPrompt {
		t.Error("system prompt is not the tutor persona")
	}
	if !strings.Contains(p.user, "Context (German text): Habe nun, ach!") {
		t.Errorf("user prompt = %q", p.user)
	}
}

func TestLookupWordReusesChat(t *testing.T) {
	p := &recordingProvider{}
	if _, err := LookupWord(context.Background(), p, "Tor", "ich armer Tor"); err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if p.system != SystemPrompt {
		t.Error("dictionary lookup should use the tutor persona")
	}
	for _, want := range []string{`"Tor"`, "**Definition**", "**Gender/Case**", "**Etymology**", "**Related Words**", `Context from text: "ich armer Tor"`} {
		if !strings.Contains(p.user, want) {
			t.Errorf("dictionary prompt missing %q", want)
		}
	}
	if strings.Contains(p.user, "Context (German text)") {
		t.Error("dictionary lookup should not add chat context")
	}
}

func TestDictionaryPromptWithoutContext(t *testing.T) {
	if strings.Contains(DictionaryPrompt("Tor", ""), "Context from text") {
		t.Error("context line present without context")
	}
}

func TestDictionaryPromptKeepsVerseVerbatim(t *testing.T) {
	passage := "Habe nun, ach! \"Philosophie\",\nJuristerei und Medizin"
	got := DictionaryPrompt("Juristerei", passage)
	if !strings.Contains(got, "Context from text: \""+passage+"\"\n") {
		t.Errorf("passage not embedded verbatim:\n%s", got)
	}
	if strings.Contains(got, `\n`) || strings.Contains(got, `\"`) {
		t.Errorf("prompt contains escape sequences:\n%s", got)
	}
}
