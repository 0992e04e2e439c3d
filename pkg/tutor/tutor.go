// Package tutor builds the shared tutor and dictionary prompts and sends them
// through a provider's Chat.
package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/dasmlab/lektor/pkg/llm"
)

// SystemPrompt is the tutor persona shared by every provider.
const SystemPrompt = `You are a helpful German language tutor and literary expert. You help students understand German texts, grammar, vocabulary, and cultural context.

When answering questions:
- Use English as default language unless the student explicitly asks for German
- Be clear and educational
- Explain German grammar concepts when relevant
- Provide cultural context when helpful
- Use examples to illustrate points
- Keep responses concise but informative`

// ChatPrompt builds the user prompt for a question with optional German context.
func ChatPrompt(question, passage string) string {
	prompt := "Question: " + question
	if passage != "" {
		prompt += "\n\nContext (German text): " + passage
	}
	return prompt
}

// DictionaryPrompt builds a structured dictionary lookup request.
func DictionaryPrompt(word, passage string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a German-English dictionary assistant. Provide a comprehensive dictionary entry for the German word or phrase: \"%s\"\n\n", word)
	b.WriteString("Please provide:\n")
	b.WriteString("1. **Definition**: Clear English definition(s)\n")
	b.WriteString("2. **Part of Speech**: Grammar category (noun, verb, adjective, etc.)\n")
	b.WriteString("3. **Gender/Case**: If applicable (der/die/das, declension info)\n")
	b.WriteString("4. **Etymology**: Word origin and breakdown if compound\n")
	b.WriteString("5. **Usage**: How it's commonly used\n")
	b.WriteString("6. **Examples**: 2-3 example sentences in German with English translations\n")
	b.WriteString("7. **Related Words**: Similar or related German words\n\n")
	if passage != "" {
		fmt.Fprintf(&b, "Context from text: \"%s\"\n\n", passage)
	}
	b.WriteString("Format your response clearly with headers and bullet points. Be concise but comprehensive.")
	return b.String()
}

// Chat answers a question about the text.
func Chat(ctx context.Context, p llm.Provider, question, passage string) (string, error) {
	return p.Chat(ctx, SystemPrompt, ChatPrompt(question, passage))
}

// LookupWord returns a dictionary entry for word. It goes through Chat so the
// entry uses the same persona and provider dispatch.
func LookupWord(ctx context.Context, p llm.Provider, word, passage string) (string, error) {
	return Chat(ctx, p, DictionaryPrompt(word, passage), "")
}
