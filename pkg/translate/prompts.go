package translate

import (
	"fmt"
	"strings"

	"github.com/dasmlab/lektor/pkg/document"
)

const (
	metadataPromptFormat = "Translate the following from German to English. Return only the translation text: %s"

	stageDirectionSystemPrompt = "You are translating stage directions from German drama to English. " +
		"Preserve all line breaks (\\n) exactly as they appear in the original. " +
		"Stage directions should be concise and clear. " +
		"Return ONLY valid JSON of the form: " +
		`{"english_sentences": ["Translation text"]}`

	genericBookContext = "BOOK CONTEXT: German Literary Text"
)

// speakerNames maps common German stage roles to English. Keys are uppercase.
var speakerNames = map[string]string{
	"CHOR":     "CHORUS",
	"ALLE":     "ALL",
	"STIMME":   "VOICE",
	"SPRECHER": "NARRATOR",
}

// TranslateSpeakerName resolves a speaker label through the fixed role table.
// Unknown names are returned unchanged.
func TranslateSpeakerName(name string) string {
	if english, ok := speakerNames[strings.ToUpper(name)]; ok {
		return english
	}
	return name
}

func metadataPrompt(text string) string {
	return fmt.Sprintf(metadataPromptFormat, text)
}

func stageDirectionUserPrompt(text string, meta *document.Metadata) string {
	prompt := "Translate this German stage direction to English: " + text
	if meta == nil {
		return prompt
	}
	title := meta.Title
	if title == "" {
		title = "German drama"
	}
	author := meta.Author
	if author == "" {
		author = "unknown"
	}
	return fmt.Sprintf("From '%s' by %s: %s", title, author, prompt)
}

func sentenceSystemPrompt(kind document.SentenceType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CRITICAL: You are translating German literature (%s text) with paragraph context for better quality. ", kind)
	b.WriteString("TRANSLATE ONLY THE SPECIFIED SENTENCE - do not translate the entire paragraph. ")
	b.WriteString("Use the paragraph context to understand tone, style, and meaning, but return only the translation of the target sentence. ")
	b.WriteString("PRESERVE THE PARAGRAPH STRUCTURE - do not merge with sentences from other paragraphs. ")
	b.WriteString("ABSOLUTE REQUIREMENT: PRESERVE LINE BREAKS. ")
	b.WriteString("The German text contains \\n characters that represent poetry line breaks. ")
	b.WriteString("YOU MUST PRESERVE EVERY SINGLE \\n CHARACTER IN THE EXACT SAME POSITION. ")
	b.WriteString("COUNT the \\n characters in the German text and ensure your English has THE SAME NUMBER of \\n characters. ")
	b.WriteString("EXAMPLE: German 'Habe nun, ach! Philosophie,\\nJuristerei und Medizin' MUST become English 'I have now, alas! Philosophy,\\nJurisprudence and Medicine' ")
	b.WriteString("DO NOT REMOVE LINE BREAKS. DO NOT MERGE LINES. PRESERVE \\n EXACTLY. ")
	fmt.Fprintf(&b, "For %s text, maintain appropriate style and formatting conventions. ", kind)
	b.WriteString("You may split ONE German sentence into multiple English sentences for clarity, ")
	b.WriteString("but maintain the literary style and emotional tone. ")
	b.WriteString("Convert German quotation marks (» «) to English double quotes (\"\"). ")
	b.WriteString("Return ONLY valid JSON of the form: ")
	b.WriteString(`{"english_sentences": ["Sentence 1.", "Sentence 2."]}`)
	return b.String()
}

// contextPrompt embeds book metadata, the paragraph context window and the
// target sentence with its 1-based position.
func contextPrompt(meta *document.Metadata, paragraphText, sentence string, index int) string {
	var parts []string
	if meta != nil {
		parts = append(parts, "BOOK CONTEXT:")
		if meta.Title != "" {
			parts = append(parts, "Title: "+meta.Title)
		}
		if meta.Author != "" {
			parts = append(parts, "Author: "+meta.Author)
		}
		if meta.Description != "" {
			parts = append(parts, "Description: "+meta.Description)
		}
	} else {
		parts = append(parts, genericBookContext)
	}
	parts = append(parts,
		"",
		"PARAGRAPH CONTEXT (for understanding tone and style):",
		paragraphText,
		"",
		fmt.Sprintf("TARGET SENTENCE TO TRANSLATE (sentence #%d in the paragraph):", index+1),
		sentence,
		"",
		"Translate ONLY the target sentence using the book and paragraph context for better literary quality.",
		"CRITICAL: If the target sentence contains \\n characters, you MUST preserve them in the EXACT same positions in your English translation.",
		"Count the \\n characters in the German text and ensure your English has the same number of \\n characters.",
	)
	return strings.Join(parts, "\n")
}
