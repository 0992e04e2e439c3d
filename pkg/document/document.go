// Package document defines the structured representation of a German source text:
// book metadata, pages, paragraphs and sentences, as stored on disk and exchanged
// with the reading client.
package document

import "encoding/json"

// SentenceType classifies a sentence for translation dispatch.
type SentenceType string

const (
	TypeNarration      SentenceType = "narration"
	TypeDialogue       SentenceType = "dialogue"
	TypeStageDirection SentenceType = "stage_direction"
	TypeSpeakerName    SentenceType = "speaker_name"
)

// Metadata describes the book a page belongs to.
type Metadata struct {
	Title                string `json:"title,omitempty"`
	Author               string `json:"author,omitempty"`
	Year                 Scalar `json:"year,omitempty"`
	Genre                string `json:"genre,omitempty"`
	Difficulty           string `json:"difficulty,omitempty"`
	Description          string `json:"description,omitempty"`
	TotalPages           int    `json:"total_pages,omitempty"`
	EstimatedReadingTime Scalar `json:"estimated_reading_time,omitempty"`

	Extra Extra `json:"-"`
}

// Document is a whole text: optional metadata plus its ordered pages.
type Document struct {
	Metadata *Metadata `json:"metadata,omitempty"`
	Pages    []Page    `json:"pages"`
}

// StageDirection is a page-level stage direction in drama texts.
type StageDirection struct {
	Text string `json:"text"`

	Extra Extra `json:"-"`
}

// Page is one page of a text. PageNumber is 1-indexed as stored on disk.
type Page struct {
	PageNumber      int              `json:"page_number"`
	Paragraphs      []Paragraph      `json:"paragraphs"`
	Speaker         string           `json:"speaker,omitempty"`
	StageDirections []StageDirection `json:"stage_directions,omitempty"`

	Extra Extra `json:"-"`
}

// Paragraph is an ordered group of sentences.
type Paragraph struct {
	Sentences []Sentence `json:"sentences"`

	Extra Extra `json:"-"`
}

// Sentence is a single source sentence. Text may contain literal "\n" line
// breaks for verse. EnglishTranslation is empty until a translation pass fills it.
// Members not declared here are kept in Extra.
type Sentence struct {
	Text               string       `json:"text"`
	Type               SentenceType `json:"type,omitempty"`
	EnglishTranslation []string     `json:"english_translation,omitempty"`

	Extra Extra `json:"-"`
}

// EffectiveType returns the sentence type, defaulting to narration.
func (s Sentence) EffectiveType() SentenceType {
	if s.Type == "" {
		return TypeNarration
	}
	return s.Type
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	c.Year = append(Scalar(nil), m.Year...)
	c.EstimatedReadingTime = append(Scalar(nil), m.EstimatedReadingTime...)
	c.Extra = m.Extra.clone()
	return &c
}

// Clone returns a deep copy of the page. Mutating the copy never affects p.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := &Page{
		PageNumber: p.PageNumber,
		Speaker:    p.Speaker,
		Extra:      p.Extra.clone(),
	}
	if p.StageDirections != nil {
		c.StageDirections = make([]StageDirection, len(p.StageDirections))
		for i, sd := range p.StageDirections {
			c.StageDirections[i] = StageDirection{Text: sd.Text, Extra: sd.Extra.clone()}
		}
	}
	if p.Paragraphs != nil {
		c.Paragraphs = make([]Paragraph, len(p.Paragraphs))
		for i, para := range p.Paragraphs {
			c.Paragraphs[i] = para.clone()
		}
	}
	return c
}

func (p Paragraph) clone() Paragraph {
	out := Paragraph{Extra: p.Extra.clone()}
	if p.Sentences == nil {
		return out
	}
	out.Sentences = make([]Sentence, len(p.Sentences))
	for i, s := range p.Sentences {
		out.Sentences[i] = Sentence{Text: s.Text, Type: s.Type, Extra: s.Extra.clone()}
		if s.EnglishTranslation != nil {
			out.Sentences[i].EnglishTranslation = append([]string(nil), s.EnglishTranslation...)
		}
	}
	return out
}

// SentenceCount returns the number of sentences across all paragraphs.
func (p *Page) SentenceCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, para := range p.Paragraphs {
		n += len(para.Sentences)
	}
	return n
}

// Texts returns the source texts of the paragraph's sentences in order.
func (p Paragraph) Texts() []string {
	texts := make([]string, len(p.Sentences))
	for i, s := range p.Sentences {
		texts[i] = s.Text
	}
	return texts
}

var (
	metadataFields       = []string{"title", "author", "year", "genre", "difficulty", "description", "total_pages", "estimated_reading_time"}
	pageFields           = []string{"page_number", "paragraphs", "speaker", "stage_directions"}
	paragraphFields      = []string{"sentences"}
	sentenceFields       = []string{"text", "type", "english_translation"}
	stageDirectionFields = []string{"text"}
)

func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, metadataFields...)
	if err != nil {
		return err
	}
	v.Extra = extra
	*m = Metadata(v)
	return nil
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	type plain Metadata
	base, err := json.Marshal(plain(m))
	if err != nil {
		return nil, err
	}
	return mergeExtra(base, m.Extra)
}

func (p *Page) UnmarshalJSON(data []byte) error {
	type plain Page
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, pageFields...)
	if err != nil {
		return err
	}
	v.Extra = extra
	*p = Page(v)
	return nil
}

func (p Page) MarshalJSON() ([]byte, error) {
	type plain Page
	base, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	return mergeExtra(base, p.Extra)
}

func (p *Paragraph) UnmarshalJSON(data []byte) error {
	type plain Paragraph
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, paragraphFields...)
	if err != nil {
		return err
	}
	v.Extra = extra
	*p = Paragraph(v)
	return nil
}

func (p Paragraph) MarshalJSON() ([]byte, error) {
	type plain Paragraph
	base, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	return mergeExtra(base, p.Extra)
}

func (s *Sentence) UnmarshalJSON(data []byte) error {
	type plain Sentence
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, sentenceFields...)
	if err != nil {
		return err
	}
	v.Extra = extra
	*s = Sentence(v)
	return nil
}

func (s Sentence) MarshalJSON() ([]byte, error) {
	type plain Sentence
	base, err := json.Marshal(plain(s))
	if err != nil {
		return nil, err
	}
	return mergeExtra(base, s.Extra)
}

func (sd *StageDirection) UnmarshalJSON(data []byte) error {
	type plain StageDirection
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, stageDirectionFields...)
	if err != nil {
		return err
	}
	v.Extra = extra
	*sd = StageDirection(v)
	return nil
}

func (sd StageDirection) MarshalJSON() ([]byte, error) {
	type plain StageDirection
	base, err := json.Marshal(plain(sd))
	if err != nil {
		return nil, err
	}
	return mergeExtra(base, sd.Extra)
}
