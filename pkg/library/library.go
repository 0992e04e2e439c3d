// Package library loads the sample German texts shipped with the reader.
//
// Each text lives in its own folder containing metadata.json and one
// page-NNN.json file per page, numbered from 1.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dasmlab/lektor/pkg/document"
	"github.com/sirupsen/logrus"
)

var (
	// ErrTextNotFound is returned for unknown text names.
	ErrTextNotFound = errors.New("text not found")
	// ErrPageNotFound is returned for page indexes outside the text.
	ErrPageNotFound = errors.New("page not found")
)

const metadataFile = "metadata.json"

// Text is a loaded text with its pages ordered by page number.
type Text struct {
	Name     string
	Metadata document.Metadata
	Pages    []document.Page
}

// TextSummary is the listing entry for a text.
type TextSummary struct {
	Name                 string          `json:"name"`
	Title                string          `json:"title"`
	Author               string          `json:"author"`
	Year                 document.Scalar `json:"year,omitempty"`
	Genre                string          `json:"genre,omitempty"`
	TotalPages           int             `json:"total_pages"`
	Difficulty           string          `json:"difficulty,omitempty"`
	EstimatedReadingTime document.Scalar `json:"estimated_reading_time,omitempty"`
}

// PageView is a single page as served to the reader. CurrentPage is 0-indexed.
type PageView struct {
	CurrentPage int                `json:"current_page"`
	TotalPages  int                `json:"total_pages"`
	TextName    string             `json:"text_name"`
	Metadata    *document.Metadata `json:"metadata"`
	PageData    *document.Page     `json:"page_data"`
}

// Library holds every text found under a directory.
type Library struct {
	dir    string
	logger *logrus.Logger

	mu    sync.RWMutex
	texts map[string]*Text
}

// New creates a library rooted at dir. Call Load to read it.
func New(dir string, logger *logrus.Logger) *Library {
	if logger == nil {
		logger = logrus.New()
	}
	return &Library{
		dir:    dir,
		logger: logger,
		texts:  make(map[string]*Text),
	}
}

// Load (re)reads all texts. A missing directory yields an empty library.
// Folders without metadata.json, or whose files do not parse, are skipped.
func (l *Library) Load() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.WithFields(logrus.Fields{
				"dir": l.dir,
			}).Warn("Sample text directory does not exist")
			l.replace(map[string]*Text{})
			return nil
		}
		return fmt.Errorf("read text directory: %w", err)
	}

	texts := make(map[string]*Text)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := filepath.Join(l.dir, entry.Name())
		if _, err := os.Stat(filepath.Join(folder, metadataFile)); err != nil {
			l.logger.WithFields(logrus.Fields{
				"folder": entry.Name(),
			}).Warn("Skipping folder without metadata.json")
			continue
		}
		text, err := loadText(entry.Name(), folder)
		if err != nil {
			l.logger.WithError(err).WithFields(logrus.Fields{
				"folder": entry.Name(),
			}).Warn("Skipping unreadable text folder")
			continue
		}
		texts[entry.Name()] = text
	}

	l.replace(texts)
	l.logger.WithFields(logrus.Fields{
		"dir":   l.dir,
		"texts": len(texts),
	}).Info("Loaded sample texts")
	return nil
}

func (l *Library) replace(texts map[string]*Text) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts = texts
}

func loadText(name, folder string) (*Text, error) {
	text := &Text{Name: name}
	if err := readJSON(filepath.Join(folder, metadataFile), &text.Metadata); err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(folder, "page-*.json"))
	if err != nil {
		return nil, fmt.Errorf("list pages of %s: %w", name, err)
	}
	for _, file := range files {
		var page document.Page
		if err := readJSON(file, &page); err != nil {
			return nil, err
		}
		if page.PageNumber == 0 {
			page.PageNumber = 1
		}
		text.Pages = append(text.Pages, page)
	}
	sort.SliceStable(text.Pages, func(i, j int) bool {
		return text.Pages[i].PageNumber < text.Pages[j].PageNumber
	})
	return text, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// List returns a summary of every text, sorted by name.
func (l *Library) List() []TextSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]TextSummary, 0, len(l.texts))
	for name, text := range l.texts {
		m := text.Metadata
		summary := TextSummary{
			Name:                 name,
			Title:                m.Title,
			Author:               m.Author,
			Year:                 m.Year,
			Genre:                m.Genre,
			TotalPages:           m.TotalPages,
			Difficulty:           m.Difficulty,
			EstimatedReadingTime: m.EstimatedReadingTime,
		}
		if summary.Title == "" {
			summary.Title = name
		}
		if summary.Author == "" {
			summary.Author = "Unknown"
		}
		if summary.TotalPages == 0 {
			summary.TotalPages = len(text.Pages)
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Text returns the named text.
func (l *Library) Text(name string) (*Text, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	text, ok := l.texts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTextNotFound, name)
	}
	return text, nil
}

// Page returns page index (0-indexed) of the named text. The returned page
// and metadata are copies.
func (l *Library) Page(name string, index int) (*PageView, error) {
	text, err := l.Text(name)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(text.Pages) {
		return nil, fmt.Errorf("%w: %s page %d", ErrPageNotFound, name, index)
	}
	return &PageView{
		CurrentPage: index,
		TotalPages:  len(text.Pages),
		TextName:    name,
		Metadata:    text.Metadata.Clone(),
		PageData:    text.Pages[index].Clone(),
	}, nil
}

// DisplayText renders a page as flat text: title and author on the first
// page, then stage directions, the speaker line and the paragraphs separated
// by blank lines.
func DisplayText(page *document.Page, meta *document.Metadata) string {
	var parts []string
	if page.PageNumber == 1 && meta != nil {
		parts = append(parts, meta.Title, meta.Author, "")
	}
	if len(page.StageDirections) > 0 {
		for _, d := range page.StageDirections {
			parts = append(parts, d.Text)
		}
		parts = append(parts, "")
	}
	if page.Speaker != "" {
		parts = append(parts, page.Speaker+":", "")
	}
	for _, para := range page.Paragraphs {
		parts = append(parts, strings.Join(para.Texts(), " "), "")
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
