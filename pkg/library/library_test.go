package library

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dasmlab/lektor/pkg/document"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "faust", "metadata.json"),
		`{"title": "Faust", "author": "Goethe", "year": 1808, "genre": "Drama", "difficulty": "advanced"}`)
	writeFile(t, filepath.Join(dir, "faust", "page-002.json"),
		`{"page_number": 2, "paragraphs": [{"sentences": [{"text": "Zweite Seite.", "type": "narration"}]}]}`)
	writeFile(t, filepath.Join(dir, "faust", "page-001.json"),
		`{"page_number": 1, "speaker": "FAUST", "stage_directions": [{"text": "Nacht."}],
		  "paragraphs": [{"sentences": [{"text": "Habe nun, ach!", "type": "dialogue"}, {"text": "Philosophie."}]}]}`)
	writeFile(t, filepath.Join(dir, "untitled", "metadata.json"), `{}`)
	writeFile(t, filepath.Join(dir, "untitled", "page-001.json"), `{"page_number": 1, "paragraphs": []}`)
	writeFile(t, filepath.Join(dir, "draft", "page-001.json"), `{"page_number": 1, "paragraphs": []}`)
	return dir
}

func TestLoadAndList(t *testing.T) {
	lib := New(fixtureDir(t), quietLogger())
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	list := lib.List()
	if len(list) != 2 {
		t.Fatalf("List() = %+v, want 2 texts (draft skipped)", list)
	}
	faust := list[0]
	if faust.Name != "faust" || faust.Title != "Faust" || faust.Year.String() != "1808" || faust.TotalPages != 2 {
		t.Errorf("faust summary = %+v", faust)
	}
	untitled := list[1]
	if untitled.Title != "untitled" || untitled.Author != "Unknown" || untitled.TotalPages != 1 {
		t.Errorf("untitled summary = %+v", untitled)
	}
}

func TestPage(t *testing.T) {
	lib := New(fixtureDir(t), quietLogger())
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	view, err := lib.Page("faust", 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if view.CurrentPage != 0 || view.TotalPages != 2 || view.PageData.PageNumber != 1 {
		t.Errorf("page view = %+v", view)
	}
	if view.PageData.Paragraphs[0].Sentences[0].Type != document.TypeDialogue {
		t.Errorf("sentence type lost: %+v", view.PageData.Paragraphs[0].Sentences[0])
	}

	second, err := lib.Page("faust", 1)
	if err != nil || second.PageData.PageNumber != 2 {
		t.Errorf("second page = %+v, %v", second, err)
	}

	// Returned pages are copies.
	view.PageData.Paragraphs[0].Sentences[0].Text = "changed"
	again, _ := lib.Page("faust", 0)
	if again.PageData.Paragraphs[0].Sentences[0].Text != "Habe nun, ach!" {
		t.Error("library page mutated through a view")
	}

	if _, err := lib.Page("faust", 2); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("out of range error = %v", err)
	}
	if _, err := lib.Page("faust", -1); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("negative page error = %v", err)
	}
	if _, err := lib.Page("werther", 0); !errors.Is(err, ErrTextNotFound) {
		t.Errorf("unknown text error = %v", err)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	lib := New(filepath.Join(t.TempDir(), "missing"), quietLogger())
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := len(lib.List()); n != 0 {
		t.Errorf("List() has %d texts, want 0", n)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken", "metadata.json"), `{"title": `)
	if err := New(dir, quietLogger()).Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestDisplayText(t *testing.T) {
	page := &document.Page{
		PageNumber:      1,
		Speaker:         "FAUST",
		StageDirections: []document.StageDirection{{Text: "Nacht."}},
		Paragraphs: []document.Paragraph{
			{Sentences: []document.Sentence{{Text: "Habe nun, ach!"}, {Text: "Philosophie."}}},
			{Sentences: []document.Sentence{{Text: "Da steh ich nun."}}},
		},
	}
	got := DisplayText(page, &document.Metadata{Title: "Faust", Author: "Goethe"})
	want := "Faust\nGoethe\n\nNacht.\n\nFAUST:\n\nHabe nun, ach! Philosophie.\n\nDa steh ich nun."
	if got != want {
		t.Errorf("DisplayText =\n%q\nwant\n%q", got, want)
	}

	page.PageNumber = 2
	page.Speaker = ""
	page.StageDirections = nil
	if got := DisplayText(page, &document.Metadata{Title: "Faust"}); got != "Habe nun, ach! Philosophie.\n\nDa steh ich nun." {
		t.Errorf("DisplayText page 2 = %q", got)
	}
}

func TestLoadToleratesLooselyTypedMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "faust", "metadata.json"),
		`{"title": "Faust", "year": "1808", "estimated_reading_time": 15, "translator": {"name": "Taylor"}}`)
	writeFile(t, filepath.Join(dir, "faust", "page-001.json"), `{"page_number": 1, "paragraphs": []}`)

	lib := New(dir, quietLogger())
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	list := lib.List()
	if len(list) != 1 {
		t.Fatalf("List() = %+v, want 1 text", list)
	}
	if got := list[0].Year.String(); got != "1808" {
		t.Errorf("Year = %q, want 1808", got)
	}
	if n, err := list[0].Year.Int(); err != nil || n != 1808 {
		t.Errorf("Year.Int() = %d, %v", n, err)
	}
	if got := list[0].EstimatedReadingTime.String(); got != "15" {
		t.Errorf("EstimatedReadingTime = %q, want 15", got)
	}

	out, err := json.Marshal(list[0])
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["year"] != "1808" || decoded["estimated_reading_time"] != float64(15) {
		t.Errorf("stored types not preserved: %s", out)
	}

	view, err := lib.Page("faust", 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if _, ok := view.Metadata.Extra["translator"]; !ok {
		t.Errorf("undeclared metadata member dropped: %+v", view.Metadata)
	}
}

func TestLoadSkipsUnparsableFolder(t *testing.T) {
	dir := fixtureDir(t)
	writeFile(t, filepath.Join(dir, "broken", "metadata.json"), `{"title": "Broken"`)
	writeFile(t, filepath.Join(dir, "badpage", "metadata.json"), `{"title": "Bad page"}`)
	writeFile(t, filepath.Join(dir, "badpage", "page-001.json"), `{"page_number": "eins"}`)

	lib := New(dir, quietLogger())
	if err := lib.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	names := make([]string, 0)
	for _, s := range lib.List() {
		names = append(names, s.Name)
	}
	if len(names) != 2 || names[0] != "faust" || names[1] != "untitled" {
		t.Errorf("loaded texts = %v, want [faust untitled]", names)
	}
	if _, err := lib.Text("broken"); !errors.Is(err, ErrTextNotFound) {
		t.Errorf("Text(broken) error = %v, want ErrTextNotFound", err)
	}
}
