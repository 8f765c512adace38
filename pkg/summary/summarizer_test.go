package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tabgraph/pkg/backend"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
)

var errBoom = errors.New("boom")

// scriptedBackend answers by prompt kind and records every call.
type scriptedBackend struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string, call int) (string, error)
}

func (b *scriptedBackend) Complete(ctx context.Context, prompt string, opts backend.CompletionOpts) (string, error) {
	b.mu.Lock()
	b.prompts = append(b.prompts, prompt)
	call := len(b.prompts)
	b.mu.Unlock()
	return b.respond(prompt, call)
}

func (b *scriptedBackend) calls(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.prompts {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

const (
	mapPrefix      = "Summarize this web page"
	combinePrefix  = "These are summaries"
	describePrefix = "Based on this summary"
)

func goodAnswers(prompt string, _ int) (string, error) {
	switch {
	case strings.HasPrefix(prompt, mapPrefix):
		return "A page about Go.", nil
	case strings.HasPrefix(prompt, combinePrefix):
		return "Pages about Go programming.", nil
	default:
		return "Title: \"Go Programming Guides.\"\nTags: Go, golang, go, tutorials", nil
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func newTestSummarizer(b backend.Completer) *Summarizer {
	return NewSummarizer(b, testConfig(), logging.NewNopLogger(), nil)
}

func longDoc(url, title string) Document {
	return Document{
		URL:     url,
		Title:   title,
		Content: strings.Repeat("Go is an open source programming language. ", 5),
	}
}

func TestSummarize_Empty(t *testing.T) {
	b := &scriptedBackend{respond: goodAnswers}
	summary, err := newTestSummarizer(b).Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Empty Cluster", summary.Title)
	assert.Equal(t, "No documents in this cluster.", summary.Summary)
	assert.Equal(t, 0, summary.DocCount)
	assert.Empty(t, b.prompts)
}

func TestSummarize_MapReduce(t *testing.T) {
	b := &scriptedBackend{respond: goodAnswers}

	docs := make([]Document, 7)
	for i := range docs {
		docs[i] = longDoc("https://go.dev/doc/"+string(rune('a'+i)), "Go doc")
	}

	summary, err := newTestSummarizer(b).Summarize(context.Background(), docs)
	require.NoError(t, err)

	// 7 sentences -> batches of 5 and 2 -> one final combination
	assert.Equal(t, 7, b.calls(mapPrefix))
	assert.Equal(t, 3, b.calls(combinePrefix))
	assert.Equal(t, 1, b.calls(describePrefix))

	assert.Equal(t, "Go Programming Guides", summary.Title)
	assert.Equal(t, "Pages about Go programming.", summary.Summary)
	assert.Equal(t, []string{"go", "golang", "tutorials"}, summary.Tags)
	assert.Equal(t, 7, summary.DocCount)
	assert.Len(t, summary.URLs, 7)
}

func TestSummarize_BatchOfOnePassesThrough(t *testing.T) {
	b := &scriptedBackend{respond: goodAnswers}

	docs := make([]Document, 6)
	for i := range docs {
		docs[i] = longDoc("https://go.dev/"+string(rune('a'+i)), "Go")
	}

	_, err := newTestSummarizer(b).Summarize(context.Background(), docs)
	require.NoError(t, err)

	// 6 -> [5 combined, 1 passed through] -> 1 combined
	assert.Equal(t, 2, b.calls(combinePrefix))
}

func TestSummarize_ShortContentFallback(t *testing.T) {
	b := &scriptedBackend{respond: goodAnswers}
	doc := Document{URL: "https://go.dev/blog", Title: "The Go Blog", Content: "  too short  "}

	summary, err := newTestSummarizer(b).Summarize(context.Background(), []Document{doc})
	require.NoError(t, err)

	assert.Equal(t, 0, b.calls(mapPrefix))
	assert.Equal(t, "The Go Blog (go.dev).", summary.Summary)
}

func TestSummarize_PlaceholderAnswerFallback(t *testing.T) {
	b := &scriptedBackend{respond: func(prompt string, call int) (string, error) {
		if strings.HasPrefix(prompt, mapPrefix) {
			return "N/A", nil
		}
		return goodAnswers(prompt, call)
	}}
	doc := longDoc("https://pkg.go.dev/net/http", "http package")

	summary, err := newTestSummarizer(b).Summarize(context.Background(), []Document{doc})
	require.NoError(t, err)
	assert.Equal(t, "http package (pkg.go.dev).", summary.Summary)
}

func TestSummarize_RetriesThenSucceeds(t *testing.T) {
	b := &scriptedBackend{respond: func(prompt string, call int) (string, error) {
		if call <= 2 {
			return "", errBoom
		}
		return goodAnswers(prompt, call)
	}}

	summary, err := newTestSummarizer(b).Summarize(context.Background(), []Document{longDoc("https://go.dev", "Go")})
	require.NoError(t, err)
	assert.Equal(t, 3, b.calls(mapPrefix))
	assert.Equal(t, "A page about Go.", summary.Summary)
}

func TestSummarize_RetriesExhausted(t *testing.T) {
	b := &scriptedBackend{respond: func(prompt string, call int) (string, error) {
		return "", errBoom
	}}

	_, err := newTestSummarizer(b).Summarize(context.Background(), []Document{longDoc("https://go.dev", "Go")})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, b.calls(mapPrefix))
	assert.Equal(t, 0, b.calls(describePrefix))
}

func TestSummarize_EmptyAnswerIsRetried(t *testing.T) {
	b := &scriptedBackend{respond: func(prompt string, call int) (string, error) {
		if strings.HasPrefix(prompt, describePrefix) && call == 2 {
			return "   ", nil
		}
		return goodAnswers(prompt, call)
	}}

	summary, err := newTestSummarizer(b).Summarize(context.Background(), []Document{longDoc("https://go.dev", "Go")})
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls(describePrefix))
	assert.Equal(t, "Go Programming Guides", summary.Title)
}

func TestSummarize_TagsPaddedFromHosts(t *testing.T) {
	b := &scriptedBackend{respond: func(prompt string, call int) (string, error) {
		if strings.HasPrefix(prompt, describePrefix) {
			return "Title: Rust Docs\nTags: rust", nil
		}
		return goodAnswers(prompt, call)
	}}
	docs := []Document{
		longDoc("https://doc.rust-lang.org/book/", "The Book"),
		longDoc("https://www.crates.io/", "crates"),
	}

	summary, err := newTestSummarizer(b).Summarize(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, "Rust Docs", summary.Title)
	assert.Equal(t, []string{"rust", "doc", "lang"}, summary.Tags)
}

func TestParseTitleTags(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		wantTitle string
		wantTags  []string
	}{
		{"well formed", "Title: Machine Learning\nTags: ml, ai, python", "Machine Learning", []string{"ml", "ai", "python"}},
		{"case insensitive", "TITLE: News Articles\ntags: News, World", "News Articles", []string{"news", "world"}},
		{"bare title", "\"Python Programming.\"", "Python Programming", nil},
		{"clipped to four words", "Title: A Very Long Cluster Title Indeed", "A Very Long Cluster", nil},
		{"duplicate tags", "Title: X\nTags: #Go, go, GO , ", "X", []string{"go"}},
		{"too many tags", "Title: X\nTags: a1, b2, c3, d4, e5, f6, g7, h8", "X", []string{"a1", "b2", "c3", "d4", "e5", "f6", "g7"}},
		{"empty", "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, tags := ParseTitleTags(tt.answer)
			assert.Equal(t, tt.wantTitle, title)
			if tt.wantTags == nil {
				assert.Empty(t, tags)
			} else {
				assert.Equal(t, tt.wantTags, tags)
			}
		})
	}
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"", true},
		{"   ", true},
		{"N/A", true},
		{"n/a.", true},
		{"[one sentence summary]", true},
		{"I cannot access this page.", true},
		{"Sorry, there is no content.", true},
		{"A guide to Go modules.", false},
		{"Unknown Pleasures review", false},
	}

	for _, tt := range tests {
		if got := isPlaceholder(tt.answer); got != tt.want {
			t.Errorf("isPlaceholder(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestKey_OrderIndependent(t *testing.T) {
	a := []Document{{URL: "https://b"}, {URL: "https://a"}}
	b := []Document{{URL: "https://a"}, {URL: "https://b"}}
	assert.Equal(t, Key(a), Key(b))
	assert.Equal(t, "https://a\nhttps://b", Key(a))
	assert.NotEqual(t, Key(a), Key(a[:1]))
}
