package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v5"

	"github.com/dd0wney/cluso-tabgraph/pkg/backend"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
	"github.com/dd0wney/cluso-tabgraph/pkg/scoring"
	"github.com/dd0wney/cluso-tabgraph/pkg/validation"
)

// ErrEmptyCompletion is returned when the backend answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

const (
	maxTitleWords = 4
	minTags       = 3
	maxTags       = 7
	sampleSize    = 5
)

// Config tunes the summarizer.
type Config struct {
	BatchSize       int           // summaries combined per reduce call
	MaxRetries      int           // attempts per backend call
	RetryDelay      time.Duration // fixed delay between attempts
	MaxContentChars int           // content sent per document
	MinContentChars int           // below this many non-space characters a document gets the fallback sentence
	Model           string
}

// DefaultConfig returns the default summarizer configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:       5,
		MaxRetries:      3,
		RetryDelay:      time.Second,
		MaxContentChars: 3000,
		MinContentChars: 50,
	}
}

// Summarizer produces a ClusterSummary with three backend stages: one
// sentence per document, batched combination of those sentences until one
// paragraph remains, and a final title and tags pass.
type Summarizer struct {
	backend backend.Completer
	config  Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewSummarizer creates a summarizer. Zero config fields take defaults.
func NewSummarizer(b backend.Completer, config Config, logger logging.Logger, reg *metrics.Registry) *Summarizer {
	def := DefaultConfig()
	config.BatchSize = validation.DefaultOrInt(config.BatchSize, def.BatchSize)
	config.MaxRetries = validation.DefaultOrInt(config.MaxRetries, def.MaxRetries)
	config.RetryDelay = validation.DefaultOrDuration(config.RetryDelay, def.RetryDelay)
	config.MaxContentChars = validation.DefaultOrInt(config.MaxContentChars, def.MaxContentChars)
	config.MinContentChars = validation.DefaultOrInt(config.MinContentChars, def.MinContentChars)
	if config.BatchSize < 2 {
		config.BatchSize = 2
	}

	return &Summarizer{
		backend: b,
		config:  config,
		logger:  logging.OrDefault(logger).With(logging.Component("summarizer")),
		metrics: reg,
	}
}

// Summarize describes documents. Backend failures that outlast the retries
// are returned; malformed answers degrade to text derived from the documents.
func (s *Summarizer) Summarize(ctx context.Context, documents []Document) (*ClusterSummary, error) {
	if len(documents) == 0 {
		return emptyCluster(), nil
	}

	timer := logging.StartTimer(s.logger, "Cluster summarized", logging.Count(len(documents)))

	sentences, err := s.mapPhase(ctx, documents)
	if err != nil {
		return nil, err
	}

	paragraph, err := s.reducePhase(ctx, sentences)
	if err != nil {
		return nil, err
	}

	title, tags, err := s.describe(ctx, paragraph, documents)
	if err != nil {
		return nil, err
	}

	timer.End(logging.String("title", title))
	return &ClusterSummary{
		Title:    title,
		Summary:  paragraph,
		Tags:     tags,
		DocCount: len(documents),
		URLs:     memberURLs(documents),
	}, nil
}

const mapPrompt = `Summarize this web page in one concise sentence. Focus on the main topic or purpose.

URL: %s
Title: %s
Content: %s

Respond with ONLY one sentence summarizing the main topic.`

func (s *Summarizer) mapPhase(ctx context.Context, documents []Document) ([]string, error) {
	sentences := make([]string, 0, len(documents))
	for _, doc := range documents {
		if nonSpaceLen(doc.Content) < s.config.MinContentChars {
			sentences = append(sentences, fallbackSentence(doc))
			continue
		}

		content := truncateRunes(doc.Content, s.config.MaxContentChars)
		answer, err := s.complete(ctx, "map", fmt.Sprintf(mapPrompt, doc.URL, doc.Title, content), 100)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", doc.URL, err)
		}
		if isPlaceholder(answer) {
			s.logger.Debug("Placeholder document summary, using fallback", logging.URL(doc.URL))
			answer = fallbackSentence(doc)
		}
		sentences = append(sentences, answer)
	}
	return sentences, nil
}

const combinePrompt = `These are summaries of related web pages. Combine them into a brief paragraph (2-3 sentences) that captures the common theme or topic.

Summaries:
%s

Respond with a 2-3 sentence paragraph describing the overall theme.`

func (s *Summarizer) reducePhase(ctx context.Context, sentences []string) (string, error) {
	current := sentences
	for len(current) > 1 {
		next := make([]string, 0, (len(current)+s.config.BatchSize-1)/s.config.BatchSize)
		for i := 0; i < len(current); i += s.config.BatchSize {
			batch := current[i:min(i+s.config.BatchSize, len(current))]
			if len(batch) == 1 {
				next = append(next, batch[0])
				continue
			}

			lines := make([]string, len(batch))
			for j, b := range batch {
				lines[j] = "- " + b
			}
			combined, err := s.complete(ctx, "reduce", fmt.Sprintf(combinePrompt, strings.Join(lines, "\n")), 150)
			if err != nil {
				return "", fmt.Errorf("combine summaries: %w", err)
			}
			if isPlaceholder(combined) {
				combined = strings.Join(batch, " ")
			}
			next = append(next, combined)
		}
		current = next
	}
	return current[0], nil
}

const describePrompt = `Based on this summary and sample pages, name this cluster of web pages and tag it.

Summary: %s

Sample pages:
%s

The title should be topic-based (e.g. "Python Programming") or describe the content type (e.g. "News Articles"), 2-4 words.
Give 3-7 short lower-case tags.

Respond in exactly this format:
Title: <title>
Tags: <tag>, <tag>, <tag>`

func (s *Summarizer) describe(ctx context.Context, paragraph string, documents []Document) (string, []string, error) {
	sample := documents[:min(sampleSize, len(documents))]
	lines := make([]string, len(sample))
	for i, doc := range sample {
		lines[i] = fmt.Sprintf("- %s (%s)", doc.URL, doc.Title)
	}

	answer, err := s.complete(ctx, "title", fmt.Sprintf(describePrompt, paragraph, strings.Join(lines, "\n")), 60)
	if err != nil {
		return "", nil, fmt.Errorf("title cluster: %w", err)
	}

	title, tags := ParseTitleTags(answer)
	hostWords := hostKeywords(documents)
	if title == "" {
		title = fallbackTitle(hostWords)
	}
	return title, padTags(tags, hostWords), nil
}

// complete calls the backend with a fixed delay between attempts. An empty
// answer counts as a failed attempt.
func (s *Summarizer) complete(ctx context.Context, op, prompt string, maxTokens int) (string, error) {
	attempt := 0
	answer, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		out, err := s.backend.Complete(ctx, prompt, backend.CompletionOpts{
			MaxTokens: maxTokens,
			Model:     s.config.Model,
		})
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrEmptyCompletion
		}
		if err != nil {
			s.countBackend(op, "error")
			return "", err
		}
		s.countBackend(op, "ok")
		return strings.TrimSpace(out), nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.config.RetryDelay)),
		backoff.WithMaxTries(uint(s.config.MaxRetries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("Summary backend call failed, retrying",
				logging.String("operation", op),
				logging.Attempt(attempt),
				logging.Duration("retry_in", next),
				logging.Error(err),
			)
		}),
	)
	if err != nil {
		s.logger.Error("Summary backend call failed",
			logging.String("operation", op),
			logging.Attempt(attempt),
			logging.Error(err),
		)
		return "", err
	}
	return answer, nil
}

func (s *Summarizer) countBackend(op, status string) {
	if s.metrics != nil {
		s.metrics.RecordBackendCall("summary_"+op, status)
	}
}

// ParseTitleTags reads a "Title: ..." / "Tags: a, b" answer. An answer with
// no Title line uses its first non-empty line as the title.
func ParseTitleTags(answer string) (string, []string) {
	var title, firstLine string
	var tags []string

	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if firstLine == "" {
			firstLine = line
		}
		if rest, ok := cutPrefixFold(line, "title:"); ok {
			title = rest
		} else if rest, ok := cutPrefixFold(line, "tags:"); ok {
			tags = splitTags(rest)
		}
	}

	if title == "" && tags == nil {
		title = firstLine
	}
	return CleanTitle(title), tags
}

// CleanTitle strips quotes and punctuation and keeps at most four words.
func CleanTitle(title string) string {
	title = strings.Trim(strings.TrimSpace(title), "\"'`.,;:!*#")
	words := strings.Fields(title)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	return strings.Trim(strings.Join(words, " "), "\"'`.,;:!*#")
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}

func splitTags(raw string) []string {
	seen := make(map[string]bool)
	tags := make([]string, 0, maxTags)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.Trim(strings.TrimSpace(part), "\"'`.#"))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// padTags tops up short tag lists from host name keywords.
func padTags(tags, hostWords []string) []string {
	if tags == nil {
		tags = []string{}
	}
	if len(tags) >= minTags {
		return tags
	}
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		seen[t] = true
	}
	for _, w := range hostWords {
		if len(tags) >= minTags {
			break
		}
		if !seen[w] {
			seen[w] = true
			tags = append(tags, w)
		}
	}
	return tags
}

var hostNoise = map[string]bool{
	"www": true, "com": true, "org": true, "net": true, "edu": true, "gov": true,
	"co": true, "uk": true, "io": true, "dev": true, "app": true, "m": true,
}

// hostKeywords lists the distinctive parts of the member host names in first
// seen order.
func hostKeywords(documents []Document) []string {
	seen := make(map[string]bool)
	var words []string
	for _, doc := range documents {
		parts := strings.FieldsFunc(scoring.Host(doc.URL), func(r rune) bool {
			return r == '.' || r == '-' || r == ':'
		})
		for _, p := range parts {
			if hostNoise[p] || seen[p] || !hasLetter(p) {
				continue
			}
			seen[p] = true
			words = append(words, p)
		}
	}
	return words
}

func fallbackTitle(hostWords []string) string {
	if len(hostWords) == 0 {
		return "Untitled Cluster"
	}
	return capitalize(hostWords[0]) + " Pages"
}

func capitalize(word string) string {
	r := []rune(word)
	if len(r) == 0 {
		return word
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func fallbackSentence(doc Document) string {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = doc.URL
	}
	host := scoring.Host(doc.URL)
	if host == "" {
		return title + "."
	}
	return fmt.Sprintf("%s (%s).", title, host)
}

var placeholderPrefixes = []string{
	"i cannot", "i can't", "i can not", "i'm unable", "i am unable", "i'm sorry", "sorry",
	"as an ai", "unable to",
}

// isPlaceholder reports answers that carry no summary: empty text, refusals,
// "N/A" and bracketed template slots.
func isPlaceholder(answer string) bool {
	t := strings.TrimSpace(answer)
	if t == "" {
		return true
	}
	lower := strings.ToLower(strings.TrimRight(t, "."))
	switch lower {
	case "n/a", "na", "none", "null", "unknown", "-", "...":
		return true
	}
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		return true
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
