package tabgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-tabgraph/pkg/scoring"
	"github.com/dd0wney/cluso-tabgraph/pkg/summary"
	"github.com/dd0wney/cluso-tabgraph/pkg/validation"
)

// Tab is one open browser tab. Content is empty until the page has loaded.
type Tab struct {
	ID      string `json:"id" yaml:"id"`
	URL     string `json:"url" yaml:"url"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	Favicon string `json:"favicon,omitempty" yaml:"favicon,omitempty"`
}

func (t Tab) item() scoring.Item {
	return scoring.Item{URL: t.URL, Content: t.Content}
}

func (t Tab) document() summary.Document {
	return summary.Document{URL: t.URL, Title: t.Title, Content: t.Content}
}

// TabProvider is the tab manager the engine reads from. ListTabs returns a
// point-in-time list; the engine copies it before use.
type TabProvider interface {
	ListTabs() []Tab
}

// StaticProvider is a TabProvider over an in-memory list.
type StaticProvider struct {
	mu   sync.RWMutex
	tabs []Tab
}

// NewStaticProvider creates a provider serving tabs.
func NewStaticProvider(tabs []Tab) *StaticProvider {
	p := &StaticProvider{}
	p.Set(tabs)
	return p
}

// ListTabs implements TabProvider.
func (p *StaticProvider) ListTabs() []Tab {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Tab(nil), p.tabs...)
}

// Set replaces the tab list.
func (p *StaticProvider) Set(tabs []Tab) {
	p.mu.Lock()
	p.tabs = append([]Tab(nil), tabs...)
	p.mu.Unlock()
}

// LoadTabs reads a YAML or JSON list of tabs. Tabs without an id get a
// random one.
func LoadTabs(path string) ([]Tab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tab file: %w", err)
	}

	var records []validation.TabRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &records)
	default:
		err = yaml.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse tab file %s: %w", path, err)
	}

	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
	}
	if err := validation.ValidateTabRecords(records); err != nil {
		return nil, err
	}

	tabs := make([]Tab, len(records))
	for i, r := range records {
		tabs[i] = Tab{ID: r.ID, URL: r.URL, Title: r.Title, Content: r.Content}
	}
	return tabs, nil
}
