package validation

import (
	"strings"
	"testing"
)

func TestValidateTabRecord(t *testing.T) {
	tests := []struct {
		name    string
		rec     *TabRecord
		wantErr string
	}{
		{"nil", nil, "cannot be nil"},
		{"valid", &TabRecord{URL: "https://go.dev/doc", Title: "Docs"}, ""},
		{"missing url", &TabRecord{Title: "No URL"}, "URL: field is required"},
		{"bad url", &TabRecord{URL: "not a url"}, "not a valid URL"},
		{"long title", &TabRecord{URL: "https://a.example", Title: strings.Repeat("x", MaxTitleLength+1)}, "must not exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTabRecord(tt.rec)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTabRecords_DuplicateIDs(t *testing.T) {
	recs := []TabRecord{
		{ID: "t1", URL: "https://a.example"},
		{URL: "https://b.example"},
		{URL: "https://c.example"},
		{ID: "t1", URL: "https://d.example"},
	}

	err := ValidateTabRecords(recs)
	if err == nil {
		t.Fatal("Expected duplicate id error")
	}
	if !strings.Contains(err.Error(), "tabs[3]") {
		t.Errorf("error should name the offending index, got %v", err)
	}

	if err := ValidateTabRecords(recs[:3]); err != nil {
		t.Errorf("empty ids must not collide: %v", err)
	}
}
