// Package template loads scoring masters and matches extracted answer
// text to them by exact ID.
package template

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Meta identifies a master. The ID is what the extraction service is
// instructed to emit on the first line of the transcript.
type Meta struct {
	ID string `json:"id"`
}

// Master is one scoring definition: shared criteria plus the structured
// per-question rubric. Criteria and sub-questions are passed through to
// the grading service verbatim, so they stay raw JSON here.
type Master struct {
	Meta           Meta              `json:"meta"`
	CommonCriteria []json.RawMessage `json:"common_criteria"`
	SubQuestions   json.RawMessage   `json:"sub_questions"`
}

// LoadAll reads every master record under dir. Files without a meta.id
// are logged and skipped.
func LoadAll(dir string, logger *slog.Logger) ([]*Master, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read master dir: %w", err)
	}
	var masters []*Master
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("template.read_failed", "file", e.Name(), "error", err)
			continue
		}
		var m Master
		if err := json.Unmarshal(b, &m); err != nil {
			logger.Warn("template.decode_failed", "file", e.Name(), "error", err)
			continue
		}
		if strings.TrimSpace(m.Meta.ID) == "" {
			logger.Warn("template.missing_id", "file", e.Name())
			continue
		}
		masters = append(masters, &m)
	}
	return masters, nil
}

// IDs returns the master IDs in load order.
func IDs(masters []*Master) []string {
	out := make([]string, 0, len(masters))
	for _, m := range masters {
		out = append(out, m.Meta.ID)
	}
	return out
}

// FirstLine returns the first non-empty line of text, trimmed.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// Match resolves extracted answer text to a master by comparing its
// first non-empty line, whitespace-trimmed, against each master ID with
// exact equality. No fuzzy matching: a near-miss must fail loudly rather
// than grade a student against the wrong rubric.
func Match(text string, masters []*Master) *Master {
	id := FirstLine(text)
	if id == "" {
		return nil
	}
	for _, m := range masters {
		if m.Meta.ID == id {
			return m
		}
	}
	return nil
}
