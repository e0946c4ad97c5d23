package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes coordinate schemas as one JSON record per
// master ID under a single directory. The files are the shared contract
// with the capture front end, so the layout never changes.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

func (s *Store) path(masterID string) string {
	return filepath.Join(s.dir, masterID+".json")
}

// Save writes the schema for its master ID, creating the directory on
// first use.
func (s *Store) Save(sc *Schema) error {
	if strings.TrimSpace(sc.MasterID) == "" {
		return fmt.Errorf("save schema: empty master id")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create coord dir: %w", err)
	}
	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	if err := os.WriteFile(s.path(sc.MasterID), b, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	s.logger.Info("schema.saved", "master_id", sc.MasterID, "path", s.path(sc.MasterID))
	return nil
}

// Load returns the schema for masterID, or (nil, nil) when none has been
// captured yet.
func (s *Store) Load(masterID string) (*Schema, error) {
	b, err := os.ReadFile(s.path(masterID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var sc Schema
	if err := json.Unmarshal(b, &sc); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", masterID, err)
	}
	if sc.MasterID == "" {
		sc.MasterID = masterID
	}
	return &sc, nil
}

// LoadAll returns every readable schema keyed by master ID. Unreadable
// files are logged and skipped so one corrupt record never blocks a
// batch.
func (s *Store) LoadAll() (map[string]*Schema, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Schema{}, nil
		}
		return nil, fmt.Errorf("read coord dir: %w", err)
	}
	out := make(map[string]*Schema, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		sc, err := s.Load(id)
		if err != nil {
			s.logger.Warn("schema.load_failed", "file", e.Name(), "error", err)
			continue
		}
		if sc != nil {
			out[sc.MasterID] = sc
		}
	}
	return out, nil
}
