package template

import (
	"os"
	"path/filepath"
	"strings"
)

// RubricText returns the optional explanation/model-answer text for a
// master: the first *.txt under dir whose name contains the master ID.
// Missing directory or no match returns "", nil — the rubric block is
// optional in the grading request.
func RubricText(dir, masterID string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		if !strings.Contains(e.Name(), masterID) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", nil
}
