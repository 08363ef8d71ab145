package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Transcript is a committed transcript with its metadata
type Transcript struct {
	BaseName string   `json:"base_name"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// ReadTranscript loads a committed transcript pair
func (s *Store) ReadTranscript(role Role, base string) (*Transcript, error) {
	if !ValidBaseName(role, base) {
		return nil, fmt.Errorf("%w: invalid base name %q", ErrNotFound, base)
	}

	dir := s.Dir(role.transcriptNamespace())

	// Metadata is written last; without it the pair is incomplete
	raw, err := os.ReadFile(filepath.Join(dir, base+metadataSuffix))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, base)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", base, err)
	}

	text, err := os.ReadFile(filepath.Join(dir, base+transcriptSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return &Transcript{
		BaseName: base,
		Text:     string(text),
		Metadata: meta,
	}, nil
}

// List returns the base names of complete transcript pairs for role, newest first
func (s *Store) List(role Role) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(role.transcriptNamespace()))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s transcripts: %w", role, err)
	}

	var bases []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, metadataSuffix) {
			continue
		}
		bases = append(bases, strings.TrimSuffix(name, metadataSuffix))
	}

	// Base names embed the timestamp, so lexical order is chronological
	sort.Sort(sort.Reverse(sort.StringSlice(bases)))

	return bases, nil
}

// AudioFor returns the committed audio path of a base name, or "" if none exists
func (s *Store) AudioFor(role Role, base string) string {
	matches, err := filepath.Glob(filepath.Join(s.Dir(role.audioNamespace()), base+".*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}
