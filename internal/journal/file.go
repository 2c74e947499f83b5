package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileJournal keeps errors as an indented JSON array in a single file, rewritten
// whole after every entry so the file is always a complete document. Steps are
// not persisted.
type FileJournal struct {
	mu      sync.Mutex
	fs      afero.Fs
	path    string
	runID   string
	entries []Entry
}

var _ Journal = (*FileJournal)(nil)

// NewFileJournal writes to path on fs.
func NewFileJournal(fs afero.Fs, path, runID string) *FileJournal {
	return &FileJournal{fs: fs, path: path, runID: runID, entries: []Entry{}}
}

func (j *FileJournal) RunID() string { return j.runID }

func (j *FileJournal) RecordStep(context.Context, Step) error { return nil }

// RecordError appends the entry and rewrites the file.
func (j *FileJournal) RecordError(_ context.Context, entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if entry.Context == nil {
		entry.Context = map[string]any{}
	}
	j.entries = append(j.entries, entry)
	return j.save()
}

// Entries returns a copy of everything recorded so far.
func (j *FileJournal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Entry(nil), j.entries...)
}

func (j *FileJournal) save() error {
	if err := j.fs.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}
	body, err := json.MarshalIndent(j.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := afero.WriteFile(j.fs, j.path, body, 0o644); err != nil {
		return fmt.Errorf("write journal %s: %w", j.path, err)
	}
	return nil
}

func (j *FileJournal) Close(context.Context, string) error { return nil }
