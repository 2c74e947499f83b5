// Package journal records what happened during a generation run: every loop
// step and every error worth a human's attention.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ErrorCode classifies journaled errors.
type ErrorCode string

const (
	ErrCodeCodeGeneration    ErrorCode = "code_generation"
	ErrCodeSyntax            ErrorCode = "syntax_check"
	ErrCodeStructureCreation ErrorCode = "structure_creation"
	ErrCodeValidation        ErrorCode = "validation"
	ErrCodeRunScript         ErrorCode = "run_script"
	ErrCodeToolPanic         ErrorCode = "tool_panic"
	ErrCodeGenerator         ErrorCode = "generator"
)

// Step is one loop iteration.
type Step struct {
	Iteration   int            `json:"iteration"`
	Thought     string         `json:"thought,omitempty"`
	Action      string         `json:"action,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	Observation string         `json:"observation"`
	At          time.Time      `json:"at"`
}

// Entry is one recorded error.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	ErrorType ErrorCode      `json:"error_type"`
	FilePath  string         `json:"file_path"`
	Message   string         `json:"error_message"`
	Context   map[string]any `json:"context"`
}

// NewEntry stamps an error entry with the current local time.
func NewEntry(code ErrorCode, filePath, message string, ctx map[string]any) Entry {
	if ctx == nil {
		ctx = map[string]any{}
	}
	return Entry{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		ErrorType: code,
		FilePath:  filePath,
		Message:   message,
		Context:   ctx,
	}
}

// Journal is the sink for a single run.
type Journal interface {
	RunID() string
	RecordStep(ctx context.Context, step Step) error
	RecordError(ctx context.Context, entry Entry) error
	// Close marks the run finished with the final result text.
	Close(ctx context.Context, outcome string) error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Nop discards everything.
type Nop struct {
	ID string
}

var _ Journal = (*Nop)(nil)

func (n *Nop) RunID() string                            { return n.ID }
func (n *Nop) RecordStep(context.Context, Step) error   { return nil }
func (n *Nop) RecordError(context.Context, Entry) error { return nil }
func (n *Nop) Close(context.Context, string) error      { return nil }
