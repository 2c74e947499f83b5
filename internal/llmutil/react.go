package llmutil

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// PauseToken marks a complete action request. Responses without it are treated
// as truncated.
const PauseToken = "PAUSE"

var (
	thoughtRegex = regexp.MustCompile(`(?s)Thought:\s*(.*?)(?:Action:|Answer:|$)`)
	answerRegex  = regexp.MustCompile(`(?s)Answer:\s*(.*)$`)
	actionRegex  = regexp.MustCompile(`Action:[ \t]*(\w+)[ \t]*:?`)
	pauseRegex   = regexp.MustCompile(`\bPAUSE\b`)
)

// ErrUnterminatedInput is reported when an action block opens a brace that never closes.
var ErrUnterminatedInput = errors.New("unterminated input block")

// ReActResult is the structured view of one model turn.
type ReActResult struct {
	Thought string
	Action  string
	// RawInput is the action block exactly as it appeared.
	RawInput string
	Input    map[string]any
	// InputErr is set when an action was named but its input is not a JSON object.
	InputErr error
	Paused   bool
	// Answer is non-nil when the turn is terminal.
	Answer *string
}

// HasAnswer reports whether the turn ends the task.
func (r ReActResult) HasAnswer() bool { return r.Answer != nil }

// ParseReAct extracts the Thought / Action / Input / PAUSE / Answer fields from
// free-form model text. An Answer takes precedence over anything else in the text.
func ParseReAct(text string) ReActResult {
	var res ReActResult
	if m := thoughtRegex.FindStringSubmatch(text); m != nil {
		res.Thought = strings.TrimSpace(m[1])
	}

	if m := answerRegex.FindStringSubmatch(text); m != nil {
		answer := strings.TrimSpace(m[1])
		res.Answer = &answer
		return res
	}

	res.Paused = pauseRegex.MatchString(text)

	loc := actionRegex.FindStringSubmatchIndex(text)
	if loc == nil {
		return res
	}
	res.Action = text[loc[2]:loc[3]]

	raw, err := actionBlock(text[loc[1]:])
	res.RawInput = raw
	if err != nil {
		res.InputErr = err
		return res
	}
	if raw == "" {
		res.Input = map[string]any{}
		return res
	}

	input := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		res.InputErr = err
		return res
	}
	res.Input = input
	return res
}

// actionBlock returns the balanced {...} block at the start of rest. Text that
// does not open with a brace is returned up to the pause token as an invalid block.
func actionBlock(rest string) (string, error) {
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if trimmed == "" || strings.HasPrefix(trimmed, PauseToken) {
		return "", nil
	}
	if trimmed[0] != '{' {
		if idx := pauseRegex.FindStringIndex(trimmed); idx != nil {
			trimmed = trimmed[:idx[0]]
		}
		raw := strings.TrimSpace(trimmed)
		return raw, fmt.Errorf("input must be a JSON object, got %q", Truncate(raw, 80))
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return trimmed[:i+1], nil
			}
		}
	}
	return strings.TrimSpace(trimmed), ErrUnterminatedInput
}

// FormatAction renders an action request in the grammar ParseReAct accepts.
func FormatAction(name string, input map[string]any) string {
	if input == nil {
		input = map[string]any{}
	}
	var buf bytes.Buffer
	buf.WriteString("Action: ")
	buf.WriteString(name)
	buf.WriteString(": ")
	body, err := json.Marshal(input)
	if err != nil {
		body = []byte("{}")
	}
	buf.Write(body)
	buf.WriteString("\n")
	buf.WriteString(PauseToken)
	return buf.String()
}
