package consistency

import (
	"strings"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/classify"
)

// AutoFixer applies import fixes to file text.
type AutoFixer struct{}

// Apply returns content with fixes applied and the number that changed it.
// A replace whose original line is gone and an add whose line is already
// present are skipped, so applying the same fixes twice is harmless.
func (AutoFixer) Apply(content string, fixes []schemas.FixSuggestion) (string, int) {
	applied := 0
	for _, fix := range fixes {
		if fix.Action != schemas.FixReplaceImport {
			continue
		}
		replaced, ok := replaceLines(content, fix.Original, fix.Payload)
		if !ok {
			continue
		}
		content = replaced
		applied++
	}
	for _, fix := range fixes {
		if fix.Action != schemas.FixAddImport || hasLine(content, fix.Payload) {
			continue
		}
		content = insertImport(content, fix.Payload)
		applied++
	}
	return content, applied
}

// replaceLines swaps the first run of whole lines matching original, compared
// trimmed, for payload. Text inside other lines, comments included, is never
// touched.
func replaceLines(content, original, payload string) (string, bool) {
	if strings.TrimSpace(original) == "" {
		return content, false
	}
	lines := strings.Split(content, "\n")
	want := strings.Split(original, "\n")
	for i := 0; i+len(want) <= len(lines); i++ {
		if !sameLines(lines[i:i+len(want)], want) {
			continue
		}
		out := make([]string, 0, len(lines))
		out = append(out, lines[:i]...)
		out = append(out, strings.Split(payload, "\n")...)
		out = append(out, lines[i+len(want):]...)
		return strings.Join(out, "\n"), true
	}
	return content, false
}

func sameLines(got, want []string) bool {
	for i := range want {
		if strings.TrimSpace(got[i]) != strings.TrimSpace(want[i]) {
			return false
		}
	}
	return true
}

func hasLine(content, line string) bool {
	want := strings.TrimSpace(line)
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}

// insertImport places line after the last top-level import, or after the
// leading comment and docstring block when the file has no imports.
func insertImport(content, line string) string {
	if content == "" {
		return line + "\n"
	}
	lines := strings.Split(content, "\n")
	at := 0
	for _, stmt := range classify.ScanImports(content) {
		if stmt.TopLevel() && stmt.EndLineNo > at {
			at = stmt.EndLineNo
		}
	}
	if at == 0 {
		at = leadingBlockEnd(lines)
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, strings.TrimLeft(line, " \t"))
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n")
}

func leadingBlockEnd(lines []string) int {
	i := 0
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(t, "#"):
			i++
		case strings.HasPrefix(t, `"""`) || strings.HasPrefix(t, "'''"):
			q := t[:3]
			if len(t) >= 6 && strings.HasSuffix(t, q) {
				i++
				continue
			}
			j := i + 1
			for j < len(lines) && !strings.Contains(lines[j], q) {
				j++
			}
			if j >= len(lines) {
				return 0
			}
			i = j + 1
		default:
			return i
		}
	}
	return i
}
