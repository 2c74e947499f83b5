package classify

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
)

var (
	fromImportRegex  = regexp.MustCompile(`^\s*from\s+([.\w]+)\s+import\s+(.*)$`)
	plainImportRegex = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s+as\s+\w+)?(?:\s*,\s*[\w.]+(?:\s+as\s+\w+)?)*)\s*(?:#.*)?$`)
	jsImportRegex    = regexp.MustCompile(`^\s*import\s+(?:(.+?)\s+from\s+)?['"]([^'"]+)['"]`)
	classRegex       = regexp.MustCompile(`^class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	funcRegex        = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`)
	jsFuncRegex      = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(`)
	assignRegex      = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?::[^=]+)?=[^=]`)
)

// ScanImports returns every import statement in content, joining parenthesized
// multi-line Python imports into one statement.
func ScanImports(content string) []schemas.ImportStatement {
	lines := strings.Split(content, "\n")
	var out []schemas.ImportStatement
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if m := fromImportRegex.FindStringSubmatch(line); m != nil {
			stmt := schemas.ImportStatement{Module: m[1], Line: line, LineNo: i + 1, EndLineNo: i + 1}
			names := stripComment(m[2])
			if strings.HasPrefix(strings.TrimSpace(names), "(") && !strings.Contains(names, ")") {
				block := []string{line}
				for j := i + 1; j < len(lines); j++ {
					block = append(block, lines[j])
					names += " " + stripComment(lines[j])
					if strings.Contains(lines[j], ")") {
						i = j
						break
					}
				}
				stmt.Line = strings.Join(block, "\n")
				stmt.EndLineNo = i + 1
			}
			stmt.Names = splitNames(names)
			out = append(out, stmt)
			continue
		}
		if m := plainImportRegex.FindStringSubmatch(line); m != nil {
			for _, mod := range splitNames(m[1]) {
				out = append(out, schemas.ImportStatement{Module: mod, Line: line, LineNo: i + 1, EndLineNo: i + 1})
			}
			continue
		}
		if m := jsImportRegex.FindStringSubmatch(line); m != nil {
			out = append(out, schemas.ImportStatement{
				Module: m[2], Names: splitNames(strings.Trim(m[1], "{} ")),
				Line: line, LineNo: i + 1, EndLineNo: i + 1,
			})
		}
	}
	return out
}

// splitNames splits "a, b as c, (d)" into the imported names a, b, d.
func splitNames(s string) []string {
	s = strings.NewReplacer("(", " ", ")", " ", "\\", " ").Replace(s)
	var out []string
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}

func stripComment(s string) string {
	if i := strings.Index(s, "#"); i >= 0 {
		return s[:i]
	}
	return s
}

// parents splits a class declaration's base list, dropping keyword arguments.
func parents(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || strings.Contains(p, "=") {
			continue
		}
		out = append(out, p)
	}
	return out
}
