// Package templates renders the files and prompts that do not come straight
// from the Generator: run scripts, dependency manifests, env files and the
// per-file generation prompt.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"
)

//go:embed assets/*.tmpl
var assets embed.FS

// Kind selects a template within a stack.
type Kind string

const (
	KindRunScript    Kind = "run_script"
	KindRequirements Kind = "requirements"
	KindEnvFile      Kind = "env_file"
	KindFilePrompt   Kind = "file_prompt"
)

const (
	StackFastAPI = "fastapi"
	StackNodeJS  = "nodejs"
)

// Data is the union of values any template may reference.
type Data struct {
	ProjectName       string
	FilePath          string
	Role              string
	BackendFramework  string
	FrontendFramework string
	StorageType       string
	BackendModulePath string
	FrontendDir       string
	CSSPath           string
	JSFiles           []string
	EntryFile         string
	PythonPath        string
	IsEntrypoint      bool
	// Dependencies holds package names for requirements, or dependency
	// summaries for the file prompt.
	Dependencies []string
	DesignJSON   string
	SpecJSON     string
}

// BaseRequirements are always installed for FastAPI projects.
var BaseRequirements = []string{"fastapi[all]", "uvicorn[standard]", "sqlalchemy", "pydantic", "python-dotenv"}

var funcs = template.FuncMap{
	"modulePath": func(dotted string) string { return strings.ReplaceAll(dotted, ".", "/") },
}

// Manager holds the parsed templates for every supported stack.
type Manager struct {
	byStack map[string]map[Kind]*template.Template
}

// NewManager parses the embedded templates.
func NewManager() (*Manager, error) {
	files := map[string]map[Kind]string{
		StackFastAPI: {
			KindRunScript:    "assets/fastapi_run.bat.tmpl",
			KindRequirements: "assets/fastapi_requirements.txt.tmpl",
			KindEnvFile:      "assets/env.tmpl",
			KindFilePrompt:   "assets/file_prompt.tmpl",
		},
		StackNodeJS: {
			KindRunScript:  "assets/nodejs_run.bat.tmpl",
			KindEnvFile:    "assets/env.tmpl",
			KindFilePrompt: "assets/file_prompt.tmpl",
		},
	}

	m := &Manager{byStack: make(map[string]map[Kind]*template.Template, len(files))}
	for stack, kinds := range files {
		m.byStack[stack] = make(map[Kind]*template.Template, len(kinds))
		for kind, file := range kinds {
			tpl, err := template.New(path.Base(file)).Funcs(funcs).ParseFS(assets, file)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", file, err)
			}
			m.byStack[stack][kind] = tpl
		}
	}
	return m, nil
}

// NormalizeStack maps a framework name to a supported stack, defaulting to FastAPI.
func NormalizeStack(stack string) string {
	s := strings.ToLower(strings.TrimSpace(stack))
	switch {
	case strings.Contains(s, "node"), strings.Contains(s, "express"):
		return StackNodeJS
	default:
		return StackFastAPI
	}
}

// Has reports whether stack defines kind.
func (m *Manager) Has(stack string, kind Kind) bool {
	_, ok := m.byStack[NormalizeStack(stack)][kind]
	return ok
}

// Render executes the template for (stack, kind).
func (m *Manager) Render(stack string, kind Kind, data Data) (string, error) {
	stack = NormalizeStack(stack)
	tpl, ok := m.byStack[stack][kind]
	if !ok {
		return "", fmt.Errorf("no %s template for stack %s", kind, stack)
	}
	if kind == KindRequirements {
		data.Dependencies = MergeRequirements(data.Dependencies)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", stack, kind, err)
	}
	return buf.String(), nil
}

// SpecialFile returns the template kind that renders relPath without the
// Generator, if any.
func (m *Manager) SpecialFile(stack, relPath string) (Kind, bool) {
	var kind Kind
	switch strings.ToLower(path.Base(relPath)) {
	case "requirements.txt":
		kind = KindRequirements
	case ".env":
		kind = KindEnvFile
	default:
		return "", false
	}
	return kind, m.Has(stack, kind)
}

// MergeRequirements unions deps with BaseRequirements, sorted and de-duplicated
// by package name.
func MergeRequirements(deps []string) []string {
	seen := make(map[string]string)
	for _, d := range append(append([]string{}, BaseRequirements...), deps...) {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		key := strings.ToLower(d)
		if i := strings.IndexAny(key, "[=<>~! "); i > 0 {
			key = key[:i]
		}
		if _, dup := seen[key]; !dup {
			seen[key] = d
		}
	}
	out := make([]string, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
