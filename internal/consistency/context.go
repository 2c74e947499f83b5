// Package consistency keeps a codebase generated one file at a time coherent.
// It tracks what every generated file declares and repairs imports that point
// at the wrong module.
package consistency

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/depgraph"
)

// ClassInfo records where a class was declared and how it was tagged.
type ClassInfo struct {
	Name string
	File string
	Tag  schemas.SymbolTag
}

// ProjectContext is the registry of declarations across generated files. The
// same class name may be declared in several files, typically once as a schema
// and once as a model.
type ProjectContext struct {
	cfg    config.ConsistencyConfig
	graph  *depgraph.Graph
	logger *zap.Logger

	mu        sync.RWMutex
	classes   map[string][]ClassInfo
	functions map[string]string
	files     map[string]schemas.ClassificationResult
}

// NewProjectContext creates an empty registry. graph may be nil, in which case
// module locations are learned from registered files only.
func NewProjectContext(cfg config.ConsistencyConfig, graph *depgraph.Graph, logger *zap.Logger) *ProjectContext {
	return &ProjectContext{
		cfg:       cfg,
		graph:     graph,
		logger:    logger.Named("project_context"),
		classes:   make(map[string][]ClassInfo),
		functions: make(map[string]string),
		files:     make(map[string]schemas.ClassificationResult),
	}
}

// Graph returns the dependency graph, if any.
func (p *ProjectContext) Graph() *depgraph.Graph { return p.graph }

// Register records every declaration of a classified file, replacing what an
// earlier version of the same file declared.
func (p *ProjectContext) Register(res schemas.ClassificationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.forgetLocked(res.Path)
	p.files[res.Path] = res
	for _, s := range res.Symbols {
		p.classes[s.Name] = append(p.classes[s.Name], ClassInfo{Name: s.Name, File: res.Path, Tag: s.Tag})
	}
	for _, fn := range res.Functions {
		p.functions[fn] = res.Path
	}
	p.logger.Debug("Registered file",
		zap.String("path", res.Path),
		zap.String("kind", string(res.Kind)),
		zap.Int("classes", len(res.Symbols)),
	)
}

func (p *ProjectContext) forgetLocked(file string) {
	if _, ok := p.files[file]; !ok {
		return
	}
	for name, infos := range p.classes {
		kept := infos[:0]
		for _, info := range infos {
			if info.File != file {
				kept = append(kept, info)
			}
		}
		if len(kept) == 0 {
			delete(p.classes, name)
		} else {
			p.classes[name] = kept
		}
	}
	for name, f := range p.functions {
		if f == file {
			delete(p.functions, name)
		}
	}
	delete(p.files, file)
}

func (p *ProjectContext) hasTag(name string, tag schemas.SymbolTag) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, info := range p.classes[name] {
		if info.Tag == tag {
			return true
		}
	}
	return false
}

// IsSchemaClass reports whether name was declared as a validation schema.
func (p *ProjectContext) IsSchemaClass(name string) bool { return p.hasTag(name, schemas.TagSchemaClass) }

// IsModelClass reports whether name was declared as a persistent model.
func (p *ProjectContext) IsModelClass(name string) bool { return p.hasTag(name, schemas.TagModelClass) }

// FunctionFile returns the file declaring function name.
func (p *ProjectContext) FunctionFile(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.functions[name]
	return f, ok
}

// File returns the registered classification of a generated file.
func (p *ProjectContext) File(filePath string) (schemas.ClassificationResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res, ok := p.files[schemas.NormalizePath(filePath)]
	return res, ok
}

// SchemaModule returns the file holding validation schemas.
func (p *ProjectContext) SchemaModule() (string, bool) {
	return p.locate(schemas.KindValidationSchema, func(n *depgraph.Node) bool {
		return n.Role == schemas.RoleModel && strings.Contains(strings.ToLower(n.Path), "schema")
	})
}

// ModelModule returns the file holding persistent models.
func (p *ProjectContext) ModelModule() (string, bool) {
	return p.locate(schemas.KindPersistentModel, func(n *depgraph.Node) bool {
		lower := strings.ToLower(n.Path)
		return n.Role == schemas.RoleModel && strings.Contains(lower, "model") && !strings.Contains(lower, "schema")
	})
}

// DatabaseModule returns the file holding the session accessor and the
// declarative base.
func (p *ProjectContext) DatabaseModule() (string, bool) {
	return p.locate(schemas.KindDatabase, func(n *depgraph.Node) bool {
		return n.Role == schemas.RoleDatabase
	})
}

// locate prefers the planned location from the graph and falls back to the
// first registered file of kind.
func (p *ProjectContext) locate(kind schemas.ContentKind, planned func(*depgraph.Node) bool) (string, bool) {
	if p.graph != nil {
		for _, n := range p.graph.Order() {
			if path.Ext(n.Path) == ".py" && planned(n) {
				return n.Path, true
			}
		}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var found []string
	for f, res := range p.files {
		if res.Kind == kind && path.Ext(f) == ".py" {
			found = append(found, f)
		}
	}
	if len(found) == 0 {
		return "", false
	}
	sort.Strings(found)
	return found[0], true
}

// ForbiddenRedefinitions lists classes already declared by other files, in
// the form "class Name" with the declaring file.
func (p *ProjectContext) ForbiddenRedefinitions(filePath string) []string {
	filePath = schemas.NormalizePath(filePath)
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []string
	for name, infos := range p.classes {
		for _, info := range infos {
			if info.File != filePath {
				out = append(out, fmt.Sprintf("class %s (defined in %s)", name, info.File))
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Requirement is a name a file must import and the file declaring it.
type Requirement struct {
	Name string
	File string
}

// Requirements lists what a file must import from the database layer, based
// on its planned role. A model needs the declarative base. A route or
// entrypoint that depends on the database needs the session accessor, taken
// from the file that declared it once that file is registered.
func (p *ProjectContext) Requirements(filePath string) []Requirement {
	dbFile, ok := p.DatabaseModule()
	if !ok || p.graph == nil {
		return nil
	}
	n, ok := p.graph.Node(filePath)
	if !ok || n.Path == dbFile || path.Ext(n.Path) != ".py" {
		return nil
	}
	switch {
	case n.Role == schemas.RoleModel && !strings.Contains(strings.ToLower(n.Path), "schema"):
		if p.cfg.BaseName == "" {
			return nil
		}
		return []Requirement{{Name: p.cfg.BaseName, File: dbFile}}
	case n.Role == schemas.RoleRoute || n.Role == schemas.RoleEntrypoint:
		if p.cfg.SessionAccessor == "" || !p.graph.DependsOnRole(n.Path, schemas.RoleDatabase) {
			return nil
		}
		file := dbFile
		if f, ok := p.FunctionFile(p.cfg.SessionAccessor); ok && f != n.Path {
			file = f
		}
		return []Requirement{{Name: p.cfg.SessionAccessor, File: file}}
	}
	return nil
}

// RequiredImports renders Requirements as import lines for generation prompts.
func (p *ProjectContext) RequiredImports(filePath string) []string {
	var out []string
	for _, r := range p.Requirements(filePath) {
		out = append(out, fmt.Sprintf("from %s import %s", depgraph.DottedPath(r.File), r.Name))
	}
	return out
}

// Describe summarizes what the given files declare, one line per file, for
// use in generation prompts. Files not generated yet are skipped.
func (p *ProjectContext) Describe(files []string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var b strings.Builder
	for _, f := range files {
		res, ok := p.files[schemas.NormalizePath(f)]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s, import as %s)", res.Path, res.Kind, depgraph.DottedPath(res.Path))
		var parts []string
		for _, s := range res.Symbols {
			parts = append(parts, fmt.Sprintf("class %s [%s]", s.Name, s.Tag))
		}
		for _, fn := range res.Functions {
			parts = append(parts, "def "+fn)
		}
		for _, v := range res.Variables {
			parts = append(parts, v)
		}
		if len(parts) > 0 {
			b.WriteString(": " + strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
