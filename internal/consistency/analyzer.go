package consistency

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/depgraph"
)

// ImportAnalyzer finds imports that source a name from the wrong module and
// imports that a file needs but lacks.
type ImportAnalyzer struct {
	ctx    *ProjectContext
	cfg    config.ConsistencyConfig
	logger *zap.Logger
}

// NewImportAnalyzer creates an analyzer reading declarations from ctx.
func NewImportAnalyzer(ctx *ProjectContext, cfg config.ConsistencyConfig, logger *zap.Logger) *ImportAnalyzer {
	return &ImportAnalyzer{ctx: ctx, cfg: cfg, logger: logger.Named("import_analyzer")}
}

// importEntry is one imported name with the text it appeared as, alias included.
type importEntry struct {
	name string
	text string
}

// Analyze returns the import fixes a classified file needs. Only Python files
// are analyzed.
func (a *ImportAnalyzer) Analyze(filePath string, res schemas.ClassificationResult) []schemas.FixSuggestion {
	if path.Ext(filePath) != ".py" {
		return nil
	}
	var fixes []schemas.FixSuggestion
	imported := map[string]bool{}
	for _, stmt := range res.Imports {
		for _, n := range stmt.Names {
			imported[n] = true
		}
		if len(stmt.Names) == 0 {
			continue
		}
		switch {
		case a.isModelImport(stmt.Module):
			fixes = append(fixes, a.splitImport(stmt, a.schemaModuleFor(stmt.Module), a.misplacedSchema, "validation schema")...)
		case a.isSchemaImport(stmt.Module):
			fixes = append(fixes, a.splitImport(stmt, a.modelModuleFor(stmt.Module), a.misplacedModel, "persistent model")...)
		}
	}
	fixes = append(fixes, a.missingImports(filePath, res, imported)...)

	if len(fixes) > 0 {
		a.logger.Debug("Import issues found", zap.String("path", filePath), zap.Int("count", len(fixes)))
	}
	return fixes
}

// splitImport moves the misplaced names of stmt to target and keeps the rest
// where they were. No name is ever dropped.
func (a *ImportAnalyzer) splitImport(stmt schemas.ImportStatement, target string, misplaced func(string) bool, what string) []schemas.FixSuggestion {
	if target == "" || target == stmt.Module {
		return nil
	}
	var moved, kept []importEntry
	for _, e := range importEntries(stmt.Line) {
		if misplaced(e.name) {
			moved = append(moved, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(moved) == 0 {
		return nil
	}

	indent := leadingIndent(stmt.Line)
	names := make([]string, len(moved))
	for i, e := range moved {
		names[i] = e.name
	}
	fixes := []schemas.FixSuggestion{{
		Action:   schemas.FixReplaceImport,
		Original: stmt.Line,
		Payload:  indent + importLine(target, moved),
		Reason:   fmt.Sprintf("%s %s imported from %s instead of %s", what, strings.Join(names, ", "), stmt.Module, target),
	}}
	if len(kept) > 0 {
		fixes = append(fixes, schemas.FixSuggestion{
			Action:  schemas.FixAddImport,
			Payload: indent + importLine(stmt.Module, kept),
			Reason:  fmt.Sprintf("keep remaining names imported from %s", stmt.Module),
		})
	}
	return fixes
}

func (a *ImportAnalyzer) misplacedSchema(name string) bool {
	if a.ctx.IsModelClass(name) {
		return false
	}
	return a.ctx.IsSchemaClass(name) || a.looksLikeSchema(name)
}

func (a *ImportAnalyzer) misplacedModel(name string) bool {
	return a.ctx.IsModelClass(name) && !a.ctx.IsSchemaClass(name) && !a.looksLikeSchema(name)
}

// looksLikeSchema applies the schema naming convention: a capitalized name
// carrying one of the configured suffixes after a non-empty stem.
func (a *ImportAnalyzer) looksLikeSchema(name string) bool {
	if name == "" || !unicode.IsUpper(rune(name[0])) || name == a.cfg.BaseName || name == a.cfg.ValidationBase {
		return false
	}
	for _, base := range a.cfg.PersistenceBases {
		if name == base {
			return false
		}
	}
	for _, suffix := range a.cfg.SchemaSuffixes {
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (a *ImportAnalyzer) isModelImport(module string) bool {
	f, ok := a.ctx.ModelModule()
	if !ok {
		return lastSegment(module) == "models" || lastSegment(module) == "model"
	}
	return moduleMatches(module, depgraph.DottedPath(f))
}

func (a *ImportAnalyzer) isSchemaImport(module string) bool {
	f, ok := a.ctx.SchemaModule()
	if !ok {
		return lastSegment(module) == "schemas" || lastSegment(module) == "schema"
	}
	return moduleMatches(module, depgraph.DottedPath(f))
}

func (a *ImportAnalyzer) schemaModuleFor(module string) string {
	if f, ok := a.ctx.SchemaModule(); ok {
		return restyle(module, depgraph.DottedPath(f))
	}
	return swapLastSegment(module, map[string]string{"models": "schemas", "model": "schema"})
}

func (a *ImportAnalyzer) modelModuleFor(module string) string {
	if f, ok := a.ctx.ModelModule(); ok {
		return restyle(module, depgraph.DottedPath(f))
	}
	return swapLastSegment(module, map[string]string{"schemas": "models", "schema": "model"})
}

// missingImports adds the imports the file's planned role requires: the
// declarative base for a model, the session accessor for a route or
// entrypoint depending on the database. Names the file already imports or
// declares are left alone.
func (a *ImportAnalyzer) missingImports(filePath string, res schemas.ClassificationResult, imported map[string]bool) []schemas.FixSuggestion {
	if res.Kind == schemas.KindValidationSchema {
		return nil
	}
	declared := map[string]bool{}
	for _, fn := range res.Functions {
		declared[fn] = true
	}
	for _, v := range res.Variables {
		declared[v] = true
	}
	for _, s := range res.Symbols {
		declared[s.Name] = true
	}

	var fixes []schemas.FixSuggestion
	for _, req := range a.ctx.Requirements(filePath) {
		if imported[req.Name] || declared[req.Name] {
			continue
		}
		module := a.databaseModuleFor(res.Imports, depgraph.DottedPath(req.File))
		fixes = append(fixes, schemas.FixSuggestion{
			Action:  schemas.FixAddImport,
			Payload: fmt.Sprintf("from %s import %s", module, req.Name),
			Reason:  fmt.Sprintf("%s is required here but not imported from %s", req.Name, module),
		})
	}
	return fixes
}

// databaseModuleFor writes the database module the way the file already
// writes project imports: same number of dropped leading packages, or a
// relative import when the file uses those.
func (a *ImportAnalyzer) databaseModuleFor(imports []schemas.ImportStatement, dbDotted string) string {
	projectModules := a.projectModules()
	for _, stmt := range imports {
		for _, full := range projectModules {
			if !moduleMatches(stmt.Module, full) {
				continue
			}
			if strings.HasPrefix(stmt.Module, ".") {
				return restyle(stmt.Module, dbDotted)
			}
			dropped := len(strings.Split(full, ".")) - len(strings.Split(stmt.Module, "."))
			segs := strings.Split(dbDotted, ".")
			if dropped > 0 && dropped < len(segs) {
				segs = segs[dropped:]
			}
			return strings.Join(segs, ".")
		}
	}
	return dbDotted
}

func (a *ImportAnalyzer) projectModules() []string {
	var out []string
	if g := a.ctx.Graph(); g != nil {
		for _, p := range g.Paths() {
			if path.Ext(p) == ".py" {
				out = append(out, depgraph.DottedPath(p))
			}
		}
	}
	return out
}

// importEntries re-reads the names of a from-import with their aliases.
func importEntries(line string) []importEntry {
	i := strings.Index(line, " import ")
	if i < 0 {
		return nil
	}
	var cleaned []string
	for _, l := range strings.Split(line[i+len(" import "):], "\n") {
		if j := strings.Index(l, "#"); j >= 0 {
			l = l[:j]
		}
		cleaned = append(cleaned, l)
	}
	body := strings.NewReplacer("(", " ", ")", " ", "\\", " ").Replace(strings.Join(cleaned, " "))
	var out []importEntry
	for _, part := range strings.Split(body, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		out = append(out, importEntry{name: fields[0], text: strings.Join(fields, " ")})
	}
	return out
}

func importLine(module string, entries []importEntry) string {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.text
	}
	return fmt.Sprintf("from %s import %s", module, strings.Join(texts, ", "))
}

func leadingIndent(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func lastSegment(module string) string {
	module = strings.TrimLeft(module, ".")
	return module[strings.LastIndex(module, ".")+1:]
}

func swapLastSegment(module string, swaps map[string]string) string {
	last := lastSegment(module)
	repl, ok := swaps[last]
	if !ok {
		return ""
	}
	return module[:len(module)-len(last)] + repl
}

// moduleMatches reports whether an import path names the file whose full
// dotted path is full. Imports may omit leading packages or be relative.
func moduleMatches(module, full string) bool {
	module = strings.TrimLeft(module, ".")
	if module == "" {
		return false
	}
	return module == full || strings.HasSuffix(full, "."+module)
}

// restyle rewrites target in the shape of module: the same relative dots and
// the same number of trailing packages.
func restyle(module, target string) string {
	dots := module[:len(module)-len(strings.TrimLeft(module, "."))]
	n := len(strings.Split(strings.TrimLeft(module, "."), "."))
	segs := strings.Split(target, ".")
	if n < len(segs) {
		segs = segs[len(segs)-n:]
	}
	return dots + strings.Join(segs, ".")
}
