package scheduler

import (
	"path"
	"sort"
	"strings"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/depgraph"
	"github.com/xkilldash9x/codesmith-cli/internal/templates"
)

// ProjectData returns the template values shared by every file of the
// project: names, stack and the locations of the entry point and assets.
func (s *Scheduler) ProjectData() templates.Data {
	d := templates.Data{
		ProjectName:       s.projectName(),
		BackendFramework:  s.stack(),
		StorageType:       s.design.StorageType(),
		PythonPath:        s.cfg.Generation().PythonPath,
		FrontendDir:       "frontend",
		BackendModulePath: "main",
	}
	if s.spec != nil {
		d.FrontendFramework = s.spec.TechnologyStack.Frontend.Framework
	}

	for _, n := range s.graph.Order() {
		ext := strings.ToLower(path.Ext(n.Path))
		switch {
		case n.Role == schemas.RoleEntrypoint && d.EntryFile == "" && (ext == ".py" || ext == ".js"):
			d.EntryFile = n.Path
			if ext == ".py" {
				d.BackendModulePath = depgraph.DottedPath(n.Path)
			}
		case ext == ".html" && d.FrontendDir == "frontend" && path.Dir(n.Path) != ".":
			d.FrontendDir = path.Dir(n.Path)
		case ext == ".css" && d.CSSPath == "":
			d.CSSPath = n.Path
		case ext == ".js" && n.Role == schemas.RoleFrontend:
			d.JSFiles = append(d.JSFiles, n.Path)
		}
	}
	return d
}

// templateData adds the values specific to node to ProjectData.
func (s *Scheduler) templateData(node *depgraph.Node) templates.Data {
	d := s.ProjectData()
	d.FilePath = node.Path
	d.Role = string(node.Role)
	d.IsEntrypoint = node.Role == schemas.RoleEntrypoint

	if kind, ok := s.deps.Templates.SpecialFile(s.stack(), node.Path); ok && kind == templates.KindRequirements {
		d.Dependencies = s.designPackages()
		return d
	}

	for _, line := range strings.Split(strings.TrimSpace(s.ctx.Describe(node.DependsOn)), "\n") {
		if line != "" {
			d.Dependencies = append(d.Dependencies, strings.TrimPrefix(line, "- "))
		}
	}
	for _, imp := range s.ctx.RequiredImports(node.Path) {
		d.Dependencies = append(d.Dependencies, "required import: "+imp)
	}
	d.DesignJSON = compactJSON(s.design.Raw)
	if s.spec != nil {
		d.SpecJSON = compactJSON(s.spec.Raw)
	}
	return d
}

func (s *Scheduler) projectName() string {
	if s.spec != nil && s.spec.ProjectOverview.ProjectName != "" {
		return s.spec.ProjectOverview.ProjectName
	}
	if s.design.FolderStructure.RootName != "" {
		return s.design.FolderStructure.RootName
	}
	return "project"
}

// designPackages collects package names listed under the design's backend
// dependencies, or anywhere in the dependencies section when it has no
// backend key.
func (s *Scheduler) designPackages() []string {
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		}
	}
	if backend, ok := s.design.Dependencies["backend"]; ok {
		walk(backend)
	} else {
		walk(s.design.Dependencies)
	}
	return out
}

func compactJSON(v map[string]any) string {
	if len(v) == 0 {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
