// Package depgraph derives a role per manifest file and the total order files
// are generated in.
//
// Files are not linked pairwise. Every file gets a Role and files are sorted by
// the fixed role precedence, so the order is acyclic by construction and files
// of the same role keep their manifest order.
package depgraph

import (
	"path"
	"sort"
	"strings"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
)

// dependsOnRoles lists, per role, the roles whose files a file may import from.
var dependsOnRoles = map[schemas.Role][]schemas.Role{
	schemas.RoleConfig:     nil,
	schemas.RoleDatabase:   {schemas.RoleConfig},
	schemas.RoleModel:      {schemas.RoleDatabase},
	schemas.RoleRoute:      {schemas.RoleDatabase, schemas.RoleModel},
	schemas.RoleEntrypoint: {schemas.RoleConfig, schemas.RoleDatabase, schemas.RoleModel, schemas.RoleRoute},
	schemas.RoleOther:      {schemas.RoleConfig},
	schemas.RoleFrontend:   nil,
}

// Node is one file of the graph.
type Node struct {
	Path        string
	Description string
	Role        schemas.Role
	// ManifestIndex is the position among the manifest's files.
	ManifestIndex int
	// DependsOn holds the paths of earlier-role files this one may reference.
	DependsOn []string
}

// Graph is the scheduled view of a manifest.
type Graph struct {
	order  []*Node
	byPath map[string]*Node
}

// Build classifies every non-directory entry and orders the result. Entries
// repeating an earlier path are ignored.
func Build(entries []schemas.ManifestEntry) *Graph {
	g := &Graph{byPath: make(map[string]*Node)}
	for _, e := range entries {
		p := e.CleanPath()
		if e.IsDirectory() || p == "" {
			continue
		}
		if _, dup := g.byPath[p]; dup {
			continue
		}
		n := &Node{Path: p, Description: e.Description, Role: ClassifyRole(e), ManifestIndex: len(g.order)}
		g.order = append(g.order, n)
		g.byPath[p] = n
	}

	sort.SliceStable(g.order, func(i, j int) bool {
		return g.order[i].Role.Rank() < g.order[j].Role.Rank()
	})

	for _, n := range g.order {
		for _, dep := range dependsOnRoles[n.Role] {
			for _, other := range g.order {
				if other.Role == dep && other != n {
					n.DependsOn = append(n.DependsOn, other.Path)
				}
			}
		}
	}
	return g
}

// Order returns the nodes in generation order.
func (g *Graph) Order() []*Node {
	return append([]*Node(nil), g.order...)
}

// Len returns the number of files.
func (g *Graph) Len() int { return len(g.order) }

// Node looks up a file by path.
func (g *Graph) Node(p string) (*Node, bool) {
	n, ok := g.byPath[schemas.NormalizePath(p)]
	return n, ok
}

// Index returns the scheduled position of p, or -1.
func (g *Graph) Index(p string) int {
	p = schemas.NormalizePath(p)
	for i, n := range g.order {
		if n.Path == p {
			return i
		}
	}
	return -1
}

// ByRole returns the files of one role in generation order.
func (g *Graph) ByRole(role schemas.Role) []*Node {
	var out []*Node
	for _, n := range g.order {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// DependsOnRole reports whether p declares a dependency on a file of role.
func (g *Graph) DependsOnRole(p string, role schemas.Role) bool {
	n, ok := g.Node(p)
	if !ok {
		return false
	}
	for _, dep := range n.DependsOn {
		if d, ok := g.byPath[dep]; ok && d.Role == role {
			return true
		}
	}
	return false
}

// Paths returns every file path in generation order.
func (g *Graph) Paths() []string {
	out := make([]string, len(g.order))
	for i, n := range g.order {
		out[i] = n.Path
	}
	return out
}

// DottedPath converts a Python file path to its import path:
// "backend/app/models.py" becomes "backend.app.models".
func DottedPath(p string) string {
	p = schemas.NormalizePath(p)
	p = strings.TrimSuffix(p, path.Ext(p))
	p = strings.TrimSuffix(p, "/__init__")
	return strings.ReplaceAll(p, "/", ".")
}
