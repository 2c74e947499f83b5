package schemas

import (
	"strings"
)

// ManifestEntry is one record of the design document's folder structure.
type ManifestEntry struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// IsDirectory reports whether the entry names a directory. The word "directory"
// in the description is the entire contract.
func (e ManifestEntry) IsDirectory() bool {
	return strings.Contains(strings.ToLower(e.Description), "directory")
}

// CleanPath returns the entry path relative to the project root, using forward slashes.
func (e ManifestEntry) CleanPath() string {
	return NormalizePath(e.Path)
}

// NormalizePath strips surrounding slashes and converts backslashes.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	return strings.Trim(p, "/")
}

// Role is the coarse category of a manifest file used for generation scheduling.
type Role string

const (
	RoleConfig     Role = "config"
	RoleDatabase   Role = "database"
	RoleModel      Role = "model"
	RoleRoute      Role = "route"
	RoleEntrypoint Role = "entrypoint"
	RoleFrontend   Role = "frontend"
	RoleOther      Role = "other"
)

// roleRank is the fixed generation precedence.
var roleRank = map[Role]int{
	RoleConfig:     0,
	RoleDatabase:   1,
	RoleModel:      2,
	RoleRoute:      3,
	RoleOther:      4,
	RoleFrontend:   5,
	RoleEntrypoint: 6,
}

// Rank returns the role's position in the generation order. Unknown roles sort with RoleOther.
func (r Role) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return roleRank[RoleOther]
}

// FolderStructure is the manifest section of a design document.
type FolderStructure struct {
	RootName  string          `json:"root_Project_Directory_Name"`
	Structure []ManifestEntry `json:"structure"`
}

// DesignDocument holds the parts of a design document the engine reads.
// Everything else is preserved in Raw for prompt rendering.
type DesignDocument struct {
	FolderStructure FolderStructure `json:"folder_Structure"`
	Dependencies    map[string]any  `json:"dependencies,omitempty"`
	DataDesign      map[string]any  `json:"data_Design,omitempty"`
	Raw             map[string]any  `json:"-"`
}

// Files returns the non-directory manifest entries in document order.
func (d *DesignDocument) Files() []ManifestEntry {
	if d == nil {
		return nil
	}
	out := make([]ManifestEntry, 0, len(d.FolderStructure.Structure))
	for _, e := range d.FolderStructure.Structure {
		if e.IsDirectory() || strings.TrimSpace(e.Path) == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// StorageType returns data_Design.storage_Type or "sqlite".
func (d *DesignDocument) StorageType() string {
	if d != nil && d.DataDesign != nil {
		if s, ok := d.DataDesign["storage_Type"].(string); ok && s != "" {
			return s
		}
	}
	return "sqlite"
}

// SpecDocument holds the parts of a specification document the engine reads.
type SpecDocument struct {
	ProjectOverview struct {
		ProjectName string `json:"project_Name"`
	} `json:"project_Overview"`
	TechnologyStack struct {
		Backend  StackEntry `json:"backend"`
		Frontend StackEntry `json:"frontend"`
	} `json:"technology_Stack"`
	Raw map[string]any `json:"-"`
}

// StackEntry names a language/framework pair.
type StackEntry struct {
	Language  string `json:"language"`
	Framework string `json:"framework"`
}

// TechStack returns the lower-cased backend framework, defaulting to fastapi.
func (s *SpecDocument) TechStack() string {
	if s == nil || strings.TrimSpace(s.TechnologyStack.Backend.Framework) == "" {
		return "fastapi"
	}
	return strings.ToLower(strings.TrimSpace(s.TechnologyStack.Backend.Framework))
}
