package depgraph

import (
	"path"
	"regexp"
	"strings"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
)

var (
	configNames = map[string]bool{
		"config.py": true, "settings.py": true, ".env": true, "requirements.txt": true,
		"package.json": true, "config.js": true, ".env.example": true,
	}
	entryNames = map[string]bool{
		"main.py": true, "app.py": true, "run.py": true, "server.js": true,
		"index.js": true, "app.js": true, "main.js": true, "wsgi.py": true, "asgi.py": true,
	}
	frontendExts = map[string]bool{
		".html": true, ".htm": true, ".css": true, ".scss": true, ".js": true,
		".jsx": true, ".ts": true, ".tsx": true, ".vue": true,
	}
	markupExts = map[string]bool{".html": true, ".htm": true, ".css": true, ".scss": true}

	// frontendDirs are path segments that put a script under the frontend.
	frontendDirs = map[string]bool{
		"frontend": true, "static": true, "public": true, "client": true,
		"templates": true, "web": true, "ui": true, "assets": true,
	}

	databaseMarkers     = []string{"database", "session"}
	databaseBaseNames   = map[string]bool{"db.py": true, "db.js": true}
	databaseDescPhrases = []string{"database connection", "database config", "database setup", "database session", "db session"}
	modelMarkers        = []string{"model", "schema"}
	routeMarkers        = []string{"route", "router", "controller", "api", "endpoint", "view"}

	entryDescRegex = regexp.MustCompile(`\b(main|entry)\b`)
)

// rule is one step of the ordered classification; the first match wins.
type rule struct {
	role  schemas.Role
	match func(f facts) bool
}

// facts are the lower-cased views of an entry every rule reads.
type facts struct {
	path, base, ext, desc string
	segments              []string
}

func factsOf(e schemas.ManifestEntry) facts {
	p := strings.ToLower(e.CleanPath())
	segs := strings.Split(p, "/")
	return facts{
		path:     p,
		base:     path.Base(p),
		ext:      path.Ext(p),
		desc:     strings.ToLower(e.Description),
		segments: segs[:len(segs)-1],
	}
}

func (f facts) pathHasDatabaseMarker() bool {
	if databaseBaseNames[f.base] || containsAny(f.path, databaseMarkers) {
		return true
	}
	for _, s := range f.segments {
		if s == "db" {
			return true
		}
	}
	return false
}

func (f facts) inFrontendDir() bool {
	for _, s := range f.segments {
		if frontendDirs[s] {
			return true
		}
	}
	return false
}

var rules = []rule{
	{schemas.RoleConfig, func(f facts) bool {
		if configNames[f.base] || containsAny(f.path, []string{"config", "settings"}) {
			return true
		}
		// "Database config file" names a database module, not configuration.
		return containsAny(f.desc, []string{"config", "settings"}) &&
			!f.pathHasDatabaseMarker() && !containsAny(f.desc, databaseDescPhrases)
	}},
	{schemas.RoleDatabase, func(f facts) bool {
		return f.pathHasDatabaseMarker() || containsAny(f.desc, databaseDescPhrases)
	}},
	{schemas.RoleModel, func(f facts) bool {
		return containsAny(f.path, modelMarkers) && !markupExts[f.ext]
	}},
	{schemas.RoleRoute, func(f facts) bool {
		return containsAny(f.path, routeMarkers) && !markupExts[f.ext] && !f.inFrontendDir()
	}},
	{schemas.RoleEntrypoint, func(f facts) bool {
		if entryNames[f.base] && !f.inFrontendDir() {
			return true
		}
		return !frontendExts[f.ext] && entryDescRegex.MatchString(f.desc)
	}},
	{schemas.RoleFrontend, func(f facts) bool {
		return frontendExts[f.ext]
	}},
}

// ClassifyRole assigns exactly one role to a manifest entry.
func ClassifyRole(e schemas.ManifestEntry) schemas.Role {
	f := factsOf(e)
	for _, r := range rules {
		if r.match(f) {
			return r.role
		}
	}
	return schemas.RoleOther
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
