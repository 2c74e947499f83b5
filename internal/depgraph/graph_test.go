package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
)

func todoManifest() []schemas.ManifestEntry {
	return []schemas.ManifestEntry{
		{Path: "/todo_app", Description: "Root project directory"},
		{Path: "/todo_app/backend", Description: "Backend source directory"},
		{Path: "backend/app/main.py", Description: "Main application entry point"},
		{Path: "backend/app/routes/tasks.py", Description: "Task API routes"},
		{Path: "backend/app/schemas.py", Description: "Pydantic schemas"},
		{Path: "backend/app/models.py", Description: "Database models file"},
		{Path: "backend/app/database.py", Description: "Database config file"},
		{Path: "backend/app/crud.py", Description: "CRUD helpers"},
		{Path: "backend/requirements.txt", Description: "Python dependencies"},
		{Path: "frontend/index.html", Description: "Main HTML page"},
		{Path: "frontend/js/app.js", Description: "Main JavaScript file"},
		{Path: "frontend/css/style.css", Description: "Stylesheet"},
	}
}

func TestClassifyRole(t *testing.T) {
	testCases := []struct {
		path, desc string
		want       schemas.Role
	}{
		{"backend/app/database.py", "Database config file", schemas.RoleDatabase},
		{"backend/app/models.py", "Database models file", schemas.RoleModel},
		{"backend/app/schemas.py", "Request and response schemas", schemas.RoleModel},
		{"backend/app/core/config.py", "Application settings", schemas.RoleConfig},
		{"backend/app/settings_loader.py", "Loads env", schemas.RoleConfig},
		{"backend/requirements.txt", "Python dependencies", schemas.RoleConfig},
		{"backend/app/helpers.py", "Shared config helpers", schemas.RoleConfig},
		{"backend/app/db/base.py", "Declarative base", schemas.RoleDatabase},
		{"backend/app/connection.py", "Database connection setup", schemas.RoleDatabase},
		{"backend/app/routes/tasks.py", "Task routes", schemas.RoleRoute},
		{"backend/app/api.py", "REST endpoints", schemas.RoleRoute},
		{"backend/app/main.py", "FastAPI app", schemas.RoleEntrypoint},
		{"server.js", "Express server", schemas.RoleEntrypoint},
		{"backend/app/bootstrap.py", "Application entry point", schemas.RoleEntrypoint},
		{"backend/app/domain.py", "Domain logic", schemas.RoleOther},
		{"frontend/index.html", "Main HTML page", schemas.RoleFrontend},
		{"frontend/js/app.js", "Main JavaScript file", schemas.RoleFrontend},
		{"frontend/js/api.js", "Calls the backend", schemas.RoleFrontend},
		{"frontend/views/list.html", "List view", schemas.RoleFrontend},
		{"frontend/css/style.css", "Main stylesheet", schemas.RoleFrontend},
		{"run.bat", "Launcher", schemas.RoleOther},
		{"README.md", "Docs", schemas.RoleOther},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			got := ClassifyRole(schemas.ManifestEntry{Path: tc.path, Description: tc.desc})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildOrdersByRole(t *testing.T) {
	g := Build(todoManifest())

	assert.Equal(t, []string{
		"backend/requirements.txt",
		"backend/app/database.py",
		"backend/app/schemas.py",
		"backend/app/models.py",
		"backend/app/routes/tasks.py",
		"backend/app/crud.py",
		"frontend/index.html",
		"frontend/js/app.js",
		"frontend/css/style.css",
		"backend/app/main.py",
	}, g.Paths())
	assert.Equal(t, 10, g.Len())

	for i := 1; i < g.Len(); i++ {
		prev, cur := g.Order()[i-1], g.Order()[i]
		assert.LessOrEqual(t, prev.Role.Rank(), cur.Role.Rank())
	}
}

func TestDatabaseBeforeModels(t *testing.T) {
	g := Build([]schemas.ManifestEntry{
		{Path: "backend/models.py", Description: "Database models file"},
		{Path: "backend/database.py", Description: "Database config file"},
	})
	assert.Less(t, g.Index("backend/database.py"), g.Index("backend/models.py"))
}

func TestModelAlwaysBeforeRoute(t *testing.T) {
	manifests := [][]schemas.ManifestEntry{
		todoManifest(),
		{
			{Path: "api/routes.py", Description: "routes"},
			{Path: "api/models.py", Description: "models"},
		},
		{
			{Path: "app/views/users.py", Description: "User views"},
			{Path: "app/views/items.py", Description: "Item views"},
			{Path: "app/model/user.py", Description: "User model"},
			{Path: "app/model/item.py", Description: "Item model"},
		},
	}
	for _, m := range manifests {
		g := Build(m)
		for _, model := range g.ByRole(schemas.RoleModel) {
			for _, route := range g.ByRole(schemas.RoleRoute) {
				assert.Less(t, g.Index(model.Path), g.Index(route.Path), "%s before %s", model.Path, route.Path)
			}
		}
	}
}

func TestBuildDependencies(t *testing.T) {
	g := Build(todoManifest())

	route, ok := g.Node("/backend/app/routes/tasks.py")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"backend/app/database.py", "backend/app/schemas.py", "backend/app/models.py"}, route.DependsOn)
	assert.True(t, g.DependsOnRole(route.Path, schemas.RoleDatabase))
	assert.False(t, g.DependsOnRole(route.Path, schemas.RoleEntrypoint))

	models, _ := g.Node("backend/app/models.py")
	assert.Equal(t, []string{"backend/app/database.py"}, models.DependsOn)

	index, _ := g.Node("frontend/index.html")
	assert.Empty(t, index.DependsOn)

	main, _ := g.Node("backend/app/main.py")
	assert.Len(t, main.DependsOn, 5)

	assert.False(t, g.DependsOnRole("missing.py", schemas.RoleDatabase))
	assert.Equal(t, -1, g.Index("missing.py"))
}

func TestBuildSkipsDuplicatesAndDirectories(t *testing.T) {
	g := Build([]schemas.ManifestEntry{
		{Path: "backend/", Description: "backend directory"},
		{Path: "backend/main.py", Description: "entry"},
		{Path: "/backend/main.py", Description: "entry again"},
	})
	assert.Equal(t, []string{"backend/main.py"}, g.Paths())
}

func TestDottedPath(t *testing.T) {
	assert.Equal(t, "backend.app.models", DottedPath("/backend/app/models.py"))
	assert.Equal(t, "backend.app", DottedPath("backend/app/__init__.py"))
	assert.Equal(t, "main", DottedPath("main.py"))
}
