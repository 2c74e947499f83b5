package consistency

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/classify"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/depgraph"
)

const modelsPy = `from sqlalchemy import Column, Integer, String
from backend.database import Base

class Task(Base):
    __tablename__ = "tasks"
    id = Column(Integer, primary_key=True)
`

const schemasPy = `from pydantic import BaseModel

class TaskBase(BaseModel):
    title: str

class TaskCreate(TaskBase):
    pass

class Task(TaskBase):
    id: int

    class Config:
        orm_mode = True
`

func todoGraph() *depgraph.Graph {
	return depgraph.Build([]schemas.ManifestEntry{
		{Path: "/backend", Description: "Backend directory"},
		{Path: "/backend/main.py", Description: "FastAPI entry point"},
		{Path: "/backend/routes.py", Description: "Task API routes"},
		{Path: "/backend/schemas.py", Description: "Pydantic schemas"},
		{Path: "/backend/models.py", Description: "SQLAlchemy models"},
		{Path: "/backend/database.py", Description: "Database config file"},
	})
}

type fixture struct {
	ctx       *ProjectContext
	validator *Validator
	cfg       config.ConsistencyConfig
}

func newFixture(t *testing.T, graph *depgraph.Graph) fixture {
	t.Helper()
	cfg := config.NewDefaultConfig().Consistency()
	logger := zaptest.NewLogger(t)
	ctx := NewProjectContext(cfg, graph, logger)
	classifier := classify.New(classify.MarkersFrom(cfg), cfg.CacheSize, logger)
	return fixture{ctx: ctx, validator: NewValidator(classifier, ctx, cfg, logger), cfg: cfg}
}

func (f fixture) register(t *testing.T, p, content string) {
	t.Helper()
	report := f.validator.ValidateAndFix(p, content)
	f.ctx.Register(report.Classification)
}

func TestMisplacedSchemaSplitsImport(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "app/models.py", "class Task(Base):\n    pass\n")

	content := "from fastapi import APIRouter\nfrom app.models import TaskCreate, Task\n\nrouter = APIRouter()\n"
	report := f.validator.ValidateAndFix("app/routes.py", content)

	want := []schemas.FixSuggestion{
		{
			Action:   schemas.FixReplaceImport,
			Original: "from app.models import TaskCreate, Task",
			Payload:  "from app.schemas import TaskCreate",
			Reason:   "validation schema TaskCreate imported from app.models instead of app.schemas",
		},
		{
			Action:  schemas.FixAddImport,
			Payload: "from app.models import Task",
			Reason:  "keep remaining names imported from app.models",
		},
	}
	if diff := cmp.Diff(want, report.Fixes); diff != "" {
		t.Errorf("fixes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, report.FixesApplied)
	assert.Equal(t,
		"from fastapi import APIRouter\nfrom app.schemas import TaskCreate\nfrom app.models import Task\n\nrouter = APIRouter()\n",
		report.FixedContent)

	second := f.validator.ValidateAndFix("app/routes.py", report.FixedContent)
	assert.Empty(t, second.Fixes, "fixed content must not need further fixes")
	assert.Equal(t, report.FixedContent, second.FixedContent)
}

func TestAllNamesMisplacedNeedsNoAdd(t *testing.T) {
	f := newFixture(t, nil)
	report := f.validator.ValidateAndFix("app/routes.py", "from app.models import TaskCreate, TaskUpdate\n")
	require.Len(t, report.Fixes, 1)
	assert.Equal(t, "from app.schemas import TaskCreate, TaskUpdate\n", report.FixedContent)
}

func TestReverseMisplacedModel(t *testing.T) {
	f := newFixture(t, todoGraph())
	f.register(t, "backend/database.py", "from sqlalchemy.orm import declarative_base\nBase = declarative_base()\n\ndef get_db():\n    pass\n")
	f.register(t, "backend/models.py", modelsPy)

	content := "from backend.schemas import Task\n\ndef show(t: Task):\n    return t\n"
	report := f.validator.ValidateAndFix("backend/routes.py", content)
	require.Len(t, report.Fixes, 2)
	assert.Equal(t, "from backend.models import Task", report.Fixes[0].Payload)
	assert.Equal(t, "from backend.database import get_db", report.Fixes[1].Payload)
	assert.Equal(t, "from backend.models import Task\nfrom backend.database import get_db\n\ndef show(t: Task):\n    return t\n", report.FixedContent)
}

func TestNameDeclaredAsBothStays(t *testing.T) {
	f := newFixture(t, todoGraph())
	f.register(t, "backend/models.py", modelsPy)
	f.register(t, "backend/schemas.py", schemasPy)

	for _, line := range []string{"from backend.models import Task\n", "from backend.schemas import Task\n"} {
		content := "from backend.database import get_db\n" + line
		report := f.validator.ValidateAndFix("backend/routes.py", content)
		assert.Empty(t, report.Fixes, line)
	}
}

func TestMissingSessionAccessorIsAdded(t *testing.T) {
	f := newFixture(t, todoGraph())
	f.register(t, "backend/models.py", modelsPy)
	f.register(t, "backend/schemas.py", schemasPy)

	content := `from fastapi import APIRouter, Depends
from backend.models import TaskCreate

router = APIRouter()

@router.post("/tasks/")
def create_task(task: TaskCreate, db=Depends(get_db)):
    return task
`
	report := f.validator.ValidateAndFix("backend/routes.py", content)
	assert.Equal(t, 2, report.FixesApplied)
	assert.Contains(t, report.FixedContent, "from backend.schemas import TaskCreate\nfrom backend.database import get_db\n")
	assert.NotContains(t, report.FixedContent, "from backend.models")

	second := f.validator.ValidateAndFix("backend/routes.py", report.FixedContent)
	assert.Empty(t, second.Fixes)
}

func TestRouteDependingOnDatabaseGetsSessionAccessor(t *testing.T) {
	f := newFixture(t, todoGraph())
	content := "from fastapi import APIRouter\n\nrouter = APIRouter()\n\n@router.get(\"/health\")\ndef health():\n    return {\"ok\": True}\n"
	report := f.validator.ValidateAndFix("backend/routes.py", content)

	want := []schemas.FixSuggestion{{
		Action:  schemas.FixAddImport,
		Payload: "from backend.database import get_db",
		Reason:  "get_db is required here but not imported from backend.database",
	}}
	if diff := cmp.Diff(want, report.Fixes); diff != "" {
		t.Errorf("fixes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t,
		"from fastapi import APIRouter\nfrom backend.database import get_db\n\nrouter = APIRouter()\n\n@router.get(\"/health\")\ndef health():\n    return {\"ok\": True}\n",
		report.FixedContent)

	second := f.validator.ValidateAndFix("backend/routes.py", report.FixedContent)
	assert.Empty(t, second.Fixes)
}

func TestSessionAccessorComesFromDeclaringFile(t *testing.T) {
	f := newFixture(t, todoGraph())
	f.register(t, "backend/session.py", "def get_db():\n    yield None\n")

	assert.Equal(t, []string{"from backend.session import get_db"}, f.ctx.RequiredImports("backend/routes.py"))
	report := f.validator.ValidateAndFix("backend/main.py", "from fastapi import FastAPI\n\napp = FastAPI()\n")
	require.Len(t, report.Fixes, 1)
	assert.Equal(t, "from backend.session import get_db", report.Fixes[0].Payload)
}

func TestRouteWithoutDatabaseNeedsNoAccessor(t *testing.T) {
	f := newFixture(t, depgraph.Build([]schemas.ManifestEntry{
		{Path: "/backend/main.py", Description: "FastAPI entry point"},
		{Path: "/backend/routes.py", Description: "Task API routes"},
	}))
	report := f.validator.ValidateAndFix("backend/routes.py", "from fastapi import APIRouter\n\nrouter = APIRouter()\n")
	assert.Empty(t, report.Fixes)
	assert.Nil(t, f.ctx.RequiredImports("backend/routes.py"))
}

func TestMissingBaseFollowsImportStyle(t *testing.T) {
	f := newFixture(t, todoGraph())
	content := "from .schemas import TaskBase\n\nclass Task(Base):\n    pass\n"
	report := f.validator.ValidateAndFix("backend/models.py", content)
	require.Len(t, report.Fixes, 1)
	assert.Equal(t, "from .database import Base", report.Fixes[0].Payload)
}

func TestDefinedNamesAreNotImported(t *testing.T) {
	f := newFixture(t, todoGraph())
	content := "from sqlalchemy.orm import declarative_base\n\nBase = declarative_base()\n\nclass Task(Base):\n    pass\n"
	report := f.validator.ValidateAndFix("backend/models.py", content)
	assert.Empty(t, report.Fixes)
}

func TestAutoFixerInsertion(t *testing.T) {
	add := []schemas.FixSuggestion{{Action: schemas.FixAddImport, Payload: "from x import y"}}
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{"empty file", "", "from x import y\n"},
		{"after comment block", "# header\n# more\nprint(1)\n", "# header\n# more\nfrom x import y\nprint(1)\n"},
		{"after docstring", "\"\"\"Module.\n\nDetails.\n\"\"\"\nprint(1)\n", "\"\"\"Module.\n\nDetails.\n\"\"\"\nfrom x import y\nprint(1)\n"},
		{"after multiline import", "from a import (\n    b,\n)\nprint(1)\n", "from a import (\n    b,\n)\nfrom x import y\nprint(1)\n"},
		{"ignores nested import", "import os\n\ndef f():\n    import sys\n", "import os\nfrom x import y\n\ndef f():\n    import sys\n"},
		{"already present", "from x import y\n", "from x import y\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := AutoFixer{}.Apply(tc.content, add)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAutoFixerSkipsMissingOriginal(t *testing.T) {
	fix := []schemas.FixSuggestion{{Action: schemas.FixReplaceImport, Original: "from a import b", Payload: "from c import b"}}
	got, n := AutoFixer{}.Apply("import os\n", fix)
	assert.Equal(t, "import os\n", got)
	assert.Zero(t, n)
}

func TestReplaceImportMatchesWholeLines(t *testing.T) {
	f := newFixture(t, todoGraph())
	f.register(t, "backend/models.py", modelsPy)
	f.register(t, "backend/schemas.py", schemasPy)

	content := "# TODO: from backend.models import TaskCreate is wrong?\nfrom backend.models import TaskCreate\n"
	report := f.validator.ValidateAndFix("backend/services.py", content)
	assert.Equal(t, 1, report.FixesApplied)
	assert.Equal(t, "# TODO: from backend.models import TaskCreate is wrong?\nfrom backend.schemas import TaskCreate\n", report.FixedContent)

	second := f.validator.ValidateAndFix("backend/services.py", report.FixedContent)
	assert.Empty(t, second.Fixes)
	assert.Zero(t, second.FixesApplied)
}

func TestAutoFixerReplacesMultilineImport(t *testing.T) {
	fix := []schemas.FixSuggestion{{
		Action:   schemas.FixReplaceImport,
		Original: "from a import (\n    b,\n)",
		Payload:  "from c import b",
	}}
	content := "x = \"from a import (\"\nfrom a import (\n    b,\n)\nprint(b)\n"
	got, n := AutoFixer{}.Apply(content, fix)
	assert.Equal(t, 1, n)
	assert.Equal(t, "x = \"from a import (\"\nfrom c import b\nprint(b)\n", got)
}

func TestAliasesArePreserved(t *testing.T) {
	f := newFixture(t, nil)
	report := f.validator.ValidateAndFix("app/routes.py", "from app.models import TaskCreate as TC, Task\n")
	assert.Equal(t, "from app.schemas import TaskCreate as TC\nfrom app.models import Task\n", report.FixedContent)
}

func TestJavaScriptIsNotAnalyzed(t *testing.T) {
	f := newFixture(t, nil)
	report := f.validator.ValidateAndFix("frontend/app.js", "import { TaskCreate } from './models';\n")
	assert.Empty(t, report.Fixes)
}

func TestProjectContextQueries(t *testing.T) {
	f := newFixture(t, todoGraph())
	f.register(t, "backend/models.py", modelsPy)
	f.register(t, "backend/schemas.py", schemasPy)

	assert.True(t, f.ctx.IsModelClass("Task"))
	assert.True(t, f.ctx.IsSchemaClass("Task"))
	assert.True(t, f.ctx.IsSchemaClass("TaskCreate"))
	assert.False(t, f.ctx.IsModelClass("TaskCreate"))

	mod, ok := f.ctx.ModelModule()
	require.True(t, ok)
	assert.Equal(t, "backend/models.py", mod)
	sch, ok := f.ctx.SchemaModule()
	require.True(t, ok)
	assert.Equal(t, "backend/schemas.py", sch)
	db, ok := f.ctx.DatabaseModule()
	require.True(t, ok)
	assert.Equal(t, "backend/database.py", db)

	forbidden := f.ctx.ForbiddenRedefinitions("backend/schemas.py")
	assert.Contains(t, forbidden, "class Task (defined in backend/models.py)")
	assert.NotContains(t, forbidden, "class TaskCreate (defined in backend/schemas.py)")

	assert.Equal(t, []string{"from backend.database import Base"}, f.ctx.RequiredImports("backend/models.py"))
	assert.Equal(t, []string{"from backend.database import get_db"}, f.ctx.RequiredImports("backend/routes.py"))
	assert.Equal(t, []string{"from backend.database import get_db"}, f.ctx.RequiredImports("backend/main.py"))
	assert.Nil(t, f.ctx.RequiredImports("backend/schemas.py"))

	desc := f.ctx.Describe([]string{"backend/models.py", "backend/database.py"})
	assert.Contains(t, desc, "backend/models.py (persistent-model-module, import as backend.models): class Task [model-class]")
	assert.NotContains(t, desc, "database.py")
}

func TestRegisterReplacesEarlierVersion(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "app/models.py", "class Old(Base):\n    pass\n")
	f.register(t, "app/models.py", "class New(Base):\n    pass\n")
	assert.False(t, f.ctx.IsModelClass("Old"))
	assert.True(t, f.ctx.IsModelClass("New"))
}

func TestModulesFallBackToRegisteredFiles(t *testing.T) {
	f := newFixture(t, nil)
	_, ok := f.ctx.SchemaModule()
	assert.False(t, ok)
	f.register(t, "src/schemas.py", schemasPy)
	sch, ok := f.ctx.SchemaModule()
	require.True(t, ok)
	assert.Equal(t, "src/schemas.py", sch)
}
