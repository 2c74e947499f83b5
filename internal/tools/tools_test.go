package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/journal"
	"github.com/xkilldash9x/codesmith-cli/internal/mocks"
	"github.com/xkilldash9x/codesmith-cli/internal/templates"
)

const projectRoot = "/out/todo_app"

const designJSON = `{
  "folder_Structure": {
    "root_Project_Directory_Name": "todo_app",
    "structure": [
      {"path": "/backend", "description": "Backend directory"},
      {"path": "/backend/main.py", "description": "FastAPI entry point"},
      {"path": "/backend/models.py", "description": "SQLAlchemy models"},
      {"path": "/backend/database.py", "description": "Database config file"},
      {"path": "/frontend/", "description": "Static assets"},
      {"path": "/frontend/index.html", "description": "Main page"}
    ]
  },
  "data_Design": {"storage_Type": "sqlite"}
}`

const specJSON = `{
  "project_Overview": {"project_Name": "Todo"},
  "technology_Stack": {"backend": {"language": "Python", "framework": "FastAPI"}, "frontend": {"framework": "vanilla"}}
}`

type toolHarness struct {
	fs      afero.Fs
	llm     *mocks.MockLLMClient
	journal *journal.FileJournal
	reg     *Registry
	design  map[string]any
	spec    map[string]any
}

func newToolHarness(t *testing.T) *toolHarness {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/todo.design.json", []byte("```json\n"+designJSON+"\n```"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/in/todo.spec.json", []byte(specJSON), 0o644))

	tmpl, err := templates.NewManager()
	require.NoError(t, err)
	cfg := config.NewDefaultConfig()
	cfg.LLMCfg.RetryDelay = 0

	h := &toolHarness{
		fs:      fs,
		llm:     new(mocks.MockLLMClient),
		journal: journal.NewFileJournal(fs, projectRoot+"/coder_errors.json", "run-1"),
	}
	h.reg, err = NewRegistry(zaptest.NewLogger(t), Defaults(Env{
		Fs:        fs,
		Config:    cfg,
		Generator: h.llm,
		Templates: tmpl,
		Journal:   h.journal,
		Logger:    zaptest.NewLogger(t),
	})...)
	require.NoError(t, err)

	h.design, err = LoadDocument(fs, "/in/todo.design.json")
	require.NoError(t, err)
	h.spec, err = LoadDocument(fs, "/in/todo.spec.json")
	require.NoError(t, err)
	return h
}

func (h *toolHarness) state(extra Input) Input {
	in := Input{KeyDesignData: h.design, KeySpecData: h.spec, KeyProjectRoot: projectRoot}
	for k, v := range extra {
		in[k] = v
	}
	return in
}

func (h *toolHarness) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := afero.ReadFile(h.fs, projectRoot+"/"+rel)
	require.NoError(t, err)
	return string(b)
}

func TestReadDocumentTools(t *testing.T) {
	h := newToolHarness(t)
	ctx := context.Background()

	out := h.reg.Dispatch(ctx, "read_design_file", Input{"file_path": "/in/todo.design.json"})
	assert.True(t, strings.HasPrefix(out, `{"data_Design"`), out)
	var decoded map[string]any
	require.NoError(t, json.UnmarshalFromString(out, &decoded))
	assert.Equal(t, h.design, decoded)

	out = h.reg.Dispatch(ctx, "read_spec_file", Input{"file_path": "/in/todo.spec.json"})
	assert.Contains(t, out, `"project_Name":"Todo"`)

	out = h.reg.Dispatch(ctx, "read_design_file", Input{"file_path": "/in/missing.json"})
	assert.True(t, strings.HasPrefix(out, "Error reading design file: "), out)

	require.NoError(t, afero.WriteFile(h.fs, "/in/bad.design.json", []byte(`{"folder_Structure": {}}`), 0o644))
	out = h.reg.Dispatch(ctx, "read_design_file", Input{"file_path": "/in/bad.design.json"})
	assert.Contains(t, out, "Error reading design file: invalid document")
}

func TestProjectStructureTool(t *testing.T) {
	h := newToolHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, projectRoot+"/backend/main.py", []byte("keep"), 0o644))

	out := h.reg.Dispatch(context.Background(), "project_structure", h.state(nil))
	assert.Equal(t, strings.Join([]string{
		"Created 7 items:",
		"Directory: backend",
		"File: backend/main.py",
		"File: backend/models.py",
		"File: backend/database.py",
		"Directory: frontend",
		"File: frontend/index.html",
		"Directory: logs",
	}, "\n"), out)

	assert.Equal(t, "keep", h.read(t, "backend/main.py"), "existing files are not truncated")
	isDir, err := afero.IsDir(h.fs, projectRoot+"/logs")
	require.NoError(t, err)
	assert.True(t, isDir)
	assert.Empty(t, h.read(t, "frontend/index.html"))
}

func TestProjectStructureRequiresDesign(t *testing.T) {
	h := newToolHarness(t)
	out := h.reg.Dispatch(context.Background(), "project_structure", Input{KeyProjectRoot: projectRoot})
	assert.Equal(t, "Error: Missing required parameter 'design_data' for action 'project_structure'", out)
}

func TestFileGeneratorTool(t *testing.T) {
	h := newToolHarness(t)
	ctx := context.Background()
	h.llm.On("Generate", mock.Anything, mock.MatchedBy(func(req schemas.GenerationRequest) bool {
		return strings.Contains(req.UserPrompt, "TARGET FILE: backend/models.py ")
	})).Return("from sqlalchemy import Column\n\nclass Task(Base):\n    id = Column()\n", nil).Once()

	out := h.reg.Dispatch(ctx, "file_generator", h.state(Input{"file_path": projectRoot + "/backend/models.py"}))
	assert.True(t, strings.HasPrefix(out, "Successfully generated backend/models.py (model, "), out)
	assert.Contains(t, out, "1 import fixes applied")
	assert.Contains(t, out, "Warning: dependencies not generated yet: backend/database.py")
	assert.Contains(t, h.read(t, "backend/models.py"), "from backend.database import Base\n")

	out = h.reg.Dispatch(ctx, "file_generator", h.state(Input{"file_path": "backend/unknown.py"}))
	assert.Equal(t, "Error executing action 'file_generator': file is not in the design manifest: backend/unknown.py", out)
	h.llm.AssertExpectations(t)
}

func TestSessionReusesScheduler(t *testing.T) {
	h := newToolHarness(t)
	session := NewSession(Env{Fs: h.fs, Config: config.NewDefaultConfig(), Generator: h.llm, Templates: mustTemplates(t), Journal: &journal.Nop{}, Logger: zaptest.NewLogger(t)})

	first, err := session.Scheduler(h.state(nil))
	require.NoError(t, err)
	second, err := session.Scheduler(h.state(nil))
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := session.Scheduler(h.state(Input{KeyProjectRoot: "/elsewhere"}))
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func mustTemplates(t *testing.T) *templates.Manager {
	t.Helper()
	m, err := templates.NewManager()
	require.NoError(t, err)
	return m
}

func TestGenerateAllTool(t *testing.T) {
	h := newToolHarness(t)
	h.llm.On("Generate", mock.Anything, mock.Anything).Return("x = 1", nil)

	out := h.reg.Dispatch(context.Background(), "generate_project_files", h.state(nil))
	assert.Equal(t, strings.Join([]string{
		"Successfully generated 4 files, 2 import fixes applied:",
		"- backend/database.py (database)",
		"- backend/models.py (model)",
		"- frontend/index.html (frontend)",
		"- backend/main.py (entrypoint)",
	}, "\n"), out)
}

func TestValidatorTool(t *testing.T) {
	h := newToolHarness(t)
	ctx := context.Background()
	write := func(rel, content string) {
		require.NoError(t, afero.WriteFile(h.fs, projectRoot+"/"+rel, []byte(content), 0o644))
	}
	write("backend/main.py", "app = 1\n")
	write("frontend/style.css", "")
	write("run.bat", "echo héllo\n")

	out := h.reg.Dispatch(ctx, "project_validator", h.state(nil))
	assert.Equal(t, strings.Join([]string{
		"Found 3 validation issues:",
		"Missing required file: requirements.txt",
		"Empty file: frontend/style.css",
		"Non-ASCII characters in run.bat",
	}, "\n"), out)
	assert.Len(t, h.journal.Entries(), 3)
	assert.Equal(t, journal.ErrCodeValidation, h.journal.Entries()[0].ErrorType)

	write("backend/requirements.txt", "fastapi\n")
	write("frontend/style.css", "body {}\n")
	write("run.bat", "echo hello\n")
	assert.Equal(t, "Project validation passed successfully", h.reg.Dispatch(ctx, "project_validator", h.state(nil)))
}

func TestJournalFailuresAreLogged(t *testing.T) {
	h := newToolHarness(t)
	failing := new(mocks.MockJournal)
	failing.On("RecordError", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	newRegistry := func(t *testing.T, fs afero.Fs) (*Registry, *observer.ObservedLogs) {
		core, logs := observer.New(zap.WarnLevel)
		reg, err := NewRegistry(zaptest.NewLogger(t), Defaults(Env{
			Fs:        fs,
			Config:    config.NewDefaultConfig(),
			Generator: h.llm,
			Templates: mustTemplates(t),
			Journal:   failing,
			Logger:    zap.New(core),
		})...)
		require.NoError(t, err)
		return reg, logs
	}

	t.Run("Validator", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(h.fs, projectRoot+"/backend/main.py", []byte("app = 1\n"), 0o644))
		reg, logs := newRegistry(t, h.fs)

		out := reg.Dispatch(context.Background(), "project_validator", h.state(nil))
		assert.Equal(t, "Found 1 validation issues:\nMissing required file: requirements.txt", out)
		warned := logs.FilterMessage("Failed to journal error").All()
		require.Len(t, warned, 1)
		assert.Equal(t, projectRoot, warned[0].ContextMap()["path"])
		assert.Equal(t, "disk full", warned[0].ContextMap()["error"])
	})

	t.Run("Structure", func(t *testing.T) {
		reg, logs := newRegistry(t, afero.NewReadOnlyFs(afero.NewMemMapFs()))

		out := reg.Dispatch(context.Background(), "project_structure", h.state(nil))
		assert.True(t, strings.HasPrefix(out, "Error creating structure: "), out)
		require.Equal(t, 1, logs.FilterMessage("Failed to journal error").Len())
	})
	failing.AssertExpectations(t)
}

func TestRunScriptTool(t *testing.T) {
	h := newToolHarness(t)
	out := h.reg.Dispatch(context.Background(), "create_run_script", h.state(nil))
	assert.Equal(t, "Run script created successfully at "+projectRoot+"/run.bat", out)

	script := h.read(t, "run.bat")
	assert.Contains(t, script, "python -m uvicorn backend.main:app --reload --port 8001")
	assert.Contains(t, script, `"python" --version`)
}
