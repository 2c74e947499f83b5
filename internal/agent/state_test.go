package agent

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/codesmith-cli/internal/tools"
)

const designObservation = `{"folder_Structure":{"root_Project_Directory_Name":"todo_app","structure":[` +
	`{"path":"/backend","description":"Backend directory"},` +
	`{"path":"/backend/main.py","description":"Entry point"},` +
	`{"path":"/backend/models.py","description":"Models"}]}}`

func TestHistoryKeepsTaskWhenTruncating(t *testing.T) {
	t.Parallel()
	h := NewHistory(4)
	h.Add("Task: build")
	for i := 0; i < 10; i++ {
		h.Add(strings.Repeat("x", i+1))
	}
	entries := h.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "Task: build", entries[0])
	assert.Equal(t, []string{"xxxxxxxx", "xxxxxxxxx", "xxxxxxxxxx"}, entries[1:])

	assert.Equal(t, []string{"xxxxxxxxx", "xxxxxxxxxx"}, h.Tail(2))
	assert.Len(t, h.Tail(50), 4)
	assert.Nil(t, h.Tail(0))
}

func TestHistoryMinimumLimit(t *testing.T) {
	t.Parallel()
	h := NewHistory(0)
	h.Add("Task: t")
	h.Add("a")
	h.Add("b")
	assert.Equal(t, []string{"Task: t", "b"}, h.Entries())
}

func TestSummaryOmitsDocuments(t *testing.T) {
	t.Parallel()
	s := &AgentState{
		DesignLoaded:    true,
		DesignData:      map[string]any{"secret_design_marker": true},
		SpecLoaded:      true,
		SpecData:        map[string]any{"secret_spec_marker": true},
		FilesToGenerate: []string{"backend/main.py"},
	}
	sum := s.Summary()
	assert.NotContains(t, sum, "secret_design_marker")
	assert.NotContains(t, sum, "secret_spec_marker")
	assert.Contains(t, sum, `"design_loaded": true`)
	assert.Contains(t, sum, `"generated_files": []`)
	assert.Contains(t, sum, "backend/main.py")
}

func TestPayloads(t *testing.T) {
	t.Parallel()
	s := &AgentState{}
	assert.Equal(t, map[string]any{tools.KeyProjectRoot: "/out"}, s.Payloads("/out"))

	s.DesignLoaded, s.DesignData = true, map[string]any{"a": 1}
	p := s.Payloads("/out")
	assert.Equal(t, s.DesignData, p[tools.KeyDesignData])
	assert.NotContains(t, p, tools.KeySpecData)
}

func TestApplyStateRule(t *testing.T) {
	t.Parallel()

	t.Run("read design extracts files", func(t *testing.T) {
		s := &AgentState{}
		require.NoError(t, ApplyStateRule(s, Update{Action: string(tools.ReadDesign), Observation: designObservation}))
		assert.True(t, s.DesignLoaded)
		assert.Equal(t, []string{"backend/main.py", "backend/models.py"}, s.FilesToGenerate)
		assert.Equal(t, []string{"backend/main.py", "backend/models.py"}, s.Pending())
	})

	t.Run("read design error leaves state alone", func(t *testing.T) {
		s := &AgentState{}
		err := ApplyStateRule(s, Update{Action: string(tools.ReadDesign), Observation: "Error reading design file: missing"})
		assert.Error(t, err)
		assert.False(t, s.DesignLoaded)
	})

	t.Run("design without structure is loaded but lists nothing", func(t *testing.T) {
		s := &AgentState{}
		err := ApplyStateRule(s, Update{Action: string(tools.ReadDesign), Observation: `{"other": 1}`})
		assert.ErrorIs(t, err, tools.ErrInvalidDocument)
		assert.True(t, s.DesignLoaded)
		assert.Empty(t, s.FilesToGenerate)
	})

	t.Run("read spec", func(t *testing.T) {
		s := &AgentState{}
		require.NoError(t, ApplyStateRule(s, Update{Action: string(tools.ReadSpec), Observation: `{"error_handling": "strict"}`}))
		assert.True(t, s.SpecLoaded)
		assert.Equal(t, "strict", s.SpecData["error_handling"])
	})

	t.Run("structure only on success", func(t *testing.T) {
		s := &AgentState{}
		_ = ApplyStateRule(s, Update{Action: string(tools.ProjectStructure), Success: false})
		assert.False(t, s.StructureCreated)
		_ = ApplyStateRule(s, Update{Action: string(tools.ProjectStructure), Success: true})
		assert.True(t, s.StructureCreated)
		_ = ApplyStateRule(s, Update{Action: string(tools.ProjectStructure), Success: false})
		assert.True(t, s.StructureCreated, "flags never move backwards")
	})

	t.Run("file generator records relative paths once", func(t *testing.T) {
		s := &AgentState{}
		for _, p := range []string{"/out/todo/backend/main.py", "backend/main.py", "/backend/models.py"} {
			u := Update{
				Action:      string(tools.FileGenerator),
				Input:       tools.Input{"file_path": p},
				Success:     true,
				ProjectRoot: "/out/todo",
			}
			require.NoError(t, ApplyStateRule(s, u))
		}
		assert.Equal(t, []string{"backend/main.py", "backend/models.py"}, s.GeneratedFiles)
	})

	t.Run("generate all parses the listing", func(t *testing.T) {
		s := &AgentState{GeneratedFiles: []string{"backend/database.py"}}
		obs := "Successfully generated 2 files, 1 import fixes applied:\n- backend/database.py (database)\n- backend/routes.py (route)"
		require.NoError(t, ApplyStateRule(s, Update{Action: string(tools.GenerateAll), Observation: obs, Success: true}))
		if diff := cmp.Diff([]string{"backend/database.py", "backend/routes.py"}, s.GeneratedFiles); diff != "" {
			t.Errorf("generated files mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("validator result stored regardless of outcome", func(t *testing.T) {
		s := &AgentState{}
		_ = ApplyStateRule(s, Update{Action: string(tools.Validator), Observation: "Found 1 validation issues:", Success: false})
		assert.Equal(t, "Found 1 validation issues:", s.ValidationResult)
	})

	t.Run("run script and execution", func(t *testing.T) {
		s := &AgentState{}
		_ = ApplyStateRule(s, Update{Action: string(tools.RunScript), Success: true})
		_ = ApplyStateRule(s, Update{Action: ExecuteRunScript, Success: true})
		assert.True(t, s.RunScriptCreated)
		assert.True(t, s.RunScriptExecuted)
	})

	t.Run("unknown action", func(t *testing.T) {
		s := &AgentState{}
		require.NoError(t, ApplyStateRule(s, Update{Action: "mystery", Observation: "created", Success: true}))
		assert.Equal(t, &AgentState{}, s)
	})
}
