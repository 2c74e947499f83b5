package agent

import (
	"fmt"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/tools"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ExecuteRunScript has a state rule but no registered tool; running generated
// scripts is left to the user.
const ExecuteRunScript = "execute_run_script"

// AgentState is the loop's record of project progress. Flags only move forward
// within one run.
type AgentState struct {
	DesignLoaded      bool
	DesignData        map[string]any
	SpecLoaded        bool
	SpecData          map[string]any
	StructureCreated  bool
	FilesToGenerate   []string
	GeneratedFiles    []string
	ValidationResult  string
	RunScriptCreated  bool
	RunScriptExecuted bool
}

// stateSummary is what the model sees of the state. The documents stay out of
// the prompt.
type stateSummary struct {
	DesignLoaded      bool     `json:"design_loaded"`
	SpecLoaded        bool     `json:"spec_loaded"`
	StructureCreated  bool     `json:"structure_created"`
	FilesToGenerate   []string `json:"files_to_generate"`
	GeneratedFiles    []string `json:"generated_files"`
	ValidationResult  string   `json:"validation_result"`
	RunScriptCreated  bool     `json:"run_script_created"`
	RunScriptExecuted bool     `json:"run_script_executed"`
}

// Summary renders the state as indented JSON without DesignData or SpecData.
func (s *AgentState) Summary() string {
	sum := stateSummary{
		DesignLoaded:      s.DesignLoaded,
		SpecLoaded:        s.SpecLoaded,
		StructureCreated:  s.StructureCreated,
		FilesToGenerate:   nonNil(s.FilesToGenerate),
		GeneratedFiles:    nonNil(s.GeneratedFiles),
		ValidationResult:  s.ValidationResult,
		RunScriptCreated:  s.RunScriptCreated,
		RunScriptExecuted: s.RunScriptExecuted,
	}
	out, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// Payloads returns the state entries merged into a state-consuming tool's input.
func (s *AgentState) Payloads(projectRoot string) map[string]any {
	out := map[string]any{tools.KeyProjectRoot: projectRoot}
	if s.DesignLoaded {
		out[tools.KeyDesignData] = s.DesignData
	}
	if s.SpecLoaded {
		out[tools.KeySpecData] = s.SpecData
	}
	return out
}

// Pending returns the manifest files not yet marked generated.
func (s *AgentState) Pending() []string {
	done := make(map[string]struct{}, len(s.GeneratedFiles))
	for _, f := range s.GeneratedFiles {
		done[f] = struct{}{}
	}
	var out []string
	for _, f := range s.FilesToGenerate {
		if _, ok := done[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

func (s *AgentState) markGenerated(path string) {
	if path == "" {
		return
	}
	for _, f := range s.GeneratedFiles {
		if f == path {
			return
		}
	}
	s.GeneratedFiles = append(s.GeneratedFiles, path)
}

// Update is one dispatched action as the state rules see it.
type Update struct {
	Action      string
	Input       tools.Input
	Observation string
	// Success is the keyword verdict on Observation.
	Success     bool
	ProjectRoot string
}

type stateRule func(s *AgentState, u Update) error

var stateRules = map[string]stateRule{
	string(tools.ReadDesign):       readDesignRule,
	string(tools.ReadSpec):         readSpecRule,
	string(tools.ProjectStructure): onSuccess(func(s *AgentState, _ Update) { s.StructureCreated = true }),
	string(tools.FileGenerator):    onSuccess(fileGeneratedRule),
	string(tools.GenerateAll):      onSuccess(allGeneratedRule),
	string(tools.Validator): func(s *AgentState, u Update) error {
		s.ValidationResult = u.Observation
		return nil
	},
	string(tools.RunScript): onSuccess(func(s *AgentState, _ Update) { s.RunScriptCreated = true }),
	ExecuteRunScript:        onSuccess(func(s *AgentState, _ Update) { s.RunScriptExecuted = true }),
}

func onSuccess(apply func(*AgentState, Update)) stateRule {
	return func(s *AgentState, u Update) error {
		if u.Success {
			apply(s, u)
		}
		return nil
	}
}

// ApplyStateRule updates s from the outcome of one action. Unknown actions
// leave s unchanged. An error means the Observation looked successful but
// could not be folded into the state.
func ApplyStateRule(s *AgentState, u Update) error {
	rule, ok := stateRules[u.Action]
	if !ok {
		return nil
	}
	return rule(s, u)
}

// The document readers succeed exactly when they return a JSON object, so the
// keyword verdict is not consulted: document text may well contain "error".
func readDesignRule(s *AgentState, u Update) error {
	raw, err := decodeObject(u.Observation)
	if err != nil {
		return err
	}
	s.DesignData = raw
	s.DesignLoaded = true

	doc, err := tools.DecodeDesign(raw)
	if err != nil {
		return fmt.Errorf("could not extract file list from design data: %w", err)
	}
	files := doc.Files()
	s.FilesToGenerate = make([]string, 0, len(files))
	for _, f := range files {
		s.FilesToGenerate = append(s.FilesToGenerate, f.CleanPath())
	}
	return nil
}

func readSpecRule(s *AgentState, u Update) error {
	raw, err := decodeObject(u.Observation)
	if err != nil {
		return err
	}
	s.SpecData = raw
	s.SpecLoaded = true
	return nil
}

func fileGeneratedRule(s *AgentState, u Update) {
	s.markGenerated(relativePath(u.ProjectRoot, u.Input.String("file_path")))
}

func allGeneratedRule(s *AgentState, u Update) {
	for _, line := range strings.Split(u.Observation, "\n") {
		if !strings.HasPrefix(line, tools.GeneratedLinePrefix) {
			continue
		}
		entry := strings.TrimPrefix(line, tools.GeneratedLinePrefix)
		if idx := strings.LastIndex(entry, " ("); idx > 0 {
			entry = entry[:idx]
		}
		s.markGenerated(schemas.NormalizePath(entry))
	}
}

func decodeObject(text string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return nil, fmt.Errorf("observation is not a JSON object: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("observation is not a JSON object")
	}
	return out, nil
}

// relativePath expresses p relative to root when p lies under it.
func relativePath(root, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if root != "" {
		cleanRoot := filepath.Clean(root)
		cleanP := filepath.Clean(p)
		if rel, err := filepath.Rel(cleanRoot, cleanP); err == nil && strings.HasPrefix(cleanP, cleanRoot+string(filepath.Separator)) {
			p = rel
		}
	}
	return schemas.NormalizePath(filepath.ToSlash(p))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
