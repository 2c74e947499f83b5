package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xkilldash9x/codesmith-cli/internal/scheduler"
)

// Session holds the scheduler of the project being generated. It is rebuilt
// when the project root or the design changes.
type Session struct {
	env Env

	mu        sync.Mutex
	root      string
	designKey string
	sched     *scheduler.Scheduler
}

// NewSession returns an empty session.
func NewSession(env Env) *Session {
	return &Session{env: env}
}

// Scheduler returns the scheduler for the project described by in.
func (s *Session) Scheduler(in Input) (*scheduler.Scheduler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := in.String(KeyProjectRoot)
	raw := in.Map(KeyDesignData)
	key, err := json.MarshalToString(raw)
	if err != nil {
		return nil, fmt.Errorf("encode design data: %w", err)
	}
	if s.sched != nil && s.root == root && s.designKey == key {
		return s.sched, nil
	}

	design, err := DecodeDesign(raw)
	if err != nil {
		return nil, err
	}
	spec, err := DecodeSpec(in.Map(KeySpecData))
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(s.env.Config, design, spec, scheduler.Deps{
		Generator: s.env.Generator,
		Workspace: s.env.workspace(in),
		Templates: s.env.Templates,
		Journal:   s.env.Journal,
		Logger:    s.env.Logger,
	})
	if err != nil {
		return nil, err
	}
	s.root, s.designKey, s.sched = root, key, sched
	return sched, nil
}

// fileGeneratorTool synthesizes one manifest file.
type fileGeneratorTool struct {
	session *Session
}

func (t *fileGeneratorTool) Spec() Spec {
	return Spec{
		ID:          FileGenerator,
		Description: "Generates the content of one file listed in the design, keeping imports consistent with files generated before it.",
		Params: []Param{
			{Name: "file_path", Description: "manifest path of the file to generate", Required: true},
			{Name: KeyDesignData, Required: true, State: true},
			{Name: KeySpecData, State: true},
			{Name: KeyProjectRoot, Required: true, State: true},
		},
		ConsumesState: true,
	}
}

func (t *fileGeneratorTool) Call(ctx context.Context, in Input) (string, error) {
	sched, err := t.session.Scheduler(in)
	if err != nil {
		return "", err
	}
	res, err := sched.GenerateFile(ctx, relativeTo(in.String(KeyProjectRoot), in.String("file_path")))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(res.Summary())
	if len(res.Issues) > 0 {
		b.WriteString("\nImport issues:")
		for _, issue := range res.Issues {
			b.WriteString("\n- " + issue)
		}
	}
	if len(res.PendingDependencies) > 0 {
		fmt.Fprintf(&b, "\nWarning: dependencies not generated yet: %s", strings.Join(res.PendingDependencies, ", "))
	}
	return b.String(), nil
}

// generateAllTool synthesizes every manifest file in scheduled order.
type generateAllTool struct {
	session *Session
}

func (t *generateAllTool) Spec() Spec {
	return Spec{
		ID:          GenerateAll,
		Description: "Generates every file listed in the design in dependency order.",
		Params: []Param{
			{Name: KeyDesignData, Required: true, State: true},
			{Name: KeySpecData, State: true},
			{Name: KeyProjectRoot, Required: true, State: true},
		},
		ConsumesState: true,
	}
}

// GeneratedLinePrefix starts each per-file line of the generate_project_files
// Observation.
const GeneratedLinePrefix = "- "

func (t *generateAllTool) Call(ctx context.Context, in Input) (string, error) {
	sched, err := t.session.Scheduler(in)
	if err != nil {
		return "", err
	}
	results, err := sched.GenerateAll(ctx)
	if err != nil {
		return "", err
	}

	failed, fixes := 0, 0
	var lines []string
	for _, r := range results {
		fixes += r.FixesApplied
		note := string(r.Role)
		if r.Placeholder {
			failed++
			note += ", placeholder"
		}
		lines = append(lines, fmt.Sprintf("%s%s (%s)", GeneratedLinePrefix, r.Path, note))
	}
	head := fmt.Sprintf("Successfully generated %d files, %d import fixes applied:", len(results), fixes)
	if failed > 0 {
		head = fmt.Sprintf("Generated %d files, %d failed and were left as placeholders:", len(results), failed)
	}
	return head + "\n" + strings.Join(lines, "\n"), nil
}
