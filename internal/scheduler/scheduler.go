// Package scheduler synthesizes the files of a design manifest one at a time,
// in dependency order, passing each through the consistency layer before it
// is written.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/classify"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/consistency"
	"github.com/xkilldash9x/codesmith-cli/internal/depgraph"
	"github.com/xkilldash9x/codesmith-cli/internal/journal"
	"github.com/xkilldash9x/codesmith-cli/internal/llmutil"
	"github.com/xkilldash9x/codesmith-cli/internal/syntaxcheck"
	"github.com/xkilldash9x/codesmith-cli/internal/templates"
	"github.com/xkilldash9x/codesmith-cli/internal/workspace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotInManifest is returned for a path the design does not list as a file.
var ErrNotInManifest = errors.New("file is not in the design manifest")

const systemPrompt = "You are an expert software engineer generating one file of a larger project. " +
	"Respond with the file content only."

// Result describes one synthesized file.
type Result struct {
	Path         string
	Role         schemas.Role
	Bytes        int
	Attempts     int
	FixesApplied int
	Issues       []string
	// FromTemplate is set for files rendered without the Generator.
	FromTemplate bool
	// Placeholder is set when every attempt failed and an error comment was written.
	Placeholder bool
	// PendingDependencies lists declared dependencies not generated yet.
	PendingDependencies []string
}

// Summary renders the result as one Observation line.
func (r Result) Summary() string {
	switch {
	case r.Placeholder:
		return fmt.Sprintf("Error generating %s: all %d attempts failed, placeholder written", r.Path, r.Attempts)
	case r.FromTemplate:
		return fmt.Sprintf("Successfully generated %s from template (%d bytes)", r.Path, r.Bytes)
	}
	msg := fmt.Sprintf("Successfully generated %s (%s, %d bytes)", r.Path, r.Role, r.Bytes)
	if r.FixesApplied > 0 {
		msg += fmt.Sprintf(", %d import fixes applied", r.FixesApplied)
	}
	return msg
}

// Deps are the collaborators a scheduler drives.
type Deps struct {
	Generator schemas.LLMClient
	Workspace *workspace.Workspace
	Templates *templates.Manager
	Journal   journal.Journal
	Logger    *zap.Logger
}

// Scheduler owns the dependency graph and the set of generated files for one
// project. It is not safe for concurrent use.
type Scheduler struct {
	cfg       config.Interface
	deps      Deps
	design    *schemas.DesignDocument
	spec      *schemas.SpecDocument
	graph     *depgraph.Graph
	ctx       *consistency.ProjectContext
	validator *consistency.Validator
	generated map[string]bool
	order     []string
	logger    *zap.Logger

	sleep func(context.Context, time.Duration) error
}

// New builds the graph for design and an empty generated set.
func New(cfg config.Interface, design *schemas.DesignDocument, spec *schemas.SpecDocument, deps Deps) (*Scheduler, error) {
	if design == nil {
		return nil, errors.New("design document is required")
	}
	if deps.Generator == nil || deps.Workspace == nil || deps.Templates == nil {
		return nil, errors.New("generator, workspace and templates are required")
	}
	if deps.Journal == nil {
		deps.Journal = &journal.Nop{}
	}
	logger := deps.Logger.Named("scheduler")

	graph := depgraph.Build(design.FolderStructure.Structure)
	cc := cfg.Consistency()
	pctx := consistency.NewProjectContext(cc, graph, deps.Logger)
	classifier := classify.New(classify.MarkersFrom(cc), cc.CacheSize, deps.Logger)

	logger.Info("Dependency graph built",
		zap.Int("files", graph.Len()),
		zap.Strings("order", graph.Paths()),
	)
	return &Scheduler{
		cfg:       cfg,
		deps:      deps,
		design:    design,
		spec:      spec,
		graph:     graph,
		ctx:       pctx,
		validator: consistency.NewValidator(classifier, pctx, cc, deps.Logger),
		generated: make(map[string]bool),
		logger:    logger,
		sleep:     sleepCtx,
	}, nil
}

// Graph returns the dependency graph.
func (s *Scheduler) Graph() *depgraph.Graph { return s.graph }

// Context returns the project declaration registry.
func (s *Scheduler) Context() *consistency.ProjectContext { return s.ctx }

// Generated returns the generated paths in the order they were produced.
func (s *Scheduler) Generated() []string { return append([]string(nil), s.order...) }

// IsGenerated reports whether p has been produced.
func (s *Scheduler) IsGenerated(p string) bool { return s.generated[schemas.NormalizePath(p)] }

// GenerateAll synthesizes every manifest file in graph order. A file that
// fails to persist stops the run; generation failures produce placeholders
// and the run continues.
func (s *Scheduler) GenerateAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, s.graph.Len())
	for i, n := range s.graph.Order() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		s.logger.Info("Generating file",
			zap.Int("index", i+1),
			zap.Int("total", s.graph.Len()),
			zap.String("path", n.Path),
			zap.String("role", string(n.Role)),
		)
		res, err := s.GenerateFile(ctx, n.Path)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// GenerateFile synthesizes one manifest file.
func (s *Scheduler) GenerateFile(ctx context.Context, relPath string) (Result, error) {
	node, ok := s.graph.Node(relPath)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotInManifest, relPath)
	}
	res := Result{Path: node.Path, Role: node.Role}
	for _, dep := range node.DependsOn {
		if !s.generated[dep] {
			res.PendingDependencies = append(res.PendingDependencies, dep)
		}
	}
	if len(res.PendingDependencies) > 0 {
		s.logger.Warn("Generating file before its dependencies",
			zap.String("path", node.Path),
			zap.Strings("pending", res.PendingDependencies),
		)
	}

	stack := s.stack()
	var content string
	if kind, special := s.deps.Templates.SpecialFile(stack, node.Path); special {
		rendered, err := s.deps.Templates.Render(stack, kind, s.templateData(node))
		if err != nil {
			return res, err
		}
		content = rendered
		res.FromTemplate = true
	} else {
		var err error
		content, res.Attempts, err = s.synthesize(ctx, node)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Placeholder = true
			content = placeholder(node.Path, err)
			s.recordError(ctx, journal.ErrCodeCodeGeneration, node.Path, err, map[string]any{"attempts": res.Attempts})
		}
	}

	report := s.validator.ValidateAndFix(node.Path, content)
	content = report.FixedContent
	res.FixesApplied = report.FixesApplied
	res.Issues = report.Issues

	if err := s.deps.Workspace.WriteFile(node.Path, []byte(content)); err != nil {
		s.recordError(ctx, journal.ErrCodeStructureCreation, node.Path, err, nil)
		return res, fmt.Errorf("write %s: %w", node.Path, err)
	}
	s.ctx.Register(report.Classification)
	res.Bytes = len(content)
	if !s.generated[node.Path] {
		s.generated[node.Path] = true
		s.order = append(s.order, node.Path)
	}

	s.logger.Info("File generated",
		zap.String("path", node.Path),
		zap.Int("bytes", res.Bytes),
		zap.Int("fixes_applied", res.FixesApplied),
		zap.Bool("placeholder", res.Placeholder),
	)
	return res, nil
}

// synthesize calls the Generator up to max_retries times with exponential
// delay. Output that is empty or fails the syntax check counts as a failed
// attempt, except on the last attempt where syntactically broken code is
// kept and journaled.
func (s *Scheduler) synthesize(ctx context.Context, node *depgraph.Node) (string, int, error) {
	prompt, err := s.deps.Templates.Render(s.stack(), templates.KindFilePrompt, s.templateData(node))
	if err != nil {
		return "", 0, err
	}
	llmCfg := s.cfg.LLM()
	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Tier:         schemas.TierPowerful,
		Options:      schemas.GenerationOptions{Temperature: float64(llmCfg.Temperature)},
	}

	attempts := max(llmCfg.MaxRetries, 1)
	policy := retryPolicy(llmCfg.RetryDelay, attempts)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := policy.NextBackOff()
			if delay == backoff.Stop {
				break
			}
			if err := s.sleep(ctx, delay); err != nil {
				return "", attempt - 1, err
			}
		}

		raw, err := s.deps.Generator.Generate(ctx, req)
		if err != nil {
			lastErr = err
			s.logger.Warn("Generator call failed", zap.String("path", node.Path), zap.Int("attempt", attempt), zap.Error(err))
			if ctx.Err() != nil {
				return "", attempt, err
			}
			continue
		}
		code := llmutil.CleanCodeOutput(raw)
		if code == "" {
			lastErr = errors.New("generator returned empty content")
			continue
		}
		code += "\n"
		if err := syntaxcheck.Check(ctx, node.Path, []byte(code)); err != nil {
			lastErr = err
			if attempt == attempts {
				s.recordError(ctx, journal.ErrCodeSyntax, node.Path, err, nil)
				return code, attempt, nil
			}
			s.logger.Warn("Generated code failed syntax check", zap.String("path", node.Path), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return code, attempt, nil
	}
	return "", attempts, lastErr
}

func (s *Scheduler) recordError(ctx context.Context, code journal.ErrorCode, p string, err error, extra map[string]any) {
	if jerr := s.deps.Journal.RecordError(ctx, journal.NewEntry(code, p, err.Error(), extra)); jerr != nil {
		s.logger.Warn("Failed to journal error", zap.String("path", p), zap.Error(jerr))
	}
}

func (s *Scheduler) stack() string {
	if s.spec != nil && strings.TrimSpace(s.spec.TechnologyStack.Backend.Framework) != "" {
		return s.spec.TechStack()
	}
	return s.cfg.Generation().TechStack
}

// placeholder is the body written when synthesis failed, as a comment in the
// file's own syntax.
func placeholder(p string, err error) string {
	msg := fmt.Sprintf("Error generating code: %v", err)
	switch strings.ToLower(path.Ext(p)) {
	case ".js", ".jsx", ".ts", ".tsx":
		return "// " + msg + "\n// TODO: Fix this file\n"
	case ".css":
		return "/* " + msg + " */\n"
	case ".html", ".vue":
		return "<!-- " + msg + " -->\n"
	default:
		return "# " + msg + "\n# TODO: Fix this file\n"
	}
}

// retryPolicy doubles delay after every failed attempt, without jitter, and
// stops after attempts-1 waits.
func retryPolicy(delay time.Duration, attempts int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
