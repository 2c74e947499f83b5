package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/agent"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/journal"
	"github.com/xkilldash9x/codesmith-cli/internal/llmclient"
	"github.com/xkilldash9x/codesmith-cli/internal/observability"
	"github.com/xkilldash9x/codesmith-cli/internal/snapshot"
	"github.com/xkilldash9x/codesmith-cli/internal/templates"
	"github.com/xkilldash9x/codesmith-cli/internal/tools"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newGenerator builds the Generator. Tests replace it with a mock.
var newGenerator = llmclient.NewClient

// generateOptions are the flag values of one generate invocation.
type generateOptions struct {
	DesignPath    string
	SpecPath      string
	InputsDir     string
	OutputDir     string
	MaxIterations int
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generates a project from a design document and a spec document",
		Long: `Runs the reasoning/acting loop: the model reads the design and spec, lays out the project,
generates every file in dependency order with import consistency fixes, validates the result
and writes a run script. Without --design/--spec the newest *.design.json and *.spec.json
files in --inputs are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			generator, err := newGenerator(ctx, cfg.LLM(), logger)
			if err != nil {
				return fmt.Errorf("failed to initialize generator: %w", err)
			}
			defer func() {
				if err := generator.Close(); err != nil {
					logger.Warn("Failed to close generator", zap.Error(err))
				}
			}()

			result, err := runGenerate(ctx, cfg, logger, afero.NewOsFs(), opts, generator)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\n--- AGENT EXECUTION FINISHED ---")
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.DesignPath, "design", "d", "", "Path to the design JSON document.")
	cmd.Flags().StringVarP(&opts.SpecPath, "spec", "s", "", "Path to the spec JSON document.")
	cmd.Flags().StringVar(&opts.InputsDir, "inputs", "outputs", "Directory searched for the newest design/spec pair when --design or --spec is omitted.")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Base output directory. (Overrides config/env)")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", 0, "Iteration ceiling of the loop. (Overrides config/env)")
	return cmd
}

// runGenerate contains the generate logic, decoupled from cobra. It returns
// the loop's final text; errors are reserved for setup failures.
func runGenerate(ctx context.Context, cfg config.Interface, logger *zap.Logger, fs afero.Fs, opts generateOptions, generator schemas.LLMClient) (string, error) {
	if opts.OutputDir != "" {
		cfg.SetGenerationBaseOutputDir(opts.OutputDir)
	}
	if opts.MaxIterations > 0 {
		cfg.SetAgentMaxIterations(opts.MaxIterations)
	}

	designPath, specPath, err := resolveInputs(fs, opts)
	if err != nil {
		return "", err
	}
	design, err := loadDesign(fs, designPath)
	if err != nil {
		return "", err
	}
	spec, err := tools.LoadDocument(fs, specPath)
	if err != nil {
		return "", fmt.Errorf("cannot read spec file '%s': %w", specPath, err)
	}

	name := design.FolderStructure.RootName
	if strings.ContainsAny(name, `<>:"|?*`) {
		return "", fmt.Errorf("invalid project name for filesystem: '%s'", name)
	}
	projectRoot, err := filepath.Abs(filepath.Join(cfg.Generation().BaseOutputDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}

	// The loop reads the documents from inside the project so the run is self-contained.
	if err := fs.MkdirAll(projectRoot, 0o755); err != nil {
		return "", fmt.Errorf("failed to create project root: %w", err)
	}
	localDesign := filepath.Join(projectRoot, name+".design.json")
	localSpec := filepath.Join(projectRoot, name+".spec.json")
	if err := writeJSON(fs, localDesign, design.Raw); err != nil {
		return "", err
	}
	if err := writeJSON(fs, localSpec, spec); err != nil {
		return "", err
	}

	runID := journal.NewRunID()
	logger = observability.ForRun(logger, runID, projectRoot)
	task := buildTask(name, localDesign, localSpec)

	j, closeJournal, err := openJournal(ctx, cfg.Journal(), fs, projectRoot, runID, task, logger)
	if err != nil {
		return "", err
	}
	defer closeJournal()

	tmpl, err := templates.NewManager()
	if err != nil {
		return "", fmt.Errorf("failed to load templates: %w", err)
	}
	env := tools.Env{
		Fs:        fs,
		Config:    cfg,
		Generator: generator,
		Templates: tmpl,
		Journal:   j,
		Logger:    logger,
	}
	registry, err := tools.NewRegistry(logger, tools.Defaults(env)...)
	if err != nil {
		return "", fmt.Errorf("failed to build tool registry: %w", err)
	}

	logger.Info("Starting project generation", zap.String("project", name), zap.Int("max_iterations", cfg.Agent().MaxIterations))
	controller := agent.NewController(logger, generator, registry, cfg.Agent(), projectRoot, agent.WithJournal(j))
	result := controller.Run(ctx, task)
	logger.Info("Agent finished", zap.String("result", result))

	if err := j.Close(ctx, result); err != nil {
		logger.Warn("Failed to close journal", zap.Error(err))
	}

	if result != agent.CeilingResult {
		commitSnapshot(cfg.Snapshot(), logger, projectRoot, runID)
	}
	return result, nil
}

// buildTask phrases the run's instructions for the model.
func buildTask(name, designPath, specPath string) string {
	return fmt.Sprintf(`Generate the complete '%s' application following these exact steps:

STEP 1: Read the design file at '%s' using read_design_file
STEP 2: Read the spec file at '%s' using read_spec_file
STEP 3: Create the complete project directory structure using project_structure
STEP 4: Generate ALL files listed in the design structure using file_generator (one call per file)
STEP 5: Validate the completed project using project_validator
STEP 6: Create the run script using create_run_script

You must complete ALL steps in order. Do not skip any step.
Each file mentioned in the folder structure must be generated with proper content.`, name, designPath, specPath)
}

// resolveInputs fills in missing document paths with the newest matching files in the inputs directory.
func resolveInputs(fs afero.Fs, opts generateOptions) (string, string, error) {
	design, spec := opts.DesignPath, opts.SpecPath
	var err error
	if design == "" {
		if design, err = newestMatch(fs, opts.InputsDir, ".design.json"); err != nil {
			return "", "", err
		}
	}
	if spec == "" {
		if spec, err = newestMatch(fs, opts.InputsDir, ".spec.json"); err != nil {
			return "", "", err
		}
	}
	return design, spec, nil
}

func newestMatch(fs afero.Fs, dir, suffix string) (string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", fmt.Errorf("outputs directory '%s' does not exist: %w", dir, err)
	}
	var matches []os.FileInfo
	for _, info := range infos {
		if !info.IsDir() && strings.HasSuffix(info.Name(), suffix) {
			matches = append(matches, info)
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no *%s files found in '%s'", suffix, dir)
	}
	sort.Slice(matches, func(i, k int) bool {
		if matches[i].ModTime().Equal(matches[k].ModTime()) {
			return matches[i].Name() > matches[k].Name()
		}
		return matches[i].ModTime().After(matches[k].ModTime())
	})
	return filepath.Join(dir, matches[0].Name()), nil
}

func loadDesign(fs afero.Fs, path string) (*schemas.DesignDocument, error) {
	raw, err := tools.LoadDocument(fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read design file '%s': %w", path, err)
	}
	doc, err := tools.DecodeDesign(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid design file '%s': %w", path, err)
	}
	return doc, nil
}

func writeJSON(fs afero.Fs, path string, doc map[string]any) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", filepath.Base(path), err)
	}
	if err := afero.WriteFile(fs, path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// openJournal selects the journal backend. The returned cleanup is always safe to call.
func openJournal(ctx context.Context, cfg config.JournalConfig, fs afero.Fs, projectRoot, runID, task string, logger *zap.Logger) (journal.Journal, func(), error) {
	noop := func() {}
	switch cfg.Type {
	case config.JournalFile:
		return journal.NewFileJournal(fs, filepath.Join(projectRoot, cfg.FileName), runID), noop, nil
	case config.JournalPostgres:
		pool, err := journal.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		j, err := journal.NewPostgresJournal(ctx, pool, runID, projectRoot, task, logger)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return j, pool.Close, nil
	case config.JournalNone, "":
		return &journal.Nop{ID: runID}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown journal type '%s'", cfg.Type)
	}
}

func commitSnapshot(cfg config.SnapshotConfig, logger *zap.Logger, projectRoot, runID string) {
	snap := snapshot.New(cfg, logger)
	if !snap.Enabled() {
		return
	}
	if _, err := snap.Commit(projectRoot, "codesmith run "+runID); err != nil {
		if errors.Is(err, snapshot.ErrNothingToCommit) {
			logger.Info("Snapshot skipped, project unchanged")
			return
		}
		logger.Warn("Failed to snapshot project", zap.Error(err))
	}
}
