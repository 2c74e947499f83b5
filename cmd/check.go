package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/internal/classify"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/consistency"
	"github.com/xkilldash9x/codesmith-cli/internal/depgraph"
	"github.com/xkilldash9x/codesmith-cli/internal/observability"
	"github.com/xkilldash9x/codesmith-cli/internal/workspace"
)

// checkOptions are the flag values of one check invocation.
type checkOptions struct {
	DesignPath string
	Root       string
	Write      bool
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Runs the import consistency check on a file of a generated project",
		Long: `Classifies every other file of the project, then analyzes <file> for imports that point
at the wrong module or are missing, and prints the fixes. With --write the fixed content
replaces the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), cfg, observability.GetLogger(), afero.NewOsFs(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.DesignPath, "design", "d", "", "Path to the design JSON document (required).")
	cmd.Flags().StringVar(&opts.Root, "root", ".", "Project root the design paths are relative to.")
	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write the fixed content back to the file.")
	_ = cmd.MarkFlagRequired("design")
	return cmd
}

// runCheck validates target against the project's other files.
func runCheck(out io.Writer, cfg config.Interface, logger *zap.Logger, fs afero.Fs, target string, opts checkOptions) error {
	design, err := loadDesign(fs, opts.DesignPath)
	if err != nil {
		return err
	}
	ws := workspace.New(fs, opts.Root)

	rel := target
	if abs, err := filepath.Abs(target); err == nil {
		if root, err := filepath.Abs(opts.Root); err == nil {
			if r, err := filepath.Rel(root, abs); err == nil {
				rel = filepath.ToSlash(r)
			}
		}
	}
	content, err := ws.ReadFile(rel)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", target, err)
	}

	ccfg := cfg.Consistency()
	graph := depgraph.Build(design.FolderStructure.Structure)
	classifier := classify.New(classify.MarkersFrom(ccfg), ccfg.CacheSize, logger)
	project := consistency.NewProjectContext(ccfg, graph, logger)

	registered := 0
	for _, n := range graph.Order() {
		if n.Path == rel || !ws.Exists(n.Path) {
			continue
		}
		body, err := ws.ReadFile(n.Path)
		if err != nil {
			logger.Warn("Skipping unreadable project file", zap.String("path", n.Path), zap.Error(err))
			continue
		}
		project.Register(classifier.Classify(n.Path, string(body)))
		registered++
	}

	validator := consistency.NewValidator(classifier, project, ccfg, logger)
	report := validator.ValidateAndFix(rel, string(content))

	fmt.Fprintf(out, "%s: %s (%d project files indexed)\n", report.Path, report.Classification.Kind, registered)
	if len(report.Fixes) == 0 {
		fmt.Fprintln(out, "No import issues found.")
		return nil
	}
	for _, f := range report.Fixes {
		fmt.Fprintf(out, "- [%s] %s\n", f.Action, f.Reason)
		if f.Original != "" {
			fmt.Fprintf(out, "    - %s\n", f.Original)
		}
		fmt.Fprintf(out, "    + %s\n", f.Payload)
	}
	fmt.Fprintf(out, "%d fixes applicable.\n", report.FixesApplied)

	if opts.Write && report.FixesApplied > 0 {
		if err := ws.WriteFile(rel, []byte(report.FixedContent)); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		fmt.Fprintf(out, "Wrote %s.\n", rel)
	}
	return nil
}
