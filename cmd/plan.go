package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/codesmith-cli/internal/depgraph"
)

func newPlanCmd() *cobra.Command {
	var designPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Prints the order files of a design would be generated in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.OutOrStdout(), afero.NewOsFs(), designPath)
		},
	}
	cmd.Flags().StringVarP(&designPath, "design", "d", "", "Path to the design JSON document (required).")
	_ = cmd.MarkFlagRequired("design")
	return cmd
}

// runPlan writes one line per scheduled file with its role and the files it may depend on.
func runPlan(out io.Writer, fs afero.Fs, designPath string) error {
	design, err := loadDesign(fs, designPath)
	if err != nil {
		return err
	}
	graph := depgraph.Build(design.FolderStructure.Structure)

	fmt.Fprintf(out, "Generation order for %s (%d files):\n", design.FolderStructure.RootName, graph.Len())
	for i, n := range graph.Order() {
		line := fmt.Sprintf("%3d. %-40s %s", i+1, n.Path, n.Role)
		if len(n.DependsOn) > 0 {
			line += " <- " + strings.Join(n.DependsOn, ", ")
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
