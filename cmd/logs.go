package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// logsOptions are the flag values of one logs invocation.
type logsOptions struct {
	Follow bool
	Lines  int
	Level  string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Prints the rotated JSON log of previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			path := cfg.Logger().LogFile
			if path == "" {
				return fmt.Errorf("no log file configured (logger.log_file)")
			}
			return runLogs(cmd.Context(), cmd.OutOrStdout(), path, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep printing entries as they are appended.")
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 0, "Print only the last N entries (0 prints all). Ignored with --follow.")
	cmd.Flags().StringVar(&opts.Level, "level", "", "Only print entries of this level (e.g. warn, error).")
	return cmd
}

// runLogs prints path to out. With Follow it starts at the end of the file and
// runs until ctx is done.
func runLogs(ctx context.Context, out io.Writer, path string, opts logsOptions) error {
	cfg := tail.Config{
		Follow:    opts.Follow,
		ReOpen:    opts.Follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}
	if opts.Follow {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to tail log file: %w", err)
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	var ring []string
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				for _, l := range ring {
					fmt.Fprintln(out, l)
				}
				return nil
			}
			if line.Err != nil {
				return fmt.Errorf("error reading log file: %w", line.Err)
			}
			if !matchesLevel(line.Text, opts.Level) {
				continue
			}
			if opts.Follow || opts.Lines <= 0 {
				fmt.Fprintln(out, line.Text)
				continue
			}
			ring = append(ring, line.Text)
			if len(ring) > opts.Lines {
				ring = ring[1:]
			}
		}
	}
}

// matchesLevel reports whether a JSON log line carries level. An empty level matches everything.
func matchesLevel(text, level string) bool {
	if level == "" {
		return true
	}
	var entry struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal([]byte(text), &entry); err != nil {
		return false
	}
	return strings.EqualFold(entry.Level, level)
}
