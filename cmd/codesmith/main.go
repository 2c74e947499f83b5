package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/xkilldash9x/codesmith-cli/cmd"
	"github.com/xkilldash9x/codesmith-cli/internal/observability"
)

const panicLogFile = "panic.log"

const banner = `
   ___          _                 _ _   _
  / __|___  __| |___ ____ __  (_) |_| |_
 | (__/ _ \/ _' / -_|_-< '  \ | |  _| ' \
  \___\___/\__,_\___/__/_|_|_||_|\__|_||_|

  design + spec in, working project out.

`

// Function variables for dependency injection in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
	stderr      io.Writer = os.Stderr
)

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		if err := cmd.Execute(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				osExit(0)
			} else {
				osExit(1)
			}
		}
		return
	}

	// -- Interactive Mode --
	fmt.Print(banner)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("codesmith > ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		executeInteractiveCommand(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading from stdin:", err)
		osExit(1)
	}
	fmt.Println("Exiting codesmith.")
}

// executeInteractiveCommand runs one shell line on a fresh command tree so
// flags never leak between lines.
func executeInteractiveCommand(ctx context.Context, line string) {
	rootCmd := cmd.NewRootCommand()
	rootCmd.SetArgs(strings.Fields(line))

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Error: Command panicked: %v\n", r)
		}
	}()
	// Cobra already printed the error; the shell keeps running.
	_ = rootCmd.ExecuteContext(ctx)
}

// handlePanic writes the panic and its stack to panicLogFile and exits non-zero.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(stderr, "Panic details:\n%s\n", panicMessage)
		osExit(1)
		return
	}

	fmt.Fprintf(stderr, "\n----------------------------------------------------------------\n")
	fmt.Fprintf(stderr, "CRASH DETECTED. Details logged to %s\n", panicLogFile)
	fmt.Fprintf(stderr, "----------------------------------------------------------------\n")
	osExit(2)
}
