package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	stderr = os.Stderr
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("Writes panic log", func(t *testing.T) {
		var written []byte
		var exitCode int
		var errOut bytes.Buffer
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = data
			return nil
		}
		osExit = func(code int) { exitCode = code }
		stderr = &errOut

		func() {
			defer handlePanic()
			panic("generator exploded")
		}()

		assert.Equal(t, 2, exitCode)
		assert.Contains(t, string(written), "panic: generator exploded")
		assert.Contains(t, string(written), "goroutine")
		assert.Contains(t, errOut.String(), "CRASH DETECTED")
	})

	t.Run("Falls back to stderr", func(t *testing.T) {
		var exitCode int
		var errOut bytes.Buffer
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only filesystem") }
		osExit = func(code int) { exitCode = code }
		stderr = &errOut

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 1, exitCode)
		assert.Contains(t, errOut.String(), "Failed to write panic log: read-only filesystem")
		assert.Contains(t, errOut.String(), "panic: boom")
	})

	t.Run("No panic is a no-op", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		stderr = io.Discard

		func() {
			defer handlePanic()
		}()
		assert.False(t, called)
	})
}
