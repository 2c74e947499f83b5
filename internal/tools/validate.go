package tools

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/codesmith-cli/internal/journal"
	"github.com/xkilldash9x/codesmith-cli/internal/templates"
)

var requiredFiles = map[string][]string{
	templates.StackFastAPI: {"main.py", "requirements.txt"},
	templates.StackNodeJS:  {"index.js", "package.json"},
}

var sourceExts = map[string]bool{".py": true, ".js": true, ".html": true, ".css": true}

// validatorTool checks a generated project for required files, empty source
// files and a run script that cmd.exe could misread.
type validatorTool struct {
	env Env
}

func (t *validatorTool) Spec() Spec {
	return Spec{
		ID:          Validator,
		Description: "Validates the generated project for missing required files, empty source files and run script encoding.",
		Params: []Param{
			{Name: KeySpecData, State: true},
			{Name: KeyProjectRoot, Required: true, State: true},
		},
		ConsumesState: true,
	}
}

func (t *validatorTool) Call(ctx context.Context, in Input) (string, error) {
	spec, err := DecodeSpec(in.Map(KeySpecData))
	if err != nil {
		return "", err
	}
	stack := t.env.Config.Generation().TechStack
	if spec != nil && spec.TechnologyStack.Backend.Framework != "" {
		stack = spec.TechStack()
	}
	stack = templates.NormalizeStack(stack)

	ws := t.env.workspace(in)
	files, err := ws.Files()
	if err != nil {
		return fmt.Sprintf("Validation error: %v", err), nil
	}

	var issues []string
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[path.Base(f)] = true
	}
	for _, req := range requiredFiles[stack] {
		if !present[req] {
			issues = append(issues, "Missing required file: "+req)
		}
	}

	for _, f := range files {
		if !sourceExts[strings.ToLower(path.Ext(f))] {
			continue
		}
		b, err := ws.ReadFile(f)
		if err != nil {
			return fmt.Sprintf("Validation error: %v", err), nil
		}
		if len(b) == 0 {
			issues = append(issues, "Empty file: "+f)
		}
	}

	script := t.env.Config.Generation().RunScriptName
	if b, err := ws.ReadFile(script); err == nil && !isASCII(b) {
		issues = append(issues, "Non-ASCII characters in "+script)
	}

	for _, issue := range issues {
		entry := journal.NewEntry(journal.ErrCodeValidation, ws.Root(), issue, map[string]any{"tech_stack": stack})
		t.env.recordError(ctx, entry)
	}
	if len(issues) > 0 {
		return fmt.Sprintf("Found %d validation issues:\n%s", len(issues), strings.Join(issues, "\n")), nil
	}
	return "Project validation passed successfully", nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
