package tools

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/codesmith-cli/internal/journal"
	"github.com/xkilldash9x/codesmith-cli/internal/templates"
)

// runScriptTool renders the stack's run script at the project root. Running
// it is left to the user.
type runScriptTool struct {
	env     Env
	session *Session
}

func (t *runScriptTool) Spec() Spec {
	return Spec{
		ID:          RunScript,
		Description: "Creates the script that installs dependencies and starts the generated application.",
		Params: []Param{
			{Name: KeyDesignData, Required: true, State: true},
			{Name: KeySpecData, State: true},
			{Name: KeyProjectRoot, Required: true, State: true},
		},
		ConsumesState: true,
	}
}

func (t *runScriptTool) Call(ctx context.Context, in Input) (string, error) {
	sched, err := t.session.Scheduler(in)
	if err != nil {
		return "", err
	}
	data := sched.ProjectData()
	script, err := t.env.Templates.Render(data.BackendFramework, templates.KindRunScript, data)
	if err != nil {
		return "", err
	}

	ws := t.env.workspace(in)
	name := t.env.Config.Generation().RunScriptName
	if err := ws.WriteFile(name, []byte(script)); err != nil {
		_ = t.env.Journal.RecordError(ctx, journal.NewEntry(journal.ErrCodeRunScript, name, err.Error(), nil))
		return "", err
	}
	p, _ := ws.Resolve(name)
	return fmt.Sprintf("Run script created successfully at %s", p), nil
}
