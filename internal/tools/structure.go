package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/codesmith-cli/internal/journal"
)

// structureTool creates the directories and empty files of the manifest.
type structureTool struct {
	env Env
}

func (t *structureTool) Spec() Spec {
	return Spec{
		ID:          ProjectStructure,
		Description: "Creates the project directory structure from the design's folder structure.",
		Params: []Param{
			{Name: KeyDesignData, Required: true, State: true},
			{Name: KeyProjectRoot, Required: true, State: true},
		},
		ConsumesState: true,
	}
}

func (t *structureTool) Call(ctx context.Context, in Input) (string, error) {
	design, err := DecodeDesign(in.Map(KeyDesignData))
	if err != nil {
		return "", err
	}
	ws := t.env.workspace(in)
	if err := ws.MkdirAll(""); err != nil {
		return t.fail(ctx, ws.Root(), err), nil
	}

	var items []string
	for _, e := range design.FolderStructure.Structure {
		rel := e.CleanPath()
		if rel == "" {
			continue
		}
		raw := strings.TrimSpace(e.Path)
		if e.IsDirectory() || strings.HasSuffix(raw, "/") || strings.HasSuffix(raw, "\\") {
			if err := ws.MkdirAll(rel); err != nil {
				return t.fail(ctx, rel, err), nil
			}
			items = append(items, "Directory: "+rel)
			continue
		}
		if _, err := ws.Touch(rel); err != nil {
			return t.fail(ctx, rel, err), nil
		}
		items = append(items, "File: "+rel)
	}
	if err := ws.MkdirAll("logs"); err != nil {
		return t.fail(ctx, "logs", err), nil
	}
	items = append(items, "Directory: logs")

	return fmt.Sprintf("Created %d items:\n%s", len(items), strings.Join(items, "\n")), nil
}

func (t *structureTool) fail(ctx context.Context, p string, err error) string {
	t.env.recordError(ctx, journal.NewEntry(journal.ErrCodeStructureCreation, p, err.Error(), nil))
	return fmt.Sprintf("Error creating structure: %v", err)
}
