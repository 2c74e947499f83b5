package tools

import (
	"context"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
	"github.com/xkilldash9x/codesmith-cli/internal/journal"
	"github.com/xkilldash9x/codesmith-cli/internal/templates"
	"github.com/xkilldash9x/codesmith-cli/internal/workspace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Env carries the collaborators shared by every tool of a run.
type Env struct {
	Fs        afero.Fs
	Config    config.Interface
	Generator schemas.LLMClient
	Templates *templates.Manager
	Journal   journal.Journal
	Logger    *zap.Logger
}

// Defaults builds the standard tool set over env. The generation tools share
// one session so the generated set survives across calls.
func Defaults(env Env) []Tool {
	if env.Journal == nil {
		env.Journal = &journal.Nop{}
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	session := NewSession(env)
	return []Tool{
		&readDocumentTool{env: env, id: ReadDesign, kind: "design"},
		&readDocumentTool{env: env, id: ReadSpec, kind: "spec"},
		&structureTool{env: env},
		&fileGeneratorTool{session: session},
		&generateAllTool{session: session},
		&validatorTool{env: env},
		&runScriptTool{env: env, session: session},
	}
}

// recordError journals entry. A journal failure is logged and otherwise
// ignored so it never masks the tool's own result.
func (e Env) recordError(ctx context.Context, entry journal.Entry) {
	if err := e.Journal.RecordError(ctx, entry); err != nil {
		e.Logger.Warn("Failed to journal error", zap.String("path", entry.FilePath), zap.Error(err))
	}
}

func (e Env) workspace(in Input) *workspace.Workspace {
	return workspace.New(e.Fs, in.String(KeyProjectRoot))
}

// relativeTo strips root from p when p is an absolute path under root.
func relativeTo(root, p string) string {
	p = strings.TrimSpace(p)
	if root == "" {
		return schemas.NormalizePath(p)
	}
	if rel, err := filepath.Rel(root, p); err == nil && filepath.IsAbs(p) && !strings.HasPrefix(rel, "..") {
		return schemas.NormalizePath(filepath.ToSlash(rel))
	}
	return schemas.NormalizePath(p)
}
