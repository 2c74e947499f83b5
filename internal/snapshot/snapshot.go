// Package snapshot commits a generated project into a local git repository so
// successive runs can be diffed.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/internal/config"
)

// ErrNothingToCommit is returned when the worktree has no changes.
var ErrNothingToCommit = errors.New("nothing to commit")

// Snapshotter commits project roots.
type Snapshotter struct {
	cfg    config.SnapshotConfig
	logger *zap.Logger
	now    func() time.Time
}

// New returns a Snapshotter for cfg.
func New(cfg config.SnapshotConfig, logger *zap.Logger) *Snapshotter {
	return &Snapshotter{cfg: cfg, logger: logger.Named("snapshot"), now: time.Now}
}

// Enabled reports whether snapshots are configured.
func (s *Snapshotter) Enabled() bool { return s.cfg.Enabled }

// Commit initialises root as a repository if needed, stages every file and
// commits with message. It returns the new commit hash.
func (s *Snapshotter) Commit(root, message string) (string, error) {
	repo, err := git.PlainOpen(root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		s.logger.Debug("Initialising repository", zap.String("root", root))
		repo, err = git.PlainInit(root, false)
	}
	if err != nil {
		return "", fmt.Errorf("open repository at %s: %w", root, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("stage files: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNothingToCommit
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.cfg.AuthorName,
			Email: s.cfg.AuthorEmail,
			When:  s.now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("Project snapshot committed", zap.String("root", root), zap.String("commit", hash.String()))
	return hash.String(), nil
}
