// Package source keeps the local checkout of the post repository current.
package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	domainerr "postimport/internal/domain/errors"
	"postimport/internal/logging"
)

// Runner executes git with args. dir is the working directory, empty for the
// process default.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

type Options struct {
	RepoURL string
	Branch  string
	// Update clones or pulls before each run. When false the checkout is used
	// as-is and must already exist.
	Update bool
}

type Syncer struct {
	opt Options
	run Runner
	log logging.Logger
}

func NewSyncer(opt Options, log logging.Logger) *Syncer {
	if opt.Branch == "" {
		opt.Branch = "master"
	}
	return &Syncer{opt: opt, run: execGit, log: logging.OrNoOp(log)}
}

// WithRunner swaps the git runner, mainly for tests.
func (s *Syncer) WithRunner(r Runner) *Syncer {
	s.run = r
	return s
}

// EnsureFresh makes root a current checkout. Every failure is ErrSyncFailure.
func (s *Syncer) EnsureFresh(ctx context.Context, root string) error {
	info, err := os.Stat(root)
	exists := err == nil && info.IsDir()

	if !s.opt.Update {
		if !exists {
			return fmt.Errorf("%w: %s does not exist and updates are disabled", domainerr.ErrSyncFailure, root)
		}
		return nil
	}

	if !exists {
		if strings.TrimSpace(s.opt.RepoURL) == "" {
			return fmt.Errorf("%w: no repository configured for %s", domainerr.ErrSyncFailure, root)
		}
		s.log.Info("Cloning", "repo", s.opt.RepoURL, "root", root)
		if out, err := s.run(ctx, "", "clone", "--depth", "1", s.opt.RepoURL, root); err != nil {
			return syncError("clone", out, err)
		}
		return nil
	}

	s.log.Info("Pulling", "root", root, "branch", s.opt.Branch)
	if out, err := s.run(ctx, root, "pull", "origin", s.opt.Branch); err != nil {
		return syncError("pull", out, err)
	}
	return nil
}

func syncError(op string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("%w: git %s: %v", domainerr.ErrSyncFailure, op, err)
	}
	return fmt.Errorf("%w: git %s: %v: %s", domainerr.ErrSyncFailure, op, err, msg)
}

func execGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}
