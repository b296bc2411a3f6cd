// Package publish commits the rendered output directory to a git branch and
// pushes it, the way the audit results are served from gh-pages.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"eliwatch/internal/logging"
)

const (
	DefaultBranch     = "gh-pages"
	DefaultRemoteName = "origin"
	DefaultMessage    = "Update imagery audit"
)

type Options struct {
	// Dir is the rendered output directory. It becomes (or already is) the
	// work tree of the published repository.
	Dir    string
	Branch string

	// Remote is the URL pushed to. Empty means commit only.
	Remote  string
	Message string
	NoPush  bool

	// Token authenticates HTTPS pushes (GitHub: x-access-token).
	Token string

	AuthorName  string
	AuthorEmail string
	Now         func() time.Time
	Log         *zap.Logger
}

type Result struct {
	Committed bool
	Pushed    bool
	Commit    string
}

func (o *Options) setDefaults() {
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	if o.Message == "" {
		o.Message = DefaultMessage
	}
	if o.AuthorName == "" {
		o.AuthorName = "eliwatch"
	}
	if o.AuthorEmail == "" {
		o.AuthorEmail = "eliwatch@users.noreply.github.com"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Log = logging.OrNop(o.Log)
}

// Publish commits every change below Dir to Branch and pushes the branch.
// Nothing is committed when the tree is unchanged; the push still runs so a
// previously failed push is retried.
func Publish(ctx context.Context, opts Options) (*Result, error) {
	opts.setDefaults()
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("publish: directory required")
	}
	if info, err := os.Stat(opts.Dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("publish: %s is not a directory", opts.Dir)
	}

	repo, err := openOrInit(opts.Dir, opts.Branch)
	if err != nil {
		return nil, err
	}
	branchRef := plumbing.NewBranchReferenceName(opts.Branch)
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
		return nil, fmt.Errorf("publish: failed to switch to %s: %w", opts.Branch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("publish: failed to get worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("publish: failed to stage files: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("publish: failed to read status: %w", err)
	}

	res := &Result{}
	if !status.IsClean() {
		hash, err := wt.Commit(opts.Message, &git.CommitOptions{
			Author: &object.Signature{Name: opts.AuthorName, Email: opts.AuthorEmail, When: opts.Now()},
		})
		if err != nil {
			return nil, fmt.Errorf("publish: failed to commit: %w", err)
		}
		res.Committed = true
		res.Commit = hash.String()
		opts.Log.Info("committed rendered output", zap.String("branch", opts.Branch), zap.String("commit", res.Commit))
	} else {
		opts.Log.Info("rendered output unchanged", zap.String("branch", opts.Branch))
		if head, err := repo.Reference(branchRef, true); err == nil {
			res.Commit = head.Hash().String()
		}
	}

	if opts.NoPush || opts.Remote == "" {
		return res, nil
	}
	if res.Commit == "" {
		return res, nil
	}
	if err := push(ctx, repo, opts, branchRef); err != nil {
		return res, err
	}
	res.Pushed = true
	return res, nil
}

func openOrInit(dir, branch string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("publish: failed to open repository in %s: %w", dir, err)
	}
	repo, err = git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	if err != nil {
		return nil, fmt.Errorf("publish: failed to init repository in %s: %w", dir, err)
	}
	return repo, nil
}

// push force-pushes the branch: the published tree is generated and owned by
// this tool.
func push(ctx context.Context, repo *git.Repository, opts Options, branchRef plumbing.ReferenceName) error {
	if err := ensureRemote(repo, opts.Remote); err != nil {
		return err
	}

	po := &git.PushOptions{
		RemoteName: DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("+%s:%s", branchRef, branchRef))},
	}
	if opts.Token != "" {
		po.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: opts.Token}
	}

	err := repo.PushContext(ctx, po)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		opts.Log.Info("remote already up to date", zap.String("branch", opts.Branch))
		return nil
	}
	if err != nil {
		return fmt.Errorf("publish: failed to push %s: %w", opts.Branch, err)
	}
	opts.Log.Info("pushed rendered output", zap.String("branch", opts.Branch))
	return nil
}

func ensureRemote(repo *git.Repository, url string) error {
	remote, err := repo.Remote(DefaultRemoteName)
	switch {
	case err == nil:
		urls := remote.Config().URLs
		if len(urls) == 1 && urls[0] == url {
			return nil
		}
		if err := repo.DeleteRemote(DefaultRemoteName); err != nil {
			return fmt.Errorf("publish: failed to replace remote: %w", err)
		}
	case !errors.Is(err, git.ErrRemoteNotFound):
		return fmt.Errorf("publish: failed to read remote: %w", err)
	}
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: DefaultRemoteName, URLs: []string{url}})
	if err != nil {
		return fmt.Errorf("publish: failed to add remote: %w", err)
	}
	return nil
}
