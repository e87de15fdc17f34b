// Package gitbranch implements the branch snapshot provider on top of a git
// repository, reading record files straight from a branch's tree without
// touching the working copy.
package gitbranch

import (
	"context"
	"fmt"
	"path"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/oneconcern/braid/pkg/model"
	"go.uber.org/zap"
)

// DefaultRecordsDir is where record files live, relative to the repo root
const DefaultRecordsDir = ".braid/records"

// Provider reads branch snapshots from a local git repository
type Provider struct {
	dir        string
	recordsDir string
	l          *zap.Logger
}

// Option is a functor to configure the provider
type Option func(*Provider)

// RecordsDir overrides the in-repo directory holding record files
func RecordsDir(dir string) Option {
	return func(p *Provider) {
		if dir != "" {
			p.recordsDir = dir
		}
	}
}

// Logger sets a zap logger for this provider
func Logger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.l = l
		}
	}
}

// New builds a provider for the git repository rooted at dir
func New(dir string, opts ...Option) *Provider {
	p := &Provider{
		dir:        dir,
		recordsDir: DefaultRecordsDir,
		l:          zap.NewNop(),
	}
	for _, apply := range opts {
		apply(p)
	}
	return p
}

// Snapshot returns the records visible on the named branch.
//
// Record files that fail to parse are skipped with a warning: a snapshot is
// an observation of a branch, not a validation gate. The caller's context
// bounds the walk over the branch tree.
func (p *Provider) Snapshot(ctx context.Context, branchRef string) (model.BranchSnapshot, error) {
	snap := model.BranchSnapshot{Branch: branchRef, Records: make(map[string]model.Record)}

	repo, err := git.PlainOpen(p.dir)
	if err != nil {
		return snap, fmt.Errorf("open repository %q: %w", p.dir, err)
	}
	commit, err := p.resolveCommit(repo, branchRef)
	if err != nil {
		return snap, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return snap, fmt.Errorf("read tree of %s: %w", branchRef, err)
	}

	prefix := p.recordsDir + "/"
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasPrefix(f.Name, prefix) {
			return nil
		}
		name := strings.TrimSuffix(path.Base(f.Name), path.Ext(f.Name))
		if _, ok := model.KindOfID(name); !ok {
			return nil
		}
		contents, err := f.Contents()
		if err != nil {
			return fmt.Errorf("read %s on %s: %w", f.Name, branchRef, err)
		}
		r, err := model.Parse([]byte(contents))
		if err != nil {
			p.l.Warn("skipping malformed record on branch",
				zap.String("branch", branchRef), zap.String("file", f.Name), zap.Error(err))
			return nil
		}
		snap.Records[r.ID] = r
		return nil
	})
	if err != nil {
		return model.BranchSnapshot{Branch: branchRef}, err
	}
	return snap, nil
}

func (p *Provider) resolveCommit(repo *git.Repository, branchRef string) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchRef), true)
	if err != nil {
		// not a local branch name: try an arbitrary revision (tag, hash, remote ref)
		hash, revErr := repo.ResolveRevision(plumbing.Revision(branchRef))
		if revErr != nil {
			return nil, fmt.Errorf("resolve branch %q: %w", branchRef, err)
		}
		return repo.CommitObject(*hash)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read commit %s of %s: %w", ref.Hash(), branchRef, err)
	}
	return commit, nil
}
