package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const remoteNameOrigin = "origin"

// Revision describes what a checkout currently points at.
type Revision struct {
	Hash   string
	Branch string // empty when detached
}

func (r Revision) Short() string {
	if len(r.Hash) > 12 {
		return r.Hash[:12]
	}
	return r.Hash
}

// Inspect reads the checked out revision of the repository at dir.
func Inspect(dir string) (Revision, error) {
	repository, err := git.PlainOpen(dir)
	if err != nil {
		return Revision{}, fmt.Errorf("open repository %s: %w", dir, err)
	}
	head, err := repository.Head()
	if err != nil {
		return Revision{}, fmt.Errorf("read HEAD: %w", err)
	}

	rev := Revision{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, nil
}

// Upstream fetches origin and resolves the revision ref would check out:
// a remote branch, a tag or a commit. An empty ref means the tip of the
// remote's default branch.
func Upstream(ctx context.Context, dir, ref string) (Revision, error) {
	repository, err := git.PlainOpen(dir)
	if err != nil {
		return Revision{}, fmt.Errorf("open repository %s: %w", dir, err)
	}

	err = repository.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteNameOrigin,
		Tags:       git.AllTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return Revision{}, fmt.Errorf("fetch %s: %w", remoteNameOrigin, err)
	}

	if ref == "" {
		return remoteDefault(ctx, repository)
	}

	for _, candidate := range []string{"refs/remotes/" + remoteNameOrigin + "/" + ref, "refs/tags/" + ref, ref} {
		hash, err := repository.ResolveRevision(plumbing.Revision(candidate))
		if err == nil {
			return Revision{Hash: hash.String(), Branch: ref}, nil
		}
	}
	return Revision{}, fmt.Errorf("cannot resolve %s after fetch", ref)
}

func remoteDefault(ctx context.Context, repository *git.Repository) (Revision, error) {
	remote, err := repository.Remote(remoteNameOrigin)
	if err != nil {
		return Revision{}, err
	}
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return Revision{}, fmt.Errorf("list %s: %w", remoteNameOrigin, err)
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, r := range refs {
		byName[r.Name()] = r
	}

	head, ok := byName[plumbing.HEAD]
	if !ok {
		return Revision{}, errors.New("remote does not advertise HEAD")
	}
	if head.Type() == plumbing.SymbolicReference {
		target, ok := byName[head.Target()]
		if !ok {
			return Revision{}, fmt.Errorf("remote HEAD points at unknown %s", head.Target())
		}
		return Revision{Hash: target.Hash().String(), Branch: target.Name().Short()}, nil
	}
	return Revision{Hash: head.Hash().String()}, nil
}
