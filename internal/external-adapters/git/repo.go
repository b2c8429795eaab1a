// Package git wraps go-git for the two repository interactions the runner
// needs: fetching the sibling script repository and reading the HEAD commit
// message for the skip gate.
package git

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// ScriptFetcher clones the external script repository into a run workspace
type ScriptFetcher struct {
	depth int
}

// NewScriptFetcher creates a fetcher using shallow clones
func NewScriptFetcher() *ScriptFetcher {
	return &ScriptFetcher{depth: 1}
}

// Fetch clones the script source into destDir and returns the checkout path.
//
// When a ref is pinned, the branch form is tried first, then the tag form.
func (f *ScriptFetcher) Fetch(ctx context.Context, src entities.ScriptSource, destDir string) (string, error) {
	if src.RepoURL == "" {
		return "", fmt.Errorf("script repository URL is empty")
	}

	opts := &gogit.CloneOptions{
		URL:   src.RepoURL,
		Depth: f.depth,
	}
	if src.Ref == "" {
		_, err := gogit.PlainCloneContext(ctx, destDir, false, opts)
		if err != nil {
			return "", fmt.Errorf("cloning %s: %w", src.RepoURL, err)
		}
		return destDir, nil
	}

	for _, ref := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(src.Ref),
		plumbing.NewTagReferenceName(src.Ref),
	} {
		o := *opts
		o.ReferenceName = ref
		o.SingleBranch = true
		if _, err := gogit.PlainCloneContext(ctx, destDir, false, &o); err == nil {
			return destDir, nil
		}
	}
	return "", fmt.Errorf("cloning %s: ref %q not found as branch or tag", src.RepoURL, src.Ref)
}

// HeadMessage reads the commit message at HEAD of a local repository.
//
// The skip gate falls back to this when no message is passed explicitly.
func HeadMessage(repoPath string) (string, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("opening repository %s: %w", repoPath, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("reading HEAD commit: %w", err)
	}
	return commit.Message, nil
}
