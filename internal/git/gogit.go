package git

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/joescharf/changelog/internal/models"
)

// GoGitClient implements Client in pure Go, without a git binary.
type GoGitClient struct{}

// NewGoGitClient returns a new GoGitClient.
func NewGoGitClient() *GoGitClient {
	return &GoGitClient{}
}

func openRepo(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return repo, nil
}

func (c *GoGitClient) RepoRoot(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

func (c *GoGitClient) RemoteURL(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", nil // no remote is not an error
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}
	return "", nil
}

func (c *GoGitClient) History(path string, opts HistoryOptions) ([]models.GitTag, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	repo, err := openRepo(path)
	if err != nil {
		return nil, err
	}

	to, err := repo.ResolveRevision(plumbing.Revision(opts.ToRef))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", opts.ToRef, err)
	}

	exclude := make(map[plumbing.Hash]bool)
	if opts.FromRef != "" {
		from, err := repo.ResolveRevision(plumbing.Revision(opts.FromRef))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", opts.FromRef, err)
		}
		iter, err := repo.Log(&gogit.LogOptions{From: *from})
		if err != nil {
			return nil, fmt.Errorf("log %s: %w", opts.FromRef, err)
		}
		if err := iter.ForEach(func(c *object.Commit) error {
			exclude[c.Hash] = true
			return nil
		}); err != nil {
			return nil, fmt.Errorf("log %s: %w", opts.FromRef, err)
		}
	}

	tagsByCommit, err := commitTags(repo)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&gogit.LogOptions{From: *to, Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", opts.ToRef, err)
	}
	var commits []TaggedCommit
	err = iter.ForEach(func(c *object.Commit) error {
		if exclude[c.Hash] {
			return nil
		}
		commits = append(commits, TaggedCommit{
			Commit: &models.GitCommit{
				Hash:        c.Hash.String(),
				AuthorName:  c.Author.Name,
				AuthorEmail: c.Author.Email,
				CommitTime:  c.Committer.When.UTC(),
				Message:     strings.TrimSpace(c.Message),
			},
			Tags: tagsByCommit[c.Hash],
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", opts.ToRef, err)
	}
	return assignTags(commits, opts.UntaggedName), nil
}

// commitTags maps each tagged commit to its tag names, peeling annotated tags.
func commitTags(repo *gogit.Repository) (map[plumbing.Hash][]string, error) {
	refs, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	out := make(map[plumbing.Hash][]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		tag, err := repo.TagObject(target)
		switch {
		case err == nil:
			commit, err := tag.Commit()
			if err != nil {
				// Tags of trees or blobs carry no history.
				return nil
			}
			target = commit.Hash
		case !errors.Is(err, plumbing.ErrObjectNotFound):
			return fmt.Errorf("tag %s: %w", ref.Name().Short(), err)
		}
		out[target] = append(out[target], ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
