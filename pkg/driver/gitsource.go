package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitSource reads program files out of git repositories. Repositories are
// cloned once into CacheDir and fetched again when a tag or branch has to
// be resolved.
type GitSource struct {
	CacheDir string
}

// Read returns the program stored at file inside the commit ref points to.
func (g GitSource) Read(ctx context.Context, ref GitRef, file string) (Program, error) {
	url := strings.TrimSpace(ref.URL)
	if url == "" {
		return Program{}, errors.New("git source: URL required")
	}
	if strings.TrimSpace(g.CacheDir) == "" {
		return Program{}, errors.New("git source: cache directory required")
	}
	file = path.Clean(filepath.ToSlash(strings.TrimSpace(file)))
	if file == "." || strings.HasPrefix(file, "../") || path.IsAbs(file) {
		return Program{}, fmt.Errorf("git source: invalid path %q", file)
	}

	revisions, err := gitRevisions(ref)
	if err != nil {
		return Program{}, err
	}

	dir := filepath.Join(g.CacheDir, "src", sanitizePathSegment(url))
	repo, fresh, err := openOrClone(ctx, dir, url)
	if err != nil {
		return Program{}, err
	}

	hash, err := resolveFirst(repo, revisions)
	if err != nil || (!fresh && ref.Rev == "") {
		// Tags and branches move, and an unknown rev may simply be newer
		// than the cached clone.
		if fetchErr := repo.FetchContext(ctx, &git.FetchOptions{Tags: git.AllTags, Force: true}); fetchErr != nil && !errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
			return Program{}, fmt.Errorf("git fetch %s: %w", url, fetchErr)
		}
		hash, err = resolveFirst(repo, revisions)
	}
	if err != nil {
		return Program{}, fmt.Errorf("resolve %s in %s: %w", ref.Describe(), url, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return Program{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	blob, err := commit.File(file)
	if err != nil {
		return Program{}, fmt.Errorf("read %s at %s: %w", file, hash, err)
	}
	contents, err := blob.Contents()
	if err != nil {
		return Program{}, fmt.Errorf("read %s at %s: %w", file, hash, err)
	}
	return Program{
		Path:   fmt.Sprintf("%s@%s:%s", url, shortHash(hash), file),
		Source: contents,
	}, nil
}

func openOrClone(ctx context.Context, dir, url string) (*git.Repository, bool, error) {
	if _, err := os.Stat(dir); err == nil {
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return nil, false, fmt.Errorf("open cached clone %s: %w", dir, err)
		}
		return repo, false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, false, err
	}
	tmpDir, err := os.MkdirTemp(filepath.Dir(dir), "git-fetch-*")
	if err != nil {
		return nil, false, err
	}
	if _, err := git.PlainCloneContext(ctx, tmpDir, true, &git.CloneOptions{URL: url, Tags: git.AllTags}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, false, fmt.Errorf("git clone %s: %w", url, err)
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, false, err
	}
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, false, err
	}
	return repo, true, nil
}

// gitRevisions lists the revisions to try in order. Branches of a clone
// live under refs/remotes/origin except for the one HEAD pointed to.
func gitRevisions(ref GitRef) ([]plumbing.Revision, error) {
	if rev := strings.TrimSpace(ref.Rev); rev != "" {
		return []plumbing.Revision{plumbing.Revision(rev)}, nil
	}
	if tag := strings.TrimSpace(ref.Tag); tag != "" {
		return []plumbing.Revision{plumbing.Revision("refs/tags/" + tag)}, nil
	}
	if branch := strings.TrimSpace(ref.Branch); branch != "" {
		return []plumbing.Revision{
			plumbing.Revision("refs/remotes/origin/" + branch),
			plumbing.Revision("refs/heads/" + branch),
		}, nil
	}
	return nil, fmt.Errorf("git targets require rev, tag, or branch")
}

func resolveFirst(repo *git.Repository, revisions []plumbing.Revision) (*plumbing.Hash, error) {
	var lastErr error
	for _, rev := range revisions {
		hash, err := repo.ResolveRevision(rev)
		if err == nil {
			return hash, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func shortHash(hash *plumbing.Hash) string {
	s := hash.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
