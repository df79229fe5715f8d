package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/storage/filesystem"
)

// PackedRefs is reported when HEAD names a ref that has no loose file
const PackedRefs = "packed-refs"

// openGitDir opens the repository for path, which is either a work tree
// (a .git directory or a gitdir: file for submodules and worktrees) or a HEAD
// file inside a git directory. It returns the git directory on disk.
func openGitDir(path string) (*git.Repository, string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	dir := path
	if !fi.IsDir() {
		if filepath.Base(path) != plumbing.HEAD.String() {
			return nil, "", fmt.Errorf("%s: not a HEAD file", path)
		}
		dir = filepath.Dir(path)
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          fi.IsDir(),
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	storage, ok := repo.Storer.(*filesystem.Storage)
	if !ok {
		return nil, "", fmt.Errorf("%s: repository is not stored on disk", path)
	}
	return repo, storage.Filesystem().Root(), nil
}

// GitDir locates the git directory of the repository containing path
func GitDir(path string) (string, error) {
	_, gitDir, err := openGitDir(path)
	return gitDir, err
}

// Head reports what HEAD at path points to: the ref name when it has a
// loose file, PackedRefs when it does not, and "" for a detached HEAD.
func Head(path string) (string, error) {
	repo, gitDir, err := openGitDir(path)
	if err != nil {
		return "", err
	}

	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("%s: reading HEAD: %w", path, err)
	}
	if head.Type() != plumbing.SymbolicReference {
		return "", nil
	}

	target := head.Target()
	fi, err := os.Stat(filepath.Join(gitDir, filepath.FromSlash(target.String())))
	switch {
	case err == nil && !fi.IsDir():
		return target.String(), nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", err
	}
	return PackedRefs, nil
}
