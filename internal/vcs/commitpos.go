package vcs

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

var ErrUnavailable = errors.New("commit position unavailable")

const (
	// UnknownPosition is written when no commit position can be determined
	UnknownPosition = "unknown"
	shortHashLen    = 12
)

// CommitPosition opens the repository containing path and reports
// "<commits reachable from HEAD> (<short hash>)"
func CommitPosition(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: resolving HEAD: %w", ErrUnavailable, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer iter.Close()

	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: walking history: %w", ErrUnavailable, err)
	}

	return fmt.Sprintf("%d (%s)", n, head.Hash().String()[:shortHashLen]), nil
}
