package vcs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestHead(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
		want  string
	}{
		{"loose ref", func(t *testing.T, dir string) string {
			writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main\n")
			writeFile(t, filepath.Join(dir, ".git", "refs", "heads", "main"), "0123\n")
			return dir
		}, "refs/heads/main"},
		{"packed ref", func(t *testing.T, dir string) string {
			writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main\n")
			return dir
		}, PackedRefs},
		{"detached", func(t *testing.T, dir string) string {
			writeFile(t, filepath.Join(dir, ".git", "HEAD"), "3a68d04041163a68d04041163a68d0404116aaaa\n")
			return dir
		}, ""},
		{"head file path", func(t *testing.T, dir string) string {
			writeFile(t, filepath.Join(dir, "HEAD"), "ref: refs/heads/dev\n")
			writeFile(t, filepath.Join(dir, "refs", "heads", "dev"), "0123\n")
			return filepath.Join(dir, "HEAD")
		}, "refs/heads/dev"},
		{"submodule", func(t *testing.T, dir string) string {
			writeFile(t, filepath.Join(dir, ".git", "modules", "sub", "HEAD"), "ref: refs/heads/main\n")
			writeFile(t, filepath.Join(dir, ".git", "modules", "sub", "refs", "heads", "main"), "0123\n")
			writeFile(t, filepath.Join(dir, "sub", ".git"), "gitdir: ../.git/modules/sub\n")
			return filepath.Join(dir, "sub")
		}, "refs/heads/main"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t, t.TempDir())
			got, err := Head(path)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeadNoRepository(t *testing.T) {
	if _, err := Head(t.TempDir()); !errors.Is(err, git.ErrRepositoryNotExists) {
		t.Errorf("expected ErrRepositoryNotExists, got %v", err)
	}
	if _, err := Head(filepath.Join(t.TempDir(), "nothing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestGitDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".git", "modules", "sub", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(dir, "sub", ".git"), "gitdir: ../.git/modules/sub\n")

	got, err := GitDir(filepath.Join(dir, "sub"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, ".git", "modules", "sub"); filepath.Clean(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHeadOfInitialisedRepository(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	// a fresh repository has a symbolic HEAD to an unborn branch
	got, err := Head(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != PackedRefs {
		t.Errorf("got %q, want %q", got, PackedRefs)
	}
}

func TestCommitPosition(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	sig := &object.Signature{Name: "bootgen", Email: "bootgen@example.com", When: time.Unix(1700000000, 0)}
	for i, content := range []string{"one", "two", "three"} {
		writeFile(t, filepath.Join(dir, "file.txt"), content)
		if _, err := w.Add("file.txt"); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Commit("commit "+content, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}

	// looked up from a subdirectory
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	got, err := CommitPosition(sub)
	if err != nil {
		t.Fatal(err)
	}
	want := "3 (" + head.Hash().String()[:12] + ")"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCommitPositionUnavailable(t *testing.T) {
	if _, err := CommitPosition(t.TempDir()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("no repository: expected ErrUnavailable, got %v", err)
	}

	// a repository without commits has no HEAD to resolve
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	if _, err := CommitPosition(dir); !errors.Is(err, ErrUnavailable) {
		t.Errorf("empty repository: expected ErrUnavailable, got %v", err)
	}
}

func TestWriteHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools", "gn", "last_commit_position.h")

	written, err := WriteHeader(path, HeaderGuard, "42 (0123456789ab)")
	if err != nil || !written {
		t.Fatalf("first write: %v %v", written, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"#ifndef TOOLS_GN_LAST_COMMIT_POSITION_H_\n",
		"#define LAST_COMMIT_POSITION \"42 (0123456789ab)\"\n",
		"#endif  // TOOLS_GN_LAST_COMMIT_POSITION_H_\n",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("header lacks %q:\n%s", want, data)
		}
	}

	if written, err := WriteHeader(path, HeaderGuard, "42 (0123456789ab)"); err != nil || written {
		t.Errorf("unchanged header rewritten: %v %v", written, err)
	}
	if written, err := WriteHeader(path, HeaderGuard, ""); err != nil || !written {
		t.Errorf("changed header not written: %v %v", written, err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), `LAST_COMMIT_POSITION "unknown"`) {
		t.Errorf("empty version:\n%s", data)
	}
}
