// Package gitinfo reads the checked out branch of the repository a file
// lives in. It only looks at the .git directory and never runs git.
package gitinfo

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotRepo = errors.New("not a git repository")

// Repo locates a working tree and its git directory.
type Repo struct {
	Root   string
	GitDir string
}

// Find walks up from path to the nearest working tree.
func Find(path string) (Repo, error) {
	start, err := filepath.Abs(path)
	if err != nil {
		return Repo{}, err
	}
	info, err := os.Stat(start)
	if err != nil {
		return Repo{}, err
	}
	if !info.IsDir() {
		start = filepath.Dir(start)
	}
	for {
		if gitDir, ok := gitDirAt(start); ok {
			return Repo{Root: start, GitDir: gitDir}, nil
		}
		parent := filepath.Dir(start)
		if parent == start {
			return Repo{}, ErrNotRepo
		}
		start = parent
	}
}

// gitDirAt resolves dir/.git, following the "gitdir:" file used by
// worktrees and submodules.
func gitDirAt(dir string) (string, bool) {
	dotGit := filepath.Join(dir, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		return dotGit, true
	}
	if !info.Mode().IsRegular() {
		return "", false
	}
	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(string(data))
	const prefix = "gitdir:"
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	target := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return target, true
}

// Head returns the branch HEAD points at, or "detached:<short sha>".
func (r Repo) Head() (string, error) {
	f, err := os.Open(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", errors.New("empty HEAD")
	}
	line := strings.TrimSpace(scanner.Text())
	if ref, ok := strings.CutPrefix(line, "ref:"); ok {
		ref = strings.TrimSpace(ref)
		return strings.TrimPrefix(ref, "refs/heads/"), nil
	}
	if len(line) >= 7 {
		return "detached:" + line[:7], nil
	}
	return "detached", nil
}

// Branch is the status line label for path, empty outside a repository.
func Branch(path string) string {
	repo, err := Find(path)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head
}
