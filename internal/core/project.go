package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Project represents a loom workspace.
type Project struct {
	Root       string
	DBPath     string
	ConfigPath string
}

// DiscoverProject walks up from startDir to find a .loom directory.
func DiscoverProject(startDir string) (Project, error) {
	current := startDir
	if current == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Project{}, err
		}
		current = cwd
	}
	current, err := filepath.Abs(current)
	if err != nil {
		return Project{}, err
	}

	for {
		loomDir := filepath.Join(current, ".loom")
		info, err := os.Stat(loomDir)
		if err == nil && info.IsDir() {
			dbPath := filepath.Join(loomDir, "loom.db")
			if _, err := os.Stat(dbPath); err != nil {
				return Project{}, fmt.Errorf("loom database not found. Run 'loom init' first")
			}
			return Project{
				Root:       current,
				DBPath:     dbPath,
				ConfigPath: filepath.Join(loomDir, "config.yaml"),
			}, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return Project{}, fmt.Errorf("not initialized. Run 'loom init' first")
		}
		current = parent
	}
}

// InitProject initializes a new loom workspace at dir.
func InitProject(dir string, force bool) (Project, error) {
	root := dir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Project{}, err
		}
		root = cwd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return Project{}, err
	}

	loomDir := filepath.Join(root, ".loom")
	dbPath := filepath.Join(loomDir, "loom.db")

	if info, err := os.Stat(loomDir); err == nil && info.IsDir() && !force {
		return Project{}, fmt.Errorf("already initialized. Use --force to reinitialize")
	}

	if err := os.MkdirAll(loomDir, 0o755); err != nil {
		return Project{}, err
	}
	EnsureLoomGitignore(loomDir)

	if force {
		if err := os.Remove(dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Project{}, err
		}
	}

	return Project{
		Root:       root,
		DBPath:     dbPath,
		ConfigPath: filepath.Join(loomDir, "config.yaml"),
	}, nil
}

// EnsureLoomGitignore ensures .loom/.gitignore covers the sqlite files.
func EnsureLoomGitignore(loomDir string) {
	gitignore := filepath.Join(loomDir, ".gitignore")
	entries := []string{"*.db", "*.db-wal", "*.db-shm"}

	data, err := os.ReadFile(gitignore)
	if err != nil {
		_ = os.WriteFile(gitignore, []byte(strings.Join(entries, "\n")+"\n"), 0o644)
		return
	}

	present := map[string]bool{}
	for _, line := range strings.Split(string(data), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	content := string(data)
	changed := false
	for _, entry := range entries {
		if !present[entry] {
			if len(content) > 0 && !strings.HasSuffix(content, "\n") {
				content += "\n"
			}
			content += entry + "\n"
			changed = true
		}
	}
	if changed {
		_ = os.WriteFile(gitignore, []byte(content), 0o644)
	}
}
