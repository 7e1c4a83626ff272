// Package discover finds Python source files in a package tree.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// Extension is the suffix of discovered source files.
const Extension = ".py"

var (
	// ErrNotDirectory is returned when the root is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrTooLarge marks a file over Options.MaxFileSize.
	ErrTooLarge     = errors.New("file too large")
)

// SourceFile is a discovered file with its decoded text. Err is set, and
// Text empty, when the file was found but could not be read.
type SourceFile struct {
	Path  string // slash-separated, relative to the package root
	Group string // directory portion of Path, "" for the root
	Text  string
	Err   error
}

// Options controls which files are discovered.
type Options struct {
	Exclude          []string // glob patterns matched against Path
	SkipDirs         []string // directory names skipped in addition to caches
	RespectGitignore bool
	MaxFileSize      int64 // 0 disables the limit
	Logger           *slog.Logger
}

// cacheDirs hold tool caches, never package sources.
var cacheDirs = map[string]struct{}{
	"__pycache__":   {},
	".mypy_cache":   {},
	".pytest_cache": {},
	".ruff_cache":   {},
}

// Walk discovers source files under root, sorted by path. Only cache
// directories are skipped unless opts asks for more. Unreadable and
// oversized files are still returned, with Err set. Symlinked files are
// read through the link; symlinked directories are never entered.
func Walk(root string, opts Options) ([]SourceFile, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	excludes, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}
	extraSkip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		extraSkip[d] = struct{}{}
	}

	var gitFiles map[string]struct{}
	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		gitFiles = gitLsFiles(root)
		if gitFiles == nil {
			gi = loadGitignore(root)
		}
	}

	var results []SourceFile

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable path", "path", p, "err", err)
			return nil
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if skipDir(name, extraSkip) || matchesAny(excludes, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(name, Extension) {
			return nil
		}
		if matchesAny(excludes, rel) {
			return nil
		}
		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				log.Debug("skipping symlink", "path", rel)
				return nil
			}
		}

		sf := SourceFile{Path: rel, Group: Group(rel)}
		sf.Text, sf.Err = read(p, opts.MaxFileSize)
		if sf.Err != nil {
			log.Warn("reading file", "file", rel, "err", sf.Err)
		}
		results = append(results, sf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// Group returns the module group of a slash-separated relative path.
func Group(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

func skipDir(name string, extra map[string]struct{}) bool {
	if _, ok := cacheDirs[name]; ok {
		return true
	}
	_, ok := extra[name]
	return ok
}

// read returns the file content with invalid UTF-8 replaced.
func read(p string, maxSize int64) (string, error) {
	if maxSize > 0 {
		fi, err := os.Stat(p)
		if err != nil {
			return "", err
		}
		if fi.Size() > maxSize {
			return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, fi.Size(), maxSize)
		}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		matchers = append(matchers, g)
	}
	return matchers, nil
}

func matchesAny(matchers []glob.Glob, rel string) bool {
	for _, g := range matchers {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
