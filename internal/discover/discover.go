// Package discover finds Kotlin source files in a project.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/composetags/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to project root
	Language string
}

var skipDirs = map[string]struct{}{
	"build":        {},
	"out":          {},
	"node_modules": {},
	".git":         {},
	".gradle":      {},
	".idea":        {},
	".kotlin":      {},
	".hg":          {},
	".svn":         {},
}

// testSourceSets are Gradle source set directories holding test code.
var testSourceSets = map[string]struct{}{
	"test":            {},
	"androidTest":     {},
	"testDebug":       {},
	"testRelease":     {},
	"androidUnitTest": {},
	"commonTest":      {},
	"jvmTest":         {},
}

// Files discovers parseable source files under root.
// If languages is non-empty, only files matching one of the listed languages are returned.
func Files(root string, languages []string) ([]FileEntry, error) {
	langSet := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		langSet[l] = struct{}{}
	}
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		langName := lang.ForExtension(filepath.Ext(name))
		if langName == "" {
			return nil
		}

		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}

		results = append(results, FileEntry{Path: rel, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// IsTestFile reports whether path belongs to a test source set, e.g.
// app/src/test/... or app/src/androidTest/..., or is named like a test class.
func IsTestFile(path string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for i := 1; i < len(parts)-1; i++ {
		if parts[i-1] != "src" {
			continue
		}
		if _, ok := testSourceSets[parts[i]]; ok {
			return true
		}
	}
	base := strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(path))
	return strings.HasSuffix(base, "Test") || strings.HasSuffix(base, "Tests")
}

// WithoutTests drops entries for which IsTestFile is true.
func WithoutTests(files []FileEntry) []FileEntry {
	var kept []FileEntry
	for _, f := range files {
		if !IsTestFile(f.Path) {
			kept = append(kept, f)
		}
	}
	return kept
}

// FilterBySize drops files larger than maxSize bytes. Files that cannot be
// stat'ed are kept and left for the parser to report.
func FilterBySize(root string, files []FileEntry, maxSize int64, log zerolog.Logger) []FileEntry {
	if maxSize <= 0 {
		return files
	}
	var kept []FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > maxSize {
			log.Warn().Str("file", f.Path).Int64("limit", maxSize).Msg("skipped oversized file")
			continue
		}
		kept = append(kept, f)
	}
	return kept
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
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
