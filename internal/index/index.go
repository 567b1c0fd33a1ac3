// Package index builds a resolvable project index from Kotlin sources and
// bundled library stubs.
package index

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/composetags/internal/discover"
	"github.com/phobologic/composetags/internal/lang"
	"github.com/phobologic/composetags/internal/model"
	"github.com/phobologic/composetags/internal/parse"
)

//go:embed stubs/*.kt
var stubFS embed.FS

// stubPrefix keeps stub paths apart from project-relative paths.
const stubPrefix = "<stubs>/"

const defaultCacheSize = 4096

// Index holds every parsed file and the lookup tables used for resolution.
// It is safe for concurrent reads once built.
type Index struct {
	files  []*model.File // project files, input order
	byPath map[string]*model.File

	qualified  map[string][]*model.Declaration // top-level and member declarations
	packages   map[string][]*model.Declaration // top-level declarations per package
	extensions map[string][]*model.Declaration // top-level extension functions per name

	scope *lru.Cache[scopeKey, []*model.Declaration]
	log   zerolog.Logger
}

type options struct {
	log       zerolog.Logger
	stubsDir  string
	workers   int
	cacheSize int
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the logger for parse warnings and build statistics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStubsDir adds the .kt files of dir as extra library stubs.
func WithStubsDir(dir string) Option {
	return func(o *options) { o.stubsDir = dir }
}

// WithWorkers sets the number of concurrent parsers.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithCacheSize sets the number of memoised file-scope lookups.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// Build parses the given files under root concurrently and indexes them
// together with the bundled library stubs. Files that cannot be read are
// skipped with a warning.
func Build(ctx context.Context, root string, entries []discover.FileEntry, opts ...Option) (*Index, error) {
	o := options{
		log:       zerolog.Nop(),
		workers:   runtime.GOMAXPROCS(0),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := parseFiles(ctx, root, entries, o)
	if err != nil {
		return nil, err
	}

	stubs, err := parseStubs(ctx, o)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[scopeKey, []*model.Declaration](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating scope cache: %w", err)
	}

	idx := &Index{
		byPath:     make(map[string]*model.File),
		qualified:  make(map[string][]*model.Declaration),
		packages:   make(map[string][]*model.Declaration),
		extensions: make(map[string][]*model.Declaration),
		scope:      cache,
		log:        o.log,
	}
	for _, f := range files {
		if f != nil {
			idx.files = append(idx.files, f)
			idx.add(f)
		}
	}
	for _, f := range stubs {
		idx.add(f)
	}
	for _, f := range idx.byPath {
		idx.qualifyAnnotations(f)
	}

	o.log.Debug().
		Int("files", len(idx.files)).
		Int("stubs", len(stubs)).
		Int("declarations", len(idx.qualified)).
		Msg("index built")
	return idx, nil
}

func parseFiles(ctx context.Context, root string, entries []discover.FileEntry, o options) ([]*model.File, error) {
	files := make([]*model.File, len(entries))
	if len(entries) == 0 {
		return files, nil
	}

	workers := o.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	work := make(chan int, len(entries))
	for i := range entries {
		work <- i
	}
	close(work)

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			// Each goroutine gets its own parser
			parser := lang.Languages["kotlin"].NewParser()
			defer parser.Close()

			for i := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				e := entries[i]
				source, err := os.ReadFile(filepath.Join(root, e.Path))
				if err != nil {
					o.log.Warn().Str("file", e.Path).Err(err).Msg("skipping unreadable file")
					continue
				}
				f, err := parse.File(gctx, parser, source, filepath.ToSlash(e.Path))
				if err != nil {
					return err
				}
				files[i] = f
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}
	return files, nil
}

func parseStubs(ctx context.Context, o options) ([]*model.File, error) {
	parser := lang.Languages["kotlin"].NewParser()
	defer parser.Close()

	var stubs []*model.File
	load := func(fsys fs.FS, name string) error {
		source, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading stub %s: %w", name, err)
		}
		f, err := parse.Stub(ctx, parser, source, stubPrefix+path.Base(name))
		if err != nil {
			return err
		}
		stubs = append(stubs, f)
		return nil
	}

	names, err := fs.Glob(stubFS, "stubs/*.kt")
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := load(stubFS, name); err != nil {
			return nil, err
		}
	}

	if o.stubsDir == "" {
		return stubs, nil
	}
	extra := os.DirFS(o.stubsDir)
	names, err = fs.Glob(extra, "*.kt")
	if err != nil {
		return nil, fmt.Errorf("listing stubs in %s: %w", o.stubsDir, err)
	}
	for _, name := range names {
		if err := load(extra, name); err != nil {
			return nil, err
		}
	}
	return stubs, nil
}

func (idx *Index) add(f *model.File) {
	idx.byPath[f.Path] = f
	for _, d := range f.Decls {
		idx.packages[f.Package] = append(idx.packages[f.Package], d)
		if d.Kind == model.Function && d.IsExtension() {
			idx.extensions[d.Name] = append(idx.extensions[d.Name], d)
		}
		idx.addQualified(d, "")
	}
}

// addQualified registers d and its members. Companion members are also
// reachable through the enclosing class name.
func (idx *Index) addQualified(d *model.Declaration, alias string) {
	idx.qualified[d.QualifiedName] = append(idx.qualified[d.QualifiedName], d)
	if alias != "" && alias != d.QualifiedName {
		idx.qualified[alias] = append(idx.qualified[alias], d)
	}
	for _, m := range d.Members {
		memberAlias := ""
		switch {
		case d.Companion && d.Container != nil:
			memberAlias = d.Container.QualifiedName + "." + m.Name
		case alias != "":
			memberAlias = alias + "." + m.Name
		}
		idx.addQualified(m, memberAlias)
	}
}

// qualifyAnnotations rewrites simple annotation names to qualified names
// using the file's imports and package.
func (idx *Index) qualifyAnnotations(f *model.File) {
	var visit func(d *model.Declaration)
	visit = func(d *model.Declaration) {
		for i, a := range d.Annotations {
			d.Annotations[i] = idx.qualifyType(f, a)
		}
		for _, m := range d.Members {
			visit(m)
		}
		for _, l := range d.Locals {
			visit(l)
		}
	}
	for _, d := range f.Decls {
		visit(d)
	}
}

func (idx *Index) qualifyType(f *model.File, name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	for _, imp := range f.Imports {
		if !imp.Wildcard && imp.Name() == name {
			return imp.Path
		}
	}
	for _, d := range idx.packages[f.Package] {
		if d.Name == name && d.Kind == model.Class {
			return d.QualifiedName
		}
	}
	for _, imp := range f.Imports {
		if imp.Wildcard {
			if _, ok := idx.qualified[imp.Path+"."+name]; ok {
				return imp.Path + "." + name
			}
		}
	}
	return name
}

// Files returns the project files in discovery order. Stubs are excluded.
func (idx *Index) Files() []*model.File {
	return idx.files
}

// File returns the indexed file with the given project-relative path.
func (idx *Index) File(p string) (*model.File, bool) {
	f, ok := idx.byPath[filepath.ToSlash(filepath.Clean(p))]
	if !ok || f.External {
		return nil, false
	}
	return f, true
}

// Lookup returns the declarations registered under a qualified name.
func (idx *Index) Lookup(qualifiedName string) []*model.Declaration {
	return idx.qualified[qualifiedName]
}
