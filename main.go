// composetags generates a UI-test page object from the test tags reachable
// from a Jetpack Compose function.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phobologic/composetags/internal/caret"
	"github.com/phobologic/composetags/internal/collect"
	"github.com/phobologic/composetags/internal/config"
	"github.com/phobologic/composetags/internal/discover"
	"github.com/phobologic/composetags/internal/index"
	"github.com/phobologic/composetags/internal/model"
	"github.com/phobologic/composetags/internal/pageobject"
	"github.com/phobologic/composetags/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "init":
			return runInit(args[1:], stdout, stderr)
		case "check":
			return runCheck(args[1:], stdout, stderr)
		}
	}

	fs := flag.NewFlagSet("composetags", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		common      commonFlags
		format      string
		className   string
		prefix      string
		showVersion bool
	)

	common.register(fs)
	fs.StringVar(&format, "format", "", "output format: kotlin or toon (default from config)")
	fs.StringVar(&className, "class", "", "page object class name (default <Function>PageObject)")
	fs.StringVar(&prefix, "prefix", "", "prefix for every generated name path")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: composetags [flags] <file.kt>:<line>[:<col>]
       composetags init [-dry-run] [-force] [path]
       composetags check [flags] <file.kt>:<line>[:<col>]

Print a page object for the composable function at the given location.
A relative file path is resolved against -root, not the working directory.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "composetags %s\n", version)
		return nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one location, got %d", fs.NArg())
	}

	inv, err := common.setup(fs.Arg(0), stderr)
	if err != nil {
		return err
	}
	inv.prefix = prefix
	if format != "" {
		inv.cfg.PageObject.Format = format
		if err := inv.cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	decl, results, err := inv.analyze(ctx)
	if err != nil {
		return err
	}

	switch inv.cfg.PageObject.FormatOrDefault() {
	case "toon":
		_, _ = fmt.Fprintln(stdout, toon.Encode(decl.Name, results))
	default:
		if className == "" {
			className = decl.Name + inv.cfg.PageObject.ClassSuffix
		}
		_, _ = fmt.Fprint(stdout, pageobject.Render(results, pageobject.Options{
			ClassName: className,
			BaseClass: inv.cfg.PageObject.BaseClass,
			NodeType:  inv.cfg.PageObject.NodeType,
			Matcher:   inv.cfg.PageObject.Matcher,
		}))
	}
	return nil
}

// runCheck implements the `composetags check` subcommand: it reports whether
// the page-object action applies at a location.
func runCheck(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("composetags check", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one location, got %d", fs.NArg())
	}

	inv, err := common.setup(fs.Arg(0), stderr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Enablement only depends on the file at the caret.
	idx, err := index.Build(ctx, inv.root, []discover.FileEntry{{Path: inv.rel, Language: "kotlin"}},
		index.WithLogger(inv.log))
	if err != nil {
		return err
	}
	decl, err := inv.target(idx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "enabled %s\n", decl.Name)
	return nil
}

// commonFlags are shared by the main command and check.
type commonFlags struct {
	root       string
	configPath string
	verbose    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.root, "root", ".", "project root directory")
	fs.StringVar(&c.configPath, "config", "", "config file (default <root>/"+config.FileName+")")
	fs.BoolVar(&c.verbose, "v", false, "log analysis decisions to stderr")
}

// invocation is everything resolved from the flags and the location argument.
type invocation struct {
	root   string
	rel    string // location path relative to root
	loc    caret.Location
	prefix string
	cfg    *config.Config
	log    zerolog.Logger
}

func (c *commonFlags) setup(location string, stderr io.Writer) (*invocation, error) {
	log := newLogger(stderr, c.verbose)

	root, err := filepath.Abs(c.root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	loc, err := caret.ParseLocation(location)
	if err != nil {
		return nil, err
	}
	rel, err := relativeTo(root, loc.Path)
	if err != nil {
		return nil, err
	}

	cfg, cfgPath, err := config.Find(c.configPath, root)
	if err != nil {
		return nil, err
	}
	if cfgPath != "" {
		log.Debug().Str("path", cfgPath).Msg("loaded config")
	}

	return &invocation{root: root, rel: rel, loc: loc, cfg: cfg, log: log}, nil
}

// relativeTo returns p relative to root. Relative paths are taken as
// relative to root already.
func relativeTo(root, p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside root %s", p, root)
	}
	return rel, nil
}

// analyze indexes the project and collects the tags of the function at the
// caret.
func (inv *invocation) analyze(ctx context.Context) (*model.Declaration, []model.TagResult, error) {
	entries, err := inv.sources()
	if err != nil {
		return nil, nil, err
	}

	opts := []index.Option{index.WithLogger(inv.log)}
	if d := inv.cfg.Discovery.StubsDir; d != "" {
		if !filepath.IsAbs(d) {
			d = filepath.Join(inv.root, d)
		}
		opts = append(opts, index.WithStubsDir(d))
	}
	if inv.cfg.Discovery.Workers > 0 {
		opts = append(opts, index.WithWorkers(inv.cfg.Discovery.Workers))
	}

	idx, err := index.Build(ctx, inv.root, entries, opts...)
	if err != nil {
		return nil, nil, err
	}

	decl, err := inv.target(idx)
	if err != nil {
		return nil, nil, err
	}

	c := collect.New(idx, collectConfig(inv.cfg), collect.WithLogger(inv.log))
	results := c.Collect(decl, inv.prefix)
	inv.log.Debug().Str("function", decl.QualifiedName).Int("tags", len(results)).Msg("collected")
	return decl, results, nil
}

// sources lists the project files to index. The file at the caret is always
// included.
func (inv *invocation) sources() ([]discover.FileEntry, error) {
	files, err := discover.Files(inv.root, []string{"kotlin"})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if !inv.cfg.Discovery.IncludeTests {
		files = discover.WithoutTests(files)
	}
	files = discover.FilterBySize(inv.root, files, inv.cfg.Discovery.MaxFileSizeOrDefault(), inv.log)

	for _, f := range files {
		if f.Path == inv.rel {
			return files, nil
		}
	}
	return append(files, discover.FileEntry{Path: inv.rel, Language: "kotlin"}), nil
}

func (inv *invocation) target(idx *index.Index) (*model.Declaration, error) {
	f, ok := idx.File(inv.rel)
	if !ok {
		return nil, fmt.Errorf("%s: not a readable Kotlin file under %s", inv.rel, inv.root)
	}
	return caret.Target(f, inv.loc.Position(), inv.cfg.Analysis.UIAnnotation)
}

func collectConfig(cfg *config.Config) collect.Config {
	return collect.Config{
		StopNamespacePrefixes: cfg.Analysis.StopNamespacePrefixes,
		ModifierTypeMarker:    cfg.Analysis.ModifierType,
		TagMemberName:         cfg.Analysis.TagMember,
		UIMarkerAnnotation:    cfg.Analysis.UIAnnotation,
	}
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-root": true, "--root": true,
	"-config": true, "--config": true,
	"-format": true, "--format": true,
	"-class": true, "--class": true,
	"-prefix": true, "--prefix": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
