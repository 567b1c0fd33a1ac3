package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/phobologic/composetags/internal/config"
)

const configHeader = `# composetags configuration.
#
# [analysis] names the UI framework conventions: calls into functions whose
# package starts with a stop prefix are listed but never descended into.
# [page_object] shapes the generated class; format is kotlin or toon.
# [discovery] limits which sources are indexed.

`

// runInit implements the `composetags init` subcommand, which writes the
// default configuration file.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("composetags init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun, force bool
	fs.BoolVar(&dryRun, "dry-run", false, "print the configuration without writing it")
	fs.BoolVar(&force, "force", false, "overwrite an existing configuration file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: composetags init [flags] [path]

Write the default composetags configuration. path defaults to ./%s.

Flags:
`, config.FileName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	content, err := generateConfig()
	if err != nil {
		return err
	}

	if dryRun {
		_, _ = fmt.Fprint(stdout, content)
		return nil
	}

	path := config.FileName
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote composetags config to %s\n", path)
	return nil
}

// generateConfig returns the commented default configuration file.
func generateConfig() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	if err := config.Encode(&buf, config.Default()); err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return buf.String(), nil
}
