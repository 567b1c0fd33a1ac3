package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/composetags/internal/config"
)

// TestInitCreatesFile verifies that runInit creates the target file when it
// does not exist.
func TestInitCreatesFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	var stdout, stderr bytes.Buffer
	if err := runInit([]string{path}, &stdout, &stderr); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# composetags configuration.") {
		t.Error("header comment missing from created file")
	}
	for _, section := range []string{"[analysis]", "[page_object]", "[discovery]"} {
		if !strings.Contains(content, section) {
			t.Errorf("created file missing %s", section)
		}
	}
	if !strings.Contains(stderr.String(), "wrote composetags config") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

// TestInitRoundTrip verifies that the written file loads back as the defaults.
func TestInitRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), config.FileName)

	var buf bytes.Buffer
	if err := runInit([]string{path}, &buf, &buf); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Errorf("loaded config differs from defaults: %+v", cfg)
	}
}

// TestInitDryRun verifies that -dry-run prints the file content to stdout and
// does not create the target file.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	var stdout, stderr bytes.Buffer
	if err := runInit([]string{"-dry-run", path}, &stdout, &stderr); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	if _, err := os.Stat(path); err == nil {
		t.Error("-dry-run should not create the file")
	}
	want, err := generateConfig()
	if err != nil {
		t.Fatal(err)
	}
	if stdout.String() != want {
		t.Errorf("dry-run output mismatch:\n%s", stdout.String())
	}
}

// TestInitRefusesOverwrite verifies that an existing file is kept unless
// -force is given.
func TestInitRefusesOverwrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	existing := "[page_object]\nformat = \"toon\"\n"
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err := runInit([]string{path}, &buf, &buf)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("err = %v, want already exists", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != existing {
		t.Error("existing file must not be modified")
	}

	if err := runInit([]string{"-force", path}, &buf, &buf); err != nil {
		t.Fatalf("runInit -force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "[analysis]") {
		t.Error("-force should overwrite the file")
	}
}
