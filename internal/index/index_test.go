package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/phobologic/composetags/internal/collect"
	"github.com/phobologic/composetags/internal/discover"
	"github.com/phobologic/composetags/internal/model"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// build writes files under a temp root and indexes them.
func build(t *testing.T, files map[string]string, opts ...Option) *Index {
	t.Helper()
	root := t.TempDir()
	var entries []discover.FileEntry
	for rel, content := range files {
		writeFile(t, root, rel, content)
		entries = append(entries, discover.FileEntry{Path: rel, Language: "kotlin"})
	}
	idx, err := Build(context.Background(), root, entries, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func function(t *testing.T, idx *Index, path, name string) *model.Declaration {
	t.Helper()
	f, ok := idx.File(path)
	if !ok {
		t.Fatalf("file %s not indexed", path)
	}
	for _, d := range f.Functions {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("function %s not found in %s", name, path)
	return nil
}

func collectTags(t *testing.T, idx *Index, path, name string) []model.TagResult {
	t.Helper()
	return collect.New(idx, collect.DefaultConfig()).Collect(function(t, idx, path, name), "")
}

func assertResults(t *testing.T, got, want []model.TagResult) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d results %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

const composeImports = `import androidx.compose.foundation.layout.Column
import androidx.compose.foundation.layout.Row
import androidx.compose.foundation.layout.padding
import androidx.compose.material.Button
import androidx.compose.material.Scaffold
import androidx.compose.material.Text
import androidx.compose.runtime.Composable
import androidx.compose.ui.Modifier
import androidx.compose.ui.platform.testTag
`

func TestStringLiteralTag(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Screen() {
    Button(onClick = {}, modifier = Modifier.testTag("submit")) {
        Text("OK")
    }
}
`,
	})

	assertResults(t, collectTags(t, idx, "app/Screen.kt", "Screen"), []model.TagResult{
		{PropertyName: "button", TagValue: `"submit"`, OwnerFunctionName: "Button", NamePath: ":button"},
	})
}

func TestQualifiedReferenceTag(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Tags.kt": `package com.example

object Tags {
    const val header = "header"
}
`,
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Screen() {
    Row(modifier = Modifier.testTag(Tags.header)) {}
}
`,
	})

	assertResults(t, collectTags(t, idx, "app/Screen.kt", "Screen"), []model.TagResult{
		{PropertyName: "row", TagValue: "com.example.Tags.header", OwnerFunctionName: "Row", NamePath: ":row"},
	})
}

func TestModifierChain(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Screen() {
    Column(modifier = Modifier.padding(8.dp).testTag("list")) {}
}
`,
	})

	assertResults(t, collectTags(t, idx, "app/Screen.kt", "Screen"), []model.TagResult{
		{PropertyName: "column", TagValue: `"list"`, OwnerFunctionName: "Column", NamePath: ":column"},
	})
}

func TestSlotAndProjectDescent(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Header.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Header(modifier: Modifier = Modifier, content: @Composable () -> Unit) {
    Column(modifier) {
        Text("title", modifier = Modifier.testTag("headerTitle"))
        content()
    }
}
`,
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Screen() {
    Header(modifier = Modifier.testTag("header")) {}
    Scaffold(topBar = { Text("t", modifier = Modifier.testTag("title")) }) {}
}
`,
	})

	assertResults(t, collectTags(t, idx, "app/Screen.kt", "Screen"), []model.TagResult{
		{PropertyName: "header", TagValue: `"header"`, OwnerFunctionName: "Header", NamePath: ":header"},
		{PropertyName: "text", TagValue: `"headerTitle"`, OwnerFunctionName: "Text", NamePath: ":header:text"},
		{PropertyName: "topBar", TagValue: `"title"`, OwnerFunctionName: "Text", NamePath: ":topBar"},
	})
}

func TestTrailingLambdaAfterArguments(t *testing.T) {
	t.Parallel()

	card := "package com.example\n\n" + composeImports + `
@Composable
fun Card(modifier: Modifier = Modifier, content: @Composable () -> Unit) {
    content()
}
`
	tests := []struct {
		name string
		call string
		want []model.TagResult
	}{
		{
			name: "arguments and trailing lambda",
			call: `Card(modifier = Modifier.testTag("card")) { Text("x", modifier = Modifier.testTag("inner")) }`,
			want: []model.TagResult{
				{PropertyName: "card", TagValue: `"card"`, OwnerFunctionName: "Card", NamePath: ":card"},
			},
		},
		{
			name: "trailing lambda only",
			call: `Card { Text("x", modifier = Modifier.testTag("inner")) }`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx := build(t, map[string]string{
				"app/Card.kt": card,
				"app/Screen.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Screen() {
    ` + tt.call + `
}
`,
			})

			screen := function(t, idx, "app/Screen.kt", "Screen")
			if len(screen.Body) != 1 || screen.Body[0].Call == nil || screen.Body[0].Call.Callee != "Card" {
				t.Fatalf("body = %+v, want one Card call", screen.Body)
			}
			assertResults(t, collectTags(t, idx, "app/Screen.kt", "Screen"), tt.want)
		})
	}
}

func TestStopNamespace(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"designsystem/NiaButton.kt": "package com.google.samples.apps.nowinandroid.core.designsystem.component\n\n" + composeImports + `
@Composable
fun NiaButton(modifier: Modifier = Modifier) {
    Text("inner", modifier = Modifier.testTag("inner"))
}
`,
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
import com.google.samples.apps.nowinandroid.core.designsystem.component.NiaButton

@Composable
fun Screen() {
    NiaButton(modifier = Modifier.testTag("nia"))
}
`,
	})

	assertResults(t, collectTags(t, idx, "app/Screen.kt", "Screen"), []model.TagResult{
		{PropertyName: "niaButton", TagValue: `"nia"`, OwnerFunctionName: "NiaButton", NamePath: ":niaButton"},
	})
}

func TestWildcardImport(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Screen.kt": `package com.example

import androidx.compose.material3.*
import androidx.compose.runtime.Composable
import androidx.compose.ui.Modifier
import androidx.compose.ui.platform.testTag

@Composable
fun Screen() {
    Card(modifier = Modifier.testTag("card")) {}
}
`,
	})

	got := collectTags(t, idx, "app/Screen.kt", "Screen")
	if len(got) != 1 || got[0].OwnerFunctionName != "Card" {
		t.Fatalf("results = %+v", got)
	}
}

func TestAnnotationsQualified(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Screen() {}

@Preview
fun Preview() {}
`,
	})

	if a := function(t, idx, "app/Screen.kt", "Screen").Annotations; len(a) != 1 || a[0] != "androidx.compose.runtime.Composable" {
		t.Errorf("Screen annotations = %v", a)
	}
	if a := function(t, idx, "app/Screen.kt", "Preview").Annotations; len(a) != 1 || a[0] != "Preview" {
		t.Errorf("unresolved annotation should keep its name, got %v", a)
	}
}

func TestResolveStubs(t *testing.T) {
	t.Parallel()

	idx := build(t, nil)

	button := idx.Lookup("androidx.compose.material.Button")
	if len(button) != 1 {
		t.Fatalf("Button stubs = %d, want 1", len(button))
	}
	if idx.DeclarationIsAvailable(button[0]) {
		t.Error("stub declarations must not be available")
	}
	if !button[0].HasAnnotation("androidx.compose.runtime.Composable") {
		t.Errorf("Button annotations = %v", button[0].Annotations)
	}
	if got := idx.ParameterType(button[0], 1).Text; got != "Modifier" {
		t.Errorf("ParameterType(1) = %q, want Modifier", got)
	}
	if got := idx.ParameterType(button[0], 99); !got.IsZero() {
		t.Errorf("out of range ParameterType = %+v", got)
	}
	if len(idx.Files()) != 0 {
		t.Errorf("stubs should not be listed as project files")
	}
}

func TestOverloadByNamedArgument(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
fun Screen() {
    Row(modifier = Modifier.padding(horizontal = 4.dp))
}
`,
	})

	var padding *model.CallSite
	for _, n := range function(t, idx, "app/Screen.kt", "Screen").Body {
		for _, a := range n.Call.Args {
			if a.Value.Kind == model.ExprCall {
				padding = a.Value.Call
			}
		}
	}
	if padding == nil {
		t.Fatal("padding call not found")
	}
	d, ok := idx.Resolve(padding)
	if !ok {
		t.Fatal("padding did not resolve")
	}
	if d.Params[0].Name != "horizontal" {
		t.Errorf("picked overload with params %+v", d.Params)
	}
}

func TestLocalFunctionShadowsImport(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Screen.kt": "package com.example\n\n" + composeImports + `
@Composable
fun Screen() {
    fun Text(modifier: Modifier) {}

    Text(modifier = Modifier)
}
`,
	})

	screen := function(t, idx, "app/Screen.kt", "Screen")
	call := screen.Body[1].Call
	d, ok := idx.Resolve(call)
	if !ok || d.Parent != screen {
		t.Errorf("Text resolved to %+v, want local declaration", d)
	}
}

func TestUnresolvedCall(t *testing.T) {
	t.Parallel()

	idx := build(t, map[string]string{
		"app/Screen.kt": "package com.example\n\nfun Screen() {\n    missing()\n}\n",
	})

	call := function(t, idx, "app/Screen.kt", "Screen").Body[0].Call
	if _, ok := idx.Resolve(call); ok {
		t.Error("expected unresolved call")
	}
}

func TestExtraStubsDir(t *testing.T) {
	t.Parallel()

	stubs := t.TempDir()
	writeFile(t, stubs, "design.kt", `package com.acme.design

import androidx.compose.runtime.Composable
import androidx.compose.ui.Modifier

@Composable
fun AcmeButton(modifier: Modifier = Modifier)
`)
	idx := build(t, nil, WithStubsDir(stubs))

	d := idx.Lookup("com.acme.design.AcmeButton")
	if len(d) != 1 || !d[0].External {
		t.Fatalf("AcmeButton = %+v", d)
	}
}

func TestUnreadableFileSkipped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "A.kt", "package a\n\nfun A() {}\n")
	entries := []discover.FileEntry{
		{Path: "A.kt", Language: "kotlin"},
		{Path: "Missing.kt", Language: "kotlin"},
	}
	idx, err := Build(context.Background(), root, entries, WithWorkers(2))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(idx.Files()) != 1 || idx.Files()[0].Path != "A.kt" {
		t.Errorf("files = %+v", idx.Files())
	}
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, t.TempDir(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
