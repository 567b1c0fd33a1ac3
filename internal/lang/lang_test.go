package lang

import (
	"context"
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".kt", "kotlin"},
		{".kts", ""},
		{".java", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	kt, ok := Languages["kotlin"]
	if !ok {
		t.Fatal("kotlin language not registered")
	}
	if kt.GetLanguage() == nil {
		t.Error("kotlin language is nil")
	}
}

func TestChildHelpers(t *testing.T) {
	t.Parallel()

	src := []byte("import a.b.C\nimport d.e.*\n\nfun main() {}\n")
	p := Languages["kotlin"].NewParser()
	defer p.Close()
	tree, err := p.ParseCtx(context.Background(), nil, src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	fn := ChildOfType(root, "function_declaration")
	if fn == nil {
		t.Fatal("function_declaration not found")
	}
	if name := ChildOfType(fn, "simple_identifier"); name == nil || NodeText(name, src) != "main" {
		t.Errorf("function name not found")
	}
	if ChildOfType(root, "class_declaration") != nil {
		t.Error("unexpected class_declaration")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	if got := CollapseWhitespace("  @Composable\n  ()   -> Unit "); got != "@Composable () -> Unit" {
		t.Errorf("got %q", got)
	}
}
