package pageobject

import (
	"testing"

	"github.com/phobologic/composetags/internal/model"
)

var defaultOptions = Options{
	ClassName: "LoginScreenPageObject",
	BaseClass: "ru.hh.shared.core.tests.PageObject",
	NodeType:  "com.kakao.compose.nodes.KNode",
	Matcher:   "hasTestTag",
}

func TestRender(t *testing.T) {
	t.Parallel()

	results := []model.TagResult{
		{PropertyName: "button", TagValue: `"submit"`},
		{PropertyName: "header", TagValue: "com.example.Tags.header"},
	}

	got := Render(results, defaultOptions)
	want := `class LoginScreenPageObject : ru.hh.shared.core.tests.PageObject<LoginScreenPageObject>() {

    private val button = com.kakao.compose.nodes.KNode { hasTestTag("submit") }
    private val header = com.kakao.compose.nodes.KNode { hasTestTag(com.example.Tags.header) }

}
`
	if got != want {
		t.Errorf("Render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	got := Render(nil, Options{ClassName: "EmptyPageObject", NodeType: "KNode", Matcher: "hasTestTag"})
	want := "class EmptyPageObject {\n\n}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDuplicateNames(t *testing.T) {
	t.Parallel()

	results := []model.TagResult{
		{PropertyName: "button", TagValue: `"a"`},
		{PropertyName: "button2", TagValue: `"b"`},
		{PropertyName: "button", TagValue: `"c"`},
		{PropertyName: "button", TagValue: `"d"`},
		{PropertyName: "text", TagValue: `"e"`},
	}

	props := properties(results)
	want := []string{"button", "button2", "button3", "button4", "text"}
	if len(props) != len(want) {
		t.Fatalf("got %d properties, want %d", len(props), len(want))
	}
	for i, w := range want {
		if props[i].name != w {
			t.Errorf("property %d = %q, want %q", i, props[i].name, w)
		}
	}
	if props[2].tag != `"c"` {
		t.Errorf("suffixed property kept tag %q, want \"c\"", props[2].tag)
	}
}
