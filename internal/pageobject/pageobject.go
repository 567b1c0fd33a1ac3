// Package pageobject renders collected tags as a Kotlin UI-test page object.
package pageobject

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phobologic/composetags/internal/model"
)

// Options controls the generated class.
type Options struct {
	ClassName string // e.g. LoginScreenPageObject
	BaseClass string // generic base class, parameterised with ClassName
	NodeType  string // node constructor taking a matcher lambda
	Matcher   string // matcher invoked with the tag value
}

// Render returns the page-object source for results, one property per
// result in order. Repeated property names get numeric suffixes.
func Render(results []model.TagResult, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "class %s", opts.ClassName)
	if opts.BaseClass != "" {
		fmt.Fprintf(&b, " : %s<%s>()", opts.BaseClass, opts.ClassName)
	}
	b.WriteString(" {\n")

	if len(results) > 0 {
		b.WriteString("\n")
	}
	for _, p := range properties(results) {
		fmt.Fprintf(&b, "    private val %s = %s { %s(%s) }\n", p.name, opts.NodeType, opts.Matcher, p.tag)
	}

	b.WriteString("\n}\n")
	return b.String()
}

type property struct {
	name string
	tag  string
}

func properties(results []model.TagResult) []property {
	used := make(map[string]bool, len(results))
	next := make(map[string]int)
	props := make([]property, 0, len(results))
	for _, r := range results {
		name := r.PropertyName
		if used[name] {
			n := max(next[r.PropertyName], 2)
			for used[r.PropertyName+strconv.Itoa(n)] {
				n++
			}
			name = r.PropertyName + strconv.Itoa(n)
			next[r.PropertyName] = n + 1
		}
		used[name] = true
		props = append(props, property{name: name, tag: r.TagValue})
	}
	return props
}
