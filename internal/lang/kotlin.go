package lang

import "github.com/smacker/go-tree-sitter/kotlin"

func init() {
	Languages["kotlin"] = &Language{
		Name:       "kotlin",
		Extensions: []string{".kt"},
		lang:       kotlin.GetLanguage(),
	}
}
