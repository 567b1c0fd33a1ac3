// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/composetags/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts the tags collected for one composable into TOON format.
func Encode(owner string, results []model.TagResult) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("owner: %s", encodeValue(owner)))

	var rows [][]string
	for i := range results {
		r := &results[i]
		rows = append(rows, []string{
			r.PropertyName,
			r.TagValue,
			r.OwnerFunctionName,
			r.NamePath,
		})
	}
	parts = append(parts, formatTabular("tags", []string{"property", "tag", "owner", "path"}, rows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

// encodeValue quotes a cell that would otherwise be read as a keyword or
// split at a delimiter. Kotlin string literal tags carry their own quotes,
// so they are always quoted and escaped as a whole.
func encodeValue(value string) string {
	if plain(value) {
		return value
	}
	return `"` + escaper.Replace(value) + `"`
}

func plain(value string) bool {
	switch {
	case value == "":
		return false
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return false
	case looksNumeric.MatchString(value):
		return true
	case needsQuoting.MatchString(value), strings.HasPrefix(value, "-"):
		return false
	}
	_, keyword := keywords[strings.ToLower(value)]
	return !keyword
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)
