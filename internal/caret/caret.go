// Package caret locates the composable function a caret position points at.
package caret

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phobologic/composetags/internal/model"
)

var (
	// ErrBadLocation is returned for locations not of the form file:line[:col].
	ErrBadLocation = errors.New("invalid location")
	// ErrNoFunction is returned when no function contains the caret.
	ErrNoFunction = errors.New("no function at caret")
	// ErrNotEnabled is returned when the function at the caret is not a UI function.
	ErrNotEnabled = errors.New("function is not annotated as a UI function")
)

// Location is a caret position in a file.
type Location struct {
	Path   string
	Line   int
	Column int
}

// Position returns the caret as a model position.
func (l Location) Position() model.Position {
	return model.Position{Line: l.Line, Column: l.Column}
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// ParseLocation parses "path:line" or "path:line:col". The column defaults
// to 1.
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return Location{}, fmt.Errorf("%q: %w", s, ErrBadLocation)
	}

	var nums []int
	// Take up to two trailing numeric parts; the rest is the path.
	for len(nums) < 2 && len(parts) > 1 {
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			break
		}
		nums = append([]int{n}, nums...)
		parts = parts[:len(parts)-1]
	}
	if len(nums) == 0 {
		return Location{}, fmt.Errorf("%q: missing line: %w", s, ErrBadLocation)
	}

	loc := Location{Path: strings.Join(parts, ":"), Line: nums[0], Column: 1}
	if len(nums) == 2 {
		loc.Column = nums[1]
	}
	if loc.Path == "" || loc.Line < 1 || loc.Column < 1 {
		return Location{}, fmt.Errorf("%q: %w", s, ErrBadLocation)
	}
	return loc, nil
}

// Enclosing returns the innermost function of f whose source range contains
// pos.
func Enclosing(f *model.File, pos model.Position) (*model.Declaration, error) {
	var best *model.Declaration
	for _, d := range f.Functions {
		if !d.Contains(pos) {
			continue
		}
		if best == nil || best.Start.Before(d.Start) {
			best = d
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s:%d:%d: %w", f.Path, pos.Line, pos.Column, ErrNoFunction)
	}
	return best, nil
}

// Enabled reports whether the page-object action applies to decl: it must be
// a function annotated with marker. An annotation left unqualified because
// its import is missing matches by simple name.
func Enabled(decl *model.Declaration, marker string) bool {
	if decl == nil || decl.Kind != model.Function {
		return false
	}
	if decl.HasAnnotation(marker) {
		return true
	}
	simple := marker
	if i := strings.LastIndexByte(marker, '.'); i >= 0 {
		simple = marker[i+1:]
	}
	return decl.HasAnnotation(simple)
}

// Target returns the enclosing function at pos when the action applies to it.
func Target(f *model.File, pos model.Position, marker string) (*model.Declaration, error) {
	decl, err := Enclosing(f, pos)
	if err != nil {
		return nil, err
	}
	if !Enabled(decl, marker) {
		return nil, fmt.Errorf("%s: %w", decl.Name, ErrNotEnabled)
	}
	return decl, nil
}
