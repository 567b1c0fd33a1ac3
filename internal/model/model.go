// Package model defines core data structures for composetags.
package model

import "strings"

// Position is a 1-based source location. Column counts bytes.
type Position struct {
	Line   int
	Column int
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// TypeRef is a written type. The zero value means the type is unknown.
type TypeRef struct {
	Name string // simple name, e.g. "Modifier"
	Text string // full written type, e.g. "Modifier?" or "@Composable () -> Unit"
}

func (t TypeRef) String() string {
	return t.Text
}

// IsZero reports whether the type is unknown.
func (t TypeRef) IsZero() bool {
	return t.Text == "" && t.Name == ""
}

// NewTypeRef builds a TypeRef from written type text.
func NewTypeRef(text string) TypeRef {
	text = strings.TrimSpace(text)
	if text == "" {
		return TypeRef{}
	}
	return TypeRef{Name: simpleTypeName(text), Text: text}
}

// simpleTypeName strips nullability, type arguments and the qualifier:
// "androidx.compose.ui.Modifier?" → "Modifier", "List<String>" → "List".
func simpleTypeName(text string) string {
	name := strings.TrimSuffix(text, "?")
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// Parameter is a value parameter of a function declaration.
type Parameter struct {
	Name string
	Type TypeRef
}

// DeclKind indicates the syntactic kind of a declaration.
type DeclKind string

const (
	Function DeclKind = "function"
	Object   DeclKind = "object"
	Class    DeclKind = "class"
	Property DeclKind = "property"
)

// Declaration is a named unit of the analyzed source: a function, an object,
// a class or a property. Library stubs are External and their bodies are never
// walked.
type Declaration struct {
	Kind          DeclKind
	Name          string
	QualifiedName string
	Package       string
	File          string

	Container *Declaration // enclosing class or object
	Parent    *Declaration // enclosing function, for local declarations

	Receiver    TypeRef // extension receiver; zero when not an extension
	Params      []Parameter
	ReturnType  TypeRef // declared return type, or property type
	Annotations []string

	Members []*Declaration // class and object members
	Locals  []*Declaration // local functions declared in the body

	Body      []Node
	HasBody   bool
	External  bool
	Companion bool // companion object

	Start Position
	End   Position
}

// HasAnnotation reports whether the declaration carries the named annotation.
func (d *Declaration) HasAnnotation(name string) bool {
	for _, a := range d.Annotations {
		if a == name {
			return true
		}
	}
	return false
}

// IsExtension reports whether the declaration is an extension function.
func (d *Declaration) IsExtension() bool {
	return !d.Receiver.IsZero()
}

// Contains reports whether pos falls inside the declaration's source range.
func (d *Declaration) Contains(pos Position) bool {
	return !pos.Before(d.Start) && !d.End.Before(pos)
}

// Member returns the first member with the given name.
func (d *Declaration) Member(name string) *Declaration {
	for _, m := range d.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// NodeKind is the closed set of node kinds the collector walks over.
type NodeKind int

const (
	NodeOther NodeKind = iota
	NodeCall
	NodeDeclaration
)

// Node is one element of a lowered declaration body.
type Node struct {
	Kind     NodeKind
	Call     *CallSite    // NodeCall
	Decl     *Declaration // NodeDeclaration
	Children []Node
}

// ExprKind classifies a lowered expression.
type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprName
	ExprString
	ExprQualified
	ExprCall
	ExprLambda
)

// Expr is an argument or receiver expression.
type Expr struct {
	Kind     ExprKind
	Text     string
	Name     string    // identifier for ExprName, selected member for ExprQualified
	Receiver *Expr     // ExprQualified
	Call     *CallSite // ExprCall
	Owner    *Declaration
}

// Argument is one value argument of a call.
type Argument struct {
	Name     string // empty for positional arguments
	Value    *Expr
	Trailing bool
}

// Slot is the nearest lambda passed as an argument around a call.
// Name is empty for trailing lambdas.
type Slot struct {
	Name string
}

// CallSite is a single invocation inside a declaration body.
type CallSite struct {
	Callee   string
	Receiver *Expr
	Args     []Argument
	Slot     *Slot
	Text     string
	Pos      Position
	Owner    *Declaration
}

// Import is one import directive of a file.
type Import struct {
	Path     string
	Alias    string
	Wildcard bool
}

// Name returns the simple name the import binds, or "" for wildcards.
func (i Import) Name() string {
	if i.Wildcard {
		return ""
	}
	if i.Alias != "" {
		return i.Alias
	}
	if idx := strings.LastIndexByte(i.Path, '.'); idx >= 0 {
		return i.Path[idx+1:]
	}
	return i.Path
}

// File holds the lowered declarations of a single source file.
type File struct {
	Path      string
	Package   string
	Imports   []Import
	Decls     []*Declaration // top level
	Functions []*Declaration // every function in source order, members and locals included
	External  bool
}

// CollectedRecord is one qualifying call found by the walk.
type CollectedRecord struct {
	Call     *CallSite
	Target   *Declaration
	NamePath string
	LastPart string
}

// TagResult is a resolved page-object property.
type TagResult struct {
	PropertyName      string
	TagValue          string
	OwnerFunctionName string
	NamePath          string
}
