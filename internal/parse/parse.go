// Package parse lowers Kotlin source files parsed with tree-sitter into the
// declaration and call-site model walked by the collector.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/composetags/internal/lang"
	"github.com/phobologic/composetags/internal/model"
)

// File parses a Kotlin source file and lowers it into the model.
// The parser must be created for Kotlin. path is stored as-is on every
// declaration and should be the project-relative path.
func File(ctx context.Context, parser *sitter.Parser, source []byte, path string) (*model.File, error) {
	return lower(ctx, parser, source, &model.File{Path: path})
}

// Stub parses a library stub file. Its declarations are External: they can be
// resolved but their bodies are never walked.
func Stub(ctx context.Context, parser *sitter.Parser, source []byte, path string) (*model.File, error) {
	return lower(ctx, parser, source, &model.File{Path: path, External: true})
}

func lower(ctx context.Context, parser *sitter.Parser, source []byte, f *model.File) (*model.File, error) {
	if len(source) == 0 {
		return f, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	defer tree.Close()

	l := &lowerer{
		src:   source,
		file:  f,
		calls: make(map[span]*model.CallSite),
	}
	l.sourceFile(tree.RootNode())
	return f, nil
}

type span struct{ start, end uint32 }

type lowerer struct {
	src  []byte
	file *model.File
	// calls shares one CallSite between the argument view and the walk view
	// of the same call_expression.
	calls map[span]*model.CallSite
}

func (l *lowerer) text(n *sitter.Node) string {
	return lang.NodeText(n, l.src)
}

func (l *lowerer) sourceFile(root *sitter.Node) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case packageHeaderNode:
			if id := lang.ChildOfType(child, identifierNode); id != nil {
				l.file.Package = stripSpace(l.text(id))
			}
		case importListNode:
			for _, h := range lang.ChildrenOfType(child, importHeaderNode) {
				l.file.Imports = append(l.file.Imports, l.importHeader(h))
			}
		case importHeaderNode:
			l.file.Imports = append(l.file.Imports, l.importHeader(child))
		default:
			if d := l.declaration(child, nil, nil); d != nil {
				l.file.Decls = append(l.file.Decls, d)
			}
		}
	}
}

func (l *lowerer) importHeader(n *sitter.Node) model.Import {
	var imp model.Import
	if id := lang.ChildOfType(n, identifierNode); id != nil {
		imp.Path = stripSpace(l.text(id))
	}
	if alias := lang.ChildOfType(n, importAliasNode); alias != nil {
		if name := firstOfTypes(alias, typeIdentifierNode, simpleIdentifierNode); name != nil {
			imp.Alias = l.text(name)
		}
	}
	imp.Wildcard = lang.ChildOfType(n, wildcardImportNode) != nil ||
		strings.HasSuffix(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(l.text(n)), ";")), "*")
	return imp
}

// declaration lowers a function, class, object or property node. Other node
// types return nil.
func (l *lowerer) declaration(n *sitter.Node, container, parent *model.Declaration) *model.Declaration {
	switch n.Type() {
	case functionDeclarationNode:
		return l.function(n, container, parent)
	case classDeclarationNode, objectDeclarationNode, companionObjectNode:
		return l.classLike(n, container)
	case propertyDeclarationNode:
		return l.property(n, container)
	}
	return nil
}

func (l *lowerer) newDecl(kind model.DeclKind, n *sitter.Node, container, parent *model.Declaration) *model.Declaration {
	return &model.Declaration{
		Kind:      kind,
		Package:   l.file.Package,
		File:      l.file.Path,
		Container: container,
		Parent:    parent,
		External:  l.file.External,
		Start:     position(n.StartPoint()),
		End:       position(n.EndPoint()),
	}
}

func (l *lowerer) qualify(d *model.Declaration) {
	switch {
	case d.Parent != nil:
		d.QualifiedName = d.Parent.QualifiedName + "." + d.Name
	case d.Container != nil:
		d.QualifiedName = d.Container.QualifiedName + "." + d.Name
	case l.file.Package != "":
		d.QualifiedName = l.file.Package + "." + d.Name
	default:
		d.QualifiedName = d.Name
	}
}

func (l *lowerer) function(n *sitter.Node, container, parent *model.Declaration) *model.Declaration {
	d := l.newDecl(model.Function, n, container, parent)

	var body *sitter.Node
	seenName, afterParams, wantReturn := false, false, false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch typ := child.Type(); {
		case typ == modifiersNode:
			d.Annotations = l.annotations(child)
		case typ == simpleIdentifierNode && !seenName:
			d.Name = l.text(child)
			seenName = true
		case isType(typ):
			switch {
			case !seenName:
				d.Receiver = model.NewTypeRef(lang.CollapseWhitespace(l.text(child)))
			case wantReturn:
				d.ReturnType = model.NewTypeRef(lang.CollapseWhitespace(l.text(child)))
				wantReturn = false
			}
		case typ == functionValueParametersNode:
			d.Params = l.parameters(child)
			afterParams = true
		case typ == ":" && afterParams:
			wantReturn = true
		case typ == functionBodyNode:
			body = child
		}
	}
	l.qualify(d)
	l.file.Functions = append(l.file.Functions, d)

	if body != nil {
		d.HasBody = true
		d.Body = l.children(body, d)
	}
	return d
}

func (l *lowerer) parameters(n *sitter.Node) []model.Parameter {
	var params []model.Parameter
	for _, p := range lang.ChildrenOfType(n, parameterNode) {
		var param model.Parameter
		if name := lang.ChildOfType(p, simpleIdentifierNode); name != nil {
			param.Name = l.text(name)
		}
		param.Type = model.NewTypeRef(l.typeAfterColon(p))
		params = append(params, param)
	}
	return params
}

// typeAfterColon returns the collapsed source text following the first ":"
// child of n, up to the end of n.
func (l *lowerer) typeAfterColon(n *sitter.Node) string {
	for i := 0; i < int(n.ChildCount())-1; i++ {
		if n.Child(i).Type() == ":" {
			start := n.Child(i + 1).StartByte()
			return lang.CollapseWhitespace(string(l.src[start:n.EndByte()]))
		}
	}
	return ""
}

func (l *lowerer) annotations(modifiers *sitter.Node) []string {
	var names []string
	for _, a := range lang.ChildrenOfType(modifiers, annotationNode) {
		t := lang.ChildOfType(a, userTypeNode)
		if t == nil {
			if inv := lang.ChildOfType(a, constructorInvocationNode); inv != nil {
				t = lang.ChildOfType(inv, userTypeNode)
			}
		}
		if t != nil {
			names = append(names, stripSpace(l.text(t)))
		}
	}
	return names
}

func (l *lowerer) classLike(n *sitter.Node, container *model.Declaration) *model.Declaration {
	kind := model.Class
	if n.Type() != classDeclarationNode {
		kind = model.Object
	}
	d := l.newDecl(kind, n, container, nil)
	d.Companion = n.Type() == companionObjectNode
	if name := firstOfTypes(n, typeIdentifierNode, simpleIdentifierNode); name != nil {
		d.Name = l.text(name)
	} else if d.Companion {
		d.Name = "Companion"
	}
	if mods := lang.ChildOfType(n, modifiersNode); mods != nil {
		d.Annotations = l.annotations(mods)
	}
	l.qualify(d)

	body := firstOfTypes(n, classBodyNode, enumClassBodyNode)
	if body == nil {
		return d
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		if m := l.declaration(body.Child(i), d, nil); m != nil {
			d.Members = append(d.Members, m)
		}
	}
	return d
}

func (l *lowerer) property(n *sitter.Node, container *model.Declaration) *model.Declaration {
	d := l.newDecl(model.Property, n, container, nil)
	if mods := lang.ChildOfType(n, modifiersNode); mods != nil {
		d.Annotations = l.annotations(mods)
	}
	if v := lang.ChildOfType(n, variableDeclarationNode); v != nil {
		if name := lang.ChildOfType(v, simpleIdentifierNode); name != nil {
			d.Name = l.text(name)
		}
		d.ReturnType = model.NewTypeRef(l.typeAfterColon(v))
	}
	l.qualify(d)
	return d
}

// children lowers the direct children of n. Calls, local functions and lambda
// literals become nodes; all other syntax is spliced into its parent.
func (l *lowerer) children(n *sitter.Node, owner *model.Declaration) []model.Node {
	var out []model.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, l.node(n.Child(i), owner)...)
	}
	return out
}

func (l *lowerer) node(n *sitter.Node, owner *model.Declaration) []model.Node {
	switch n.Type() {
	case callExpressionNode:
		callee, suffixes := callParts(n)
		var children []model.Node
		if callee != nil {
			children = l.node(callee, owner)
		}
		for _, suffix := range suffixes {
			children = append(children, l.children(suffix, owner)...)
		}
		return []model.Node{{
			Kind:     model.NodeCall,
			Call:     l.callSite(n, owner),
			Children: children,
		}}
	case functionDeclarationNode:
		local := l.function(n, nil, owner)
		owner.Locals = append(owner.Locals, local)
		return []model.Node{{Kind: model.NodeDeclaration, Decl: local, Children: local.Body}}
	case lambdaLiteralNode:
		return []model.Node{{Kind: model.NodeOther, Children: l.children(n, owner)}}
	default:
		return l.children(n, owner)
	}
}

func (l *lowerer) callSite(n *sitter.Node, owner *model.Declaration) *model.CallSite {
	key := span{n.StartByte(), n.EndByte()}
	if cs, ok := l.calls[key]; ok {
		return cs
	}
	cs := &model.CallSite{
		Text:  l.text(n),
		Pos:   position(n.StartPoint()),
		Owner: owner,
	}
	l.calls[key] = cs

	callee, suffixes := callParts(n)
	if callee != nil {
		switch callee.Type() {
		case simpleIdentifierNode:
			cs.Callee = l.text(callee)
		case navigationExpressionNode:
			cs.Receiver = l.expr(callee.Child(0), owner)
			cs.Callee = l.navigationMember(callee)
		default:
			cs.Callee = l.text(callee)
		}
	}
	for _, suffix := range suffixes {
		cs.Args = append(cs.Args, l.arguments(suffix, owner)...)
	}
	cs.Slot = l.slot(n)
	return cs
}

// callParts splits a call into its callee and call suffixes. The grammar
// parses f(a) { ... } as a call whose callee is the call f(a); those nest
// into one call with the trailing lambda after the value arguments.
func callParts(n *sitter.Node) (*sitter.Node, []*sitter.Node) {
	var suffixes []*sitter.Node
	for n.ChildCount() > 0 {
		head := n.Child(0)
		suffix := lang.ChildOfType(n, callSuffixNode)
		if suffix != nil {
			suffixes = append([]*sitter.Node{suffix}, suffixes...)
		}
		if head.Type() != callExpressionNode || !trailingOnly(suffix) {
			return head, suffixes
		}
		n = head
	}
	return nil, suffixes
}

// trailingOnly reports whether suffix holds a trailing lambda and no
// parenthesised arguments.
func trailingOnly(suffix *sitter.Node) bool {
	if suffix == nil {
		return false
	}
	return lang.ChildOfType(suffix, annotatedLambdaNode) != nil &&
		lang.ChildOfType(suffix, valueArgumentsNode) == nil
}

func (l *lowerer) arguments(suffix *sitter.Node, owner *model.Declaration) []model.Argument {
	var args []model.Argument
	for i := 0; i < int(suffix.ChildCount()); i++ {
		child := suffix.Child(i)
		switch child.Type() {
		case valueArgumentsNode:
			for _, va := range lang.ChildrenOfType(child, valueArgumentNode) {
				value := lastValueChild(va)
				if value == nil {
					continue
				}
				args = append(args, model.Argument{
					Name:  l.argumentName(va),
					Value: l.expr(value, owner),
				})
			}
		case annotatedLambdaNode:
			if lambda := lang.ChildOfType(child, lambdaLiteralNode); lambda != nil {
				args = append(args, model.Argument{Value: l.expr(lambda, owner), Trailing: true})
			}
		}
	}
	return args
}

// argumentName returns the name of a named value argument, or "".
func (l *lowerer) argumentName(va *sitter.Node) string {
	if lang.ChildOfType(va, "=") == nil {
		return ""
	}
	if name := lang.ChildOfType(va, simpleIdentifierNode); name != nil {
		return l.text(name)
	}
	return ""
}

// lastValueChild returns the argument expression of a value_argument.
func lastValueChild(va *sitter.Node) *sitter.Node {
	for i := int(va.NamedChildCount()) - 1; i >= 0; i-- {
		if c := va.NamedChild(i); c.Type() != annotationNode {
			return c
		}
	}
	return nil
}

// slot finds the nearest enclosing lambda that is passed directly as an
// argument, without leaving the enclosing function.
func (l *lowerer) slot(n *sitter.Node) *model.Slot {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case functionDeclarationNode:
			return nil
		case lambdaLiteralNode:
			pp := p.Parent()
			if pp == nil {
				continue
			}
			switch pp.Type() {
			case valueArgumentNode:
				return &model.Slot{Name: l.argumentName(pp)}
			case annotatedLambdaNode:
				return &model.Slot{}
			}
		}
	}
	return nil
}

func (l *lowerer) navigationMember(nav *sitter.Node) string {
	if suffix := lang.ChildOfType(nav, navigationSuffixNode); suffix != nil {
		if name := lang.ChildOfType(suffix, simpleIdentifierNode); name != nil {
			return l.text(name)
		}
	}
	return ""
}

func (l *lowerer) expr(n *sitter.Node, owner *model.Declaration) *model.Expr {
	e := &model.Expr{Text: l.text(n), Owner: owner}
	switch typ := n.Type(); {
	case typ == simpleIdentifierNode:
		e.Kind = model.ExprName
		e.Name = e.Text
	case isStringLiteral(typ):
		e.Kind = model.ExprString
	case typ == navigationExpressionNode && n.ChildCount() > 0:
		e.Kind = model.ExprQualified
		e.Receiver = l.expr(n.Child(0), owner)
		e.Name = l.navigationMember(n)
	case typ == callExpressionNode:
		e.Kind = model.ExprCall
		e.Call = l.callSite(n, owner)
	case typ == lambdaLiteralNode:
		e.Kind = model.ExprLambda
	}
	return e
}

func firstOfTypes(n *sitter.Node, types ...string) *sitter.Node {
	for _, typ := range types {
		if c := lang.ChildOfType(n, typ); c != nil {
			return c
		}
	}
	return nil
}

func position(p sitter.Point) model.Position {
	return model.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
