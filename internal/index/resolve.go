package index

import (
	"strings"

	"github.com/phobologic/composetags/internal/model"
)

// Resolve returns the function a call invokes.
func (idx *Index) Resolve(call *model.CallSite) (*model.Declaration, bool) {
	if call == nil || call.Callee == "" {
		return nil, false
	}
	if call.Receiver == nil {
		return idx.resolveUnqualified(call)
	}
	return idx.resolveQualified(call)
}

func (idx *Index) resolveUnqualified(call *model.CallSite) (*model.Declaration, bool) {
	cands := filter(idx.lookup(call.Owner, call.Callee), isFunction)
	plain := filter(cands, func(d *model.Declaration) bool { return !d.IsExtension() })
	if len(plain) > 0 {
		return pick(plain, call), true
	}
	// Extensions on a scope receiver, e.g. RowScope composables called
	// inside the Row content lambda.
	if len(cands) > 0 {
		return pick(cands, call), true
	}
	return nil, false
}

func (idx *Index) resolveQualified(call *model.CallSite) (*model.Declaration, bool) {
	recv := call.Receiver

	if target, ok := idx.ReferenceTarget(recv); ok && target.Kind != model.Property {
		if cands := filter(members(target, call.Callee), isFunction); len(cands) > 0 {
			return pick(cands, call), true
		}
	}

	if cands := filter(idx.qualified[stripSpace(recv.Text)+"."+call.Callee], isFunction); len(cands) > 0 {
		return pick(cands, call), true
	}

	typ := idx.StaticType(recv)
	if typ.IsZero() {
		return nil, false
	}
	matches := func(d *model.Declaration) bool {
		return d.Kind == model.Function && d.IsExtension() && d.Receiver.Name == typ.Name
	}
	if cands := filter(idx.lookup(call.Owner, call.Callee), matches); len(cands) > 0 {
		return pick(cands, call), true
	}
	if cands := filter(idx.extensions[call.Callee], matches); len(cands) > 0 {
		return pick(cands, call), true
	}
	return nil, false
}

// pick chooses the overload whose parameters fit the call's arguments, or
// the first candidate when none fits.
func pick(cands []*model.Declaration, call *model.CallSite) *model.Declaration {
	for _, d := range cands {
		if fits(d, call) {
			return d
		}
	}
	return cands[0]
}

func fits(d *model.Declaration, call *model.CallSite) bool {
	positional := 0
	for _, a := range call.Args {
		if a.Name == "" {
			positional++
			continue
		}
		if !hasParam(d, a.Name) {
			return false
		}
	}
	return positional <= len(d.Params)
}

func hasParam(d *model.Declaration, name string) bool {
	for _, p := range d.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// DeclarationIsAvailable reports whether a declaration has a body that can
// be walked. Library stubs never do.
func (idx *Index) DeclarationIsAvailable(decl *model.Declaration) bool {
	return decl != nil && !decl.External && decl.HasBody
}

// ParameterType returns the written type of the i-th parameter of decl.
func (idx *Index) ParameterType(decl *model.Declaration, i int) model.TypeRef {
	if decl == nil || i < 0 || i >= len(decl.Params) {
		return model.TypeRef{}
	}
	return decl.Params[i].Type
}

// StaticType returns the static type of an expression. Unknown types are the
// zero TypeRef.
func (idx *Index) StaticType(expr *model.Expr) model.TypeRef {
	if expr == nil {
		return model.TypeRef{}
	}
	switch expr.Kind {
	case model.ExprString:
		return model.NewTypeRef("String")
	case model.ExprName:
		if t, ok := parameterType(expr.Owner, expr.Name); ok {
			return t
		}
		if d, ok := idx.ReferenceTarget(expr); ok {
			return valueType(d)
		}
	case model.ExprQualified:
		if d, ok := idx.ReferenceTarget(expr); ok {
			return valueType(d)
		}
	case model.ExprCall:
		if d, ok := idx.Resolve(expr.Call); ok {
			return d.ReturnType
		}
	}
	return model.TypeRef{}
}

// parameterType finds a parameter of owner or its enclosing functions.
func parameterType(owner *model.Declaration, name string) (model.TypeRef, bool) {
	for d := owner; d != nil; d = enclosing(d) {
		for _, p := range d.Params {
			if p.Name == name {
				return p.Type, true
			}
		}
	}
	return model.TypeRef{}, false
}

// valueType is the type a class, object or property reference evaluates to.
func valueType(d *model.Declaration) model.TypeRef {
	switch d.Kind {
	case model.Property:
		return d.ReturnType
	case model.Class, model.Object:
		return model.NewTypeRef(d.Name)
	}
	return model.TypeRef{}
}

// ReferenceTarget returns the class, object or property a name or dotted
// reference denotes.
func (idx *Index) ReferenceTarget(expr *model.Expr) (*model.Declaration, bool) {
	if expr == nil {
		return nil, false
	}
	switch expr.Kind {
	case model.ExprName:
		if _, ok := parameterType(expr.Owner, expr.Name); ok {
			return nil, false
		}
		if cands := filter(idx.lookup(expr.Owner, expr.Name), isValue); len(cands) > 0 {
			return cands[0], true
		}
	case model.ExprQualified:
		if recv, ok := idx.ReferenceTarget(expr.Receiver); ok && recv.Kind != model.Property {
			if cands := filter(members(recv, expr.Name), isValue); len(cands) > 0 {
				return cands[0], true
			}
		}
		if cands := filter(idx.qualified[stripSpace(expr.Text)], isValue); len(cands) > 0 {
			return cands[0], true
		}
	}
	return nil, false
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
