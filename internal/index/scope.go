package index

import "github.com/phobologic/composetags/internal/model"

type scopeKey struct {
	file string
	name string
}

// lookup resolves a simple name as seen from owner: locals of the enclosing
// functions, then members of the enclosing classes, then the file scope.
func (idx *Index) lookup(owner *model.Declaration, name string) []*model.Declaration {
	var found []*model.Declaration
	for d := owner; d != nil; d = enclosing(d) {
		for _, l := range d.Locals {
			if l.Name == name {
				found = append(found, l)
			}
		}
		if d.Kind == model.Class || d.Kind == model.Object {
			found = append(found, members(d, name)...)
		}
		if len(found) > 0 {
			return found
		}
	}
	if owner == nil {
		return nil
	}
	return idx.fileScope(owner.File, name)
}

// fileScope resolves a name through explicit imports, then the file's own
// package, then wildcard imports. Results are memoised.
func (idx *Index) fileScope(path, name string) []*model.Declaration {
	key := scopeKey{file: path, name: name}
	if decls, ok := idx.scope.Get(key); ok {
		return decls
	}

	f := idx.byPath[path]
	if f == nil {
		return nil
	}
	decls := idx.resolveFileScope(f, name)
	idx.scope.Add(key, decls)
	return decls
}

func (idx *Index) resolveFileScope(f *model.File, name string) []*model.Declaration {
	var found []*model.Declaration
	for _, imp := range f.Imports {
		if !imp.Wildcard && imp.Name() == name {
			found = append(found, idx.qualified[imp.Path]...)
		}
	}
	if len(found) > 0 {
		return found
	}

	for _, d := range idx.packages[f.Package] {
		if d.Name == name {
			found = append(found, d)
		}
	}
	if len(found) > 0 {
		return found
	}

	for _, imp := range f.Imports {
		if imp.Wildcard {
			found = append(found, idx.qualified[imp.Path+"."+name]...)
		}
	}
	return found
}

// enclosing returns the declaration lexically around d.
func enclosing(d *model.Declaration) *model.Declaration {
	if d.Parent != nil {
		return d.Parent
	}
	return d.Container
}

// members returns the members of a class or object with the given name,
// including those of its companion object.
func members(d *model.Declaration, name string) []*model.Declaration {
	var found []*model.Declaration
	for _, m := range d.Members {
		if m.Name == name {
			found = append(found, m)
		}
		if m.Companion {
			for _, cm := range m.Members {
				if cm.Name == name {
					found = append(found, cm)
				}
			}
		}
	}
	return found
}

func filter(decls []*model.Declaration, keep func(*model.Declaration) bool) []*model.Declaration {
	var out []*model.Declaration
	for _, d := range decls {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func isFunction(d *model.Declaration) bool { return d.Kind == model.Function }

func isValue(d *model.Declaration) bool { return d.Kind != model.Function }
