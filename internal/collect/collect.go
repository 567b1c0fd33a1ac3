// Package collect walks a composable function's nested call graph and
// collects the calls that carry a test tag through their modifier argument.
package collect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/phobologic/composetags/internal/model"
)

// Resolver answers the name- and type-resolution questions the walk asks.
type Resolver interface {
	// Resolve returns the declaration a call invokes.
	Resolve(call *model.CallSite) (*model.Declaration, bool)
	// DeclarationIsAvailable is false for library declarations without an inspectable body.
	DeclarationIsAvailable(decl *model.Declaration) bool
	// ParameterType returns the written type of the i-th value parameter.
	ParameterType(decl *model.Declaration, i int) model.TypeRef
	// StaticType returns the static type of an expression, or the zero TypeRef.
	StaticType(expr *model.Expr) model.TypeRef
	// ReferenceTarget returns the declaration a name or qualified expression refers to.
	ReferenceTarget(expr *model.Expr) (*model.Declaration, bool)
}

// Config holds the naming conventions of the analyzed UI framework.
type Config struct {
	StopNamespacePrefixes []string
	ModifierTypeMarker    string
	TagMemberName         string
	UIMarkerAnnotation    string
}

// DefaultConfig returns the Jetpack Compose conventions.
func DefaultConfig() Config {
	return Config{
		StopNamespacePrefixes: []string{
			"androidx.compose.foundation",
			"androidx.compose.material",
			"androidx.compose.material3",
			"androidx.compose.runtime",
			"com.google.samples.apps.nowinandroid.core.designsystem.component",
		},
		ModifierTypeMarker: "Modifier",
		TagMemberName:      "testTag",
		UIMarkerAnnotation: "androidx.compose.runtime.Composable",
	}
}

// Collector performs the walk. It holds no per-walk state and can be reused.
type Collector struct {
	resolver Resolver
	cfg      Config
	log      zerolog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for walk decisions (debug level).
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// New creates a Collector over the given resolver.
func New(r Resolver, cfg Config, opts ...Option) *Collector {
	c := &Collector{resolver: r, cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect walks root and returns the extracted tags in source order.
func (c *Collector) Collect(root *model.Declaration, prefix string) []model.TagResult {
	records := c.Records(root, prefix)
	var results []model.TagResult
	for i := range records {
		if r, ok := c.extract(&records[i]); ok {
			results = append(results, r)
		}
	}
	return results
}

// Records walks root and returns every qualifying call, before tag extraction.
func (c *Collector) Records(root *model.Declaration, prefix string) []model.CollectedRecord {
	if root == nil {
		return nil
	}
	w := &walk{Collector: c, active: make(map[*model.Declaration]bool)}
	return w.declaration(root, prefix)
}

// walk carries the active descent stack of one Records call.
type walk struct {
	*Collector
	active map[*model.Declaration]bool
}

func (w *walk) declaration(decl *model.Declaration, prefix string) []model.CollectedRecord {
	w.active[decl] = true
	defer delete(w.active, decl)
	return w.nodes(decl.Body, prefix)
}

func (w *walk) nodes(nodes []model.Node, prefix string) []model.CollectedRecord {
	var out []model.CollectedRecord
	for i := range nodes {
		out = append(out, w.node(&nodes[i], prefix)...)
	}
	return out
}

func (w *walk) node(n *model.Node, prefix string) []model.CollectedRecord {
	switch n.Kind {
	case model.NodeCall:
		return w.call(n, prefix)
	default:
		return w.nodes(n.Children, prefix)
	}
}

func (w *walk) call(n *model.Node, prefix string) []model.CollectedRecord {
	call := n.Call
	target, ok := w.resolver.Resolve(call)
	if !ok || target == nil {
		w.log.Debug().Str("call", call.Callee).Int("line", call.Pos.Line).Msg("unresolved call")
		return w.nodes(n.Children, prefix)
	}

	var out []model.CollectedRecord
	if w.hasUIMarkerAnnotation(target) && w.hasStyleParameter(target) {
		part := lastAddedNamePart(call, target)
		out = append(out, model.CollectedRecord{
			Call:     call,
			Target:   target,
			NamePath: prefix + ":" + part,
			LastPart: part,
		})
	}

	if w.shouldContinueRecursion(target) && w.resolver.DeclarationIsAvailable(target) {
		if !w.active[target] {
			w.log.Debug().Str("target", target.QualifiedName).Msg("descending")
			return append(out, w.declaration(target, prefix+":"+lowerFirst(target.Name))...)
		}
		w.log.Debug().Str("target", target.QualifiedName).Msg("recursive call, visiting in place")
	}
	return append(out, w.nodes(n.Children, prefix)...)
}

func (c *Collector) hasUIMarkerAnnotation(decl *model.Declaration) bool {
	return decl.HasAnnotation(c.cfg.UIMarkerAnnotation)
}

func (c *Collector) hasStyleParameter(decl *model.Declaration) bool {
	for i := range decl.Params {
		if strings.Contains(c.resolver.ParameterType(decl, i).Text, c.cfg.ModifierTypeMarker) {
			return true
		}
	}
	return false
}

func (c *Collector) shouldContinueRecursion(decl *model.Declaration) bool {
	switch {
	case c.isStopNamespace(decl):
		return false
	case !c.hasStyleParameter(decl):
		return false
	default:
		return true
	}
}

func (c *Collector) isStopNamespace(decl *model.Declaration) bool {
	for _, p := range c.cfg.StopNamespacePrefixes {
		if p != "" && strings.HasPrefix(decl.QualifiedName, p) {
			return true
		}
	}
	return false
}

// lastAddedNamePart names a record after its enclosing named slot, or after
// the invoked function.
func lastAddedNamePart(call *model.CallSite, target *model.Declaration) string {
	if call.Slot != nil && call.Slot.Name != "" {
		return call.Slot.Name
	}
	return lowerFirst(target.Name)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
