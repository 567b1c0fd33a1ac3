package collect

import (
	"strings"

	"github.com/phobologic/composetags/internal/model"
)

// extract turns a collected record into a tag result. Records without a
// statically extractable tag are dropped.
func (c *Collector) extract(rec *model.CollectedRecord) (model.TagResult, bool) {
	arg := c.modifierArgument(rec.Call)
	if arg == nil {
		c.log.Debug().Str("path", rec.NamePath).Msg("dropped: no modifier argument")
		return model.TagResult{}, false
	}
	if !strings.Contains(arg.Text, "."+c.cfg.TagMemberName) {
		c.log.Debug().Str("path", rec.NamePath).Msg("dropped: modifier has no tag")
		return model.TagResult{}, false
	}

	tagCall := c.tagCall(arg)
	if tagCall == nil || len(tagCall.Args) == 0 {
		c.log.Debug().Str("path", rec.NamePath).Msg("dropped: tag call not found in chain")
		return model.TagResult{}, false
	}

	value := c.tagValue(tagCall.Args[0].Value)
	if strings.TrimSpace(value) == "" {
		c.log.Debug().Str("path", rec.NamePath).Msg("dropped: unsupported tag expression")
		return model.TagResult{}, false
	}

	return model.TagResult{
		PropertyName:      rec.LastPart,
		TagValue:          value,
		OwnerFunctionName: rec.Target.Name,
		NamePath:          rec.NamePath,
	}, true
}

// modifierArgument returns the first argument whose static type is exactly
// the modifier type.
func (c *Collector) modifierArgument(call *model.CallSite) *model.Expr {
	for _, a := range call.Args {
		if a.Value == nil {
			continue
		}
		if c.resolver.StaticType(a.Value).Text == c.cfg.ModifierTypeMarker {
			return a.Value
		}
	}
	return nil
}

// tagCall returns the first call, in source order, of the modifier chain that
// invokes the tag member.
func (c *Collector) tagCall(expr *model.Expr) *model.CallSite {
	var chain []*model.CallSite
	for e := expr; e != nil; {
		switch e.Kind {
		case model.ExprCall:
			chain = append(chain, e.Call)
			e = e.Call.Receiver
		case model.ExprQualified:
			e = e.Receiver
		default:
			e = nil
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Callee == c.cfg.TagMemberName {
			return chain[i]
		}
	}
	return nil
}

// tagValue renders the tag argument: string literals are kept as the literal
// token, qualified references become "<receiver qualified name><member suffix>".
func (c *Collector) tagValue(expr *model.Expr) string {
	if expr == nil {
		return ""
	}
	switch expr.Kind {
	case model.ExprString:
		return expr.Text
	case model.ExprQualified:
		return c.qualifiedValue(expr, expr.Receiver)
	case model.ExprCall:
		if expr.Call.Receiver != nil {
			return c.qualifiedValue(expr, expr.Call.Receiver)
		}
	}
	return ""
}

func (c *Collector) qualifiedValue(expr, receiver *model.Expr) string {
	if receiver == nil {
		return ""
	}
	suffix := strings.TrimPrefix(expr.Text, receiver.Text)
	owner := receiver.Text
	if decl, ok := c.resolver.ReferenceTarget(receiver); ok && decl.QualifiedName != "" {
		owner = decl.QualifiedName
	}
	return owner + suffix
}
