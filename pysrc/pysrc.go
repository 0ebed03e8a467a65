// Package pysrc renders a decompiled ast tree back to Python source text.
// It exists as test support only: the production pretty-printer is an
// external collaborator outside this core's scope, but the end-to-end
// scenarios assert against literal source, so the tests need a small,
// deterministic renderer with one canonical spacing and quoting style.
// Its shape follows ast's own debug Printer (an indent-tracking writer
// walking the tree), substituting Python surface syntax for the debug
// dump format.
package pysrc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mna/depyc/ast"
)

// Emit renders a whole module.
func Emit(m *ast.Module) string {
	var b strings.Builder
	emitStmts(&b, m.Body, 0)
	return b.String()
}

// EmitStmts renders a statement list at the given indent level, one
// statement per line group.
func EmitStmts(stmts []ast.Stmt) string {
	var b strings.Builder
	emitStmts(&b, stmts, 0)
	return b.String()
}

const indentUnit = "    "

func emitStmts(b *strings.Builder, stmts []ast.Stmt, depth int) {
	for _, s := range stmts {
		emitStmt(b, s, depth)
	}
}

func line(b *strings.Builder, depth int, format string, args ...interface{}) {
	b.WriteString(strings.Repeat(indentUnit, depth))
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}

func emitBody(b *strings.Builder, body []ast.Stmt, depth int) {
	if len(body) == 0 {
		line(b, depth, "pass")
		return
	}
	emitStmts(b, body, depth)
}

func emitStmt(b *strings.Builder, s ast.Stmt, depth int) {
	switch v := s.(type) {
	case *ast.AssignStmt:
		var targets []string
		for _, t := range v.Targets {
			targets = append(targets, target(t))
		}
		line(b, depth, "%s = %s", strings.Join(targets, " = "), expr(v.Value))
	case *ast.AugAssignStmt:
		line(b, depth, "%s %s= %s", expr(v.Target), v.Op, expr(v.Value))
	case *ast.AnnAssignStmt:
		if v.Value != nil {
			line(b, depth, "%s: %s = %s", expr(v.Target), expr(v.Annotation), expr(v.Value))
		} else {
			line(b, depth, "%s: %s", expr(v.Target), expr(v.Annotation))
		}
	case *ast.ExprStmt:
		line(b, depth, "%s", expr(v.Value))
	case *ast.ReturnStmt:
		if v.Value == nil {
			line(b, depth, "return")
		} else {
			line(b, depth, "return %s", expr(v.Value))
		}
	case *ast.RaiseStmt:
		switch {
		case v.Exc == nil:
			line(b, depth, "raise")
		case v.Cause != nil:
			line(b, depth, "raise %s from %s", expr(v.Exc), expr(v.Cause))
		default:
			line(b, depth, "raise %s", expr(v.Exc))
		}
	case *ast.AssertStmt:
		if v.Msg != nil {
			line(b, depth, "assert %s, %s", expr(v.Test), expr(v.Msg))
		} else {
			line(b, depth, "assert %s", expr(v.Test))
		}
	case *ast.DeleteStmt:
		var targets []string
		for _, t := range v.Targets {
			targets = append(targets, expr(t))
		}
		line(b, depth, "del %s", strings.Join(targets, ", "))
	case *ast.PassStmt:
		line(b, depth, "pass")
	case *ast.BreakStmt:
		line(b, depth, "break")
	case *ast.ContinueStmt:
		line(b, depth, "continue")
	case *ast.ImportStmt:
		line(b, depth, "import %s", importAliases(v.Names))
	case *ast.ImportFromStmt:
		line(b, depth, "from %s%s import %s", strings.Repeat(".", v.Level), v.Module, importAliases(v.Names))
	case *ast.GlobalStmt:
		line(b, depth, "global %s", strings.Join(v.Names, ", "))
	case *ast.NonlocalStmt:
		line(b, depth, "nonlocal %s", strings.Join(v.Names, ", "))
	case *ast.IfStmt:
		line(b, depth, "if %s:", expr(v.Test))
		emitBody(b, v.Body, depth+1)
		for _, e := range v.Elifs {
			line(b, depth, "elif %s:", expr(e.Test))
			emitBody(b, e.Body, depth+1)
		}
		if len(v.Orelse) > 0 {
			line(b, depth, "else:")
			emitBody(b, v.Orelse, depth+1)
		}
	case *ast.WhileStmt:
		line(b, depth, "while %s:", expr(v.Test))
		emitBody(b, v.Body, depth+1)
		if len(v.Orelse) > 0 {
			line(b, depth, "else:")
			emitBody(b, v.Orelse, depth+1)
		}
	case *ast.ForStmt:
		kw := "for"
		if v.IsAsync {
			kw = "async for"
		}
		line(b, depth, "%s %s in %s:", kw, target(v.Target), expr(v.Iter))
		emitBody(b, v.Body, depth+1)
		if len(v.Orelse) > 0 {
			line(b, depth, "else:")
			emitBody(b, v.Orelse, depth+1)
		}
	case *ast.TryStmt:
		line(b, depth, "try:")
		emitBody(b, v.Body, depth+1)
		for _, h := range v.Handlers {
			star := ""
			if h.IsStar {
				star = "*"
			}
			switch {
			case h.Type == nil:
				line(b, depth, "except:")
			case h.Name != "":
				line(b, depth, "except%s %s as %s:", star, expr(h.Type), h.Name)
			default:
				line(b, depth, "except%s %s:", star, expr(h.Type))
			}
			emitBody(b, h.Body, depth+1)
		}
		if len(v.Orelse) > 0 {
			line(b, depth, "else:")
			emitBody(b, v.Orelse, depth+1)
		}
		if len(v.Finally) > 0 {
			line(b, depth, "finally:")
			emitBody(b, v.Finally, depth+1)
		}
	case *ast.WithStmt:
		kw := "with"
		if v.IsAsync {
			kw = "async with"
		}
		var items []string
		for _, it := range v.Items {
			if it.As != nil {
				items = append(items, fmt.Sprintf("%s as %s", expr(it.Context), expr(it.As)))
			} else {
				items = append(items, expr(it.Context))
			}
		}
		line(b, depth, "%s %s:", kw, strings.Join(items, ", "))
		emitBody(b, v.Body, depth+1)
	case *ast.MatchStmt:
		line(b, depth, "match %s:", expr(v.Subject))
		for _, c := range v.Cases {
			if c.Guard != nil {
				line(b, depth+1, "case %s if %s:", pattern(c.Pattern), expr(c.Guard))
			} else {
				line(b, depth+1, "case %s:", pattern(c.Pattern))
			}
			emitBody(b, c.Body, depth+2)
		}
	case *ast.FunctionDefStmt:
		for _, d := range v.Decorators {
			line(b, depth, "@%s", expr(d.Expr))
		}
		kw := "def"
		if v.IsAsync {
			kw = "async def"
		}
		ret := ""
		if v.Returns != nil {
			ret = " -> " + expr(v.Returns)
		}
		line(b, depth, "%s %s(%s)%s:", kw, v.Name, arguments(v.Args), ret)
		if v.Docstring != "" {
			line(b, depth+1, `"""%s"""`, v.Docstring)
		}
		if len(v.Body) == 0 && v.Docstring == "" {
			line(b, depth+1, "pass")
		} else {
			emitStmts(b, v.Body, depth+1)
		}
	case *ast.ClassDefStmt:
		for _, d := range v.Decorators {
			line(b, depth, "@%s", expr(d.Expr))
		}
		var heads []string
		for _, base := range v.Bases {
			heads = append(heads, expr(base))
		}
		for _, kw := range v.Keywords {
			heads = append(heads, fmt.Sprintf("%s=%s", kw.Name, expr(kw.Value)))
		}
		if len(heads) > 0 {
			line(b, depth, "class %s(%s):", v.Name, strings.Join(heads, ", "))
		} else {
			line(b, depth, "class %s:", v.Name)
		}
		if v.Docstring != "" {
			line(b, depth+1, `"""%s"""`, v.Docstring)
		}
		if len(v.Body) == 0 && v.Docstring == "" {
			line(b, depth+1, "pass")
		} else {
			emitStmts(b, v.Body, depth+1)
		}
	case *ast.TypeAliasStmt:
		line(b, depth, "type %s = %s", v.Name, expr(v.Value))
	default:
		line(b, depth, "# %s", s)
	}
}

func importAliases(names []ast.ImportAlias) string {
	var parts []string
	for _, a := range names {
		if a.AsName != "" && a.AsName != a.Name {
			parts = append(parts, fmt.Sprintf("%s as %s", a.Name, a.AsName))
		} else {
			parts = append(parts, a.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func arguments(a *ast.Arguments) string {
	if a == nil {
		return ""
	}
	var parts []string
	param := func(p ast.Param) string {
		s := p.Name
		if p.Annotation != nil {
			s += ": " + expr(p.Annotation)
		}
		if p.Default != nil {
			s += "=" + expr(p.Default)
		}
		return s
	}
	for _, p := range a.PosOnlyParams {
		parts = append(parts, param(p))
	}
	if len(a.PosOnlyParams) > 0 {
		parts = append(parts, "/")
	}
	for _, p := range a.Params {
		parts = append(parts, param(p))
	}
	if a.VarArg != nil {
		parts = append(parts, "*"+param(*a.VarArg))
	} else if len(a.KwOnlyParams) > 0 {
		parts = append(parts, "*")
	}
	for _, p := range a.KwOnlyParams {
		parts = append(parts, param(p))
	}
	if a.KwArg != nil {
		parts = append(parts, "**"+param(*a.KwArg))
	}
	return strings.Join(parts, ", ")
}

// Operator binding strength, loosest first; used only to decide when a
// sub-expression needs parentheses.
func prec(e ast.Expr) int {
	switch v := e.(type) {
	case *ast.IfExpExpr, *ast.LambdaExpr, *ast.NamedExpr:
		return 1
	case *ast.BoolOpExpr:
		if v.Op == "or" {
			return 2
		}
		return 3
	case *ast.CompareExpr:
		return 5
	case *ast.BinOpExpr:
		switch v.Op {
		case "|":
			return 6
		case "^":
			return 7
		case "&":
			return 8
		case "<<", ">>":
			return 9
		case "+", "-":
			return 10
		case "*", "/", "//", "%", "@":
			return 11
		case "**":
			return 13
		}
		return 10
	case *ast.UnaryOpExpr:
		if v.Op == "not" {
			return 4
		}
		return 12
	default:
		return 100
	}
}

func expr(e ast.Expr) string {
	if e == nil {
		return ""
	}
	switch v := e.(type) {
	case *ast.ConstantExpr:
		return constant(v.Value)
	case *ast.NameExpr:
		return v.Id
	case *ast.AttributeExpr:
		return sub(v.Value, prec(v)) + "." + v.Attr
	case *ast.SubscriptExpr:
		return sub(v.Value, prec(v)) + "[" + expr(v.Index) + "]"
	case *ast.SliceExpr:
		s := expr(v.Lo) + ":" + expr(v.Hi)
		if v.Step != nil {
			s += ":" + expr(v.Step)
		}
		return s
	case *ast.CallExpr:
		var args []string
		for _, a := range v.Args {
			args = append(args, expr(a))
		}
		if v.Star != nil {
			args = append(args, "*"+expr(v.Star))
		}
		for _, kw := range v.Kwargs {
			if kw.Name == "" {
				args = append(args, "**"+expr(kw.Value))
			} else {
				args = append(args, kw.Name+"="+expr(kw.Value))
			}
		}
		if v.DoubleStar != nil {
			args = append(args, "**"+expr(v.DoubleStar))
		}
		return sub(v.Fn, prec(v)) + "(" + strings.Join(args, ", ") + ")"
	case *ast.BinOpExpr:
		p := prec(v)
		return sub(v.Left, p) + " " + v.Op + " " + sub(v.Right, p+1)
	case *ast.UnaryOpExpr:
		if v.Op == "not" {
			return "not " + sub(v.Operand, prec(v))
		}
		return v.Op + sub(v.Operand, prec(v))
	case *ast.CompareExpr:
		s := sub(v.Left, prec(v)+1)
		for i, op := range v.Ops {
			s += " " + op + " " + sub(v.Comparators[i], prec(v)+1)
		}
		return s
	case *ast.BoolOpExpr:
		p := prec(v)
		var parts []string
		for _, x := range v.Values {
			parts = append(parts, sub(x, p))
		}
		return strings.Join(parts, " "+v.Op+" ")
	case *ast.IfExpExpr:
		return sub(v.Body, 2) + " if " + sub(v.Test, 2) + " else " + sub(v.Orelse, 1)
	case *ast.LambdaExpr:
		return "lambda " + arguments(v.Args) + ": " + expr(v.Body)
	case *ast.ListCompExpr:
		return "[" + expr(v.Elt) + comprehensions(v.Generators) + "]"
	case *ast.SetCompExpr:
		return "{" + expr(v.Elt) + comprehensions(v.Generators) + "}"
	case *ast.GeneratorExpExpr:
		return "(" + expr(v.Elt) + comprehensions(v.Generators) + ")"
	case *ast.DictCompExpr:
		return "{" + expr(v.Key) + ": " + expr(v.Value) + comprehensions(v.Generators) + "}"
	case *ast.ListExpr:
		return "[" + exprList(v.Elts) + "]"
	case *ast.TupleExpr:
		if len(v.Elts) == 1 {
			return "(" + expr(v.Elts[0]) + ",)"
		}
		return "(" + exprList(v.Elts) + ")"
	case *ast.SetExpr:
		if len(v.Elts) == 0 {
			return "set()"
		}
		return "{" + exprList(v.Elts) + "}"
	case *ast.DictExpr:
		var parts []string
		for i, k := range v.Keys {
			if k == nil {
				parts = append(parts, "**"+expr(v.Values[i]))
			} else {
				parts = append(parts, expr(k)+": "+expr(v.Values[i]))
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *ast.JoinedStrExpr:
		var sb strings.Builder
		sb.WriteString("f'")
		for _, p := range v.Parts {
			switch pv := p.(type) {
			case *ast.ConstantExpr:
				if s, ok := pv.Value.(string); ok {
					sb.WriteString(s)
				}
			case *ast.FormattedValue:
				sb.WriteString(formattedValue(pv))
			}
		}
		sb.WriteString("'")
		return sb.String()
	case *ast.FormattedValue:
		return "f'" + formattedValue(v) + "'"
	case *ast.StarredExpr:
		return "*" + expr(v.Value)
	case *ast.NamedExpr:
		return "(" + v.Target.Id + " := " + expr(v.Value) + ")"
	case *ast.YieldExpr:
		if v.Value == nil {
			return "yield"
		}
		return "yield " + expr(v.Value)
	case *ast.YieldFromExpr:
		return "yield from " + expr(v.Value)
	case *ast.AwaitExpr:
		return "await " + expr(v.Value)
	default:
		return e.String()
	}
}

// target renders an assignment or for-loop target; a tuple target drops
// its parentheses, the canonical spelling of an unpacking assignment.
func target(e ast.Expr) string {
	if t, ok := e.(*ast.TupleExpr); ok && len(t.Elts) > 1 {
		return exprList(t.Elts)
	}
	return expr(e)
}

// sub renders e, parenthesized when it binds looser than the surrounding
// context.
func sub(e ast.Expr, contextPrec int) string {
	s := expr(e)
	if prec(e) < contextPrec {
		return "(" + s + ")"
	}
	return s
}

func exprList(elts []ast.Expr) string {
	var parts []string
	for _, e := range elts {
		parts = append(parts, expr(e))
	}
	return strings.Join(parts, ", ")
}

func comprehensions(gens []ast.Comprehension) string {
	var sb strings.Builder
	for _, g := range gens {
		if g.IsAsync {
			sb.WriteString(" async for ")
		} else {
			sb.WriteString(" for ")
		}
		sb.WriteString(expr(g.Target))
		sb.WriteString(" in ")
		sb.WriteString(expr(g.Iter))
		for _, f := range g.Ifs {
			sb.WriteString(" if ")
			sb.WriteString(expr(f))
		}
	}
	return sb.String()
}

func formattedValue(v *ast.FormattedValue) string {
	s := "{" + expr(v.Value)
	if v.Conversion != 0 {
		s += "!" + string(v.Conversion)
	}
	if v.FormatSpec != nil {
		spec := expr(v.FormatSpec)
		spec = strings.TrimPrefix(spec, "f'")
		spec = strings.TrimSuffix(spec, "'")
		s += ":" + spec
	}
	return s + "}"
}

func constant(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return "None"
	case bool:
		if c {
			return "True"
		}
		return "False"
	case string:
		return quote(c)
	case []byte:
		return "b" + quote(string(c))
	case int64:
		return fmt.Sprintf("%d", c)
	case int:
		return fmt.Sprintf("%d", c)
	case float64:
		return fmt.Sprintf("%g", c)
	case *big.Int:
		return c.String()
	case []interface{}:
		var parts []string
		for _, e := range c {
			parts = append(parts, constant(e))
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%v", c)
	}
}

// quote renders a Python string literal with single quotes, the canonical
// form the scenario tests normalize to.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func pattern(p ast.Pattern) string {
	switch v := p.(type) {
	case *ast.LiteralPattern:
		return expr(v.Value)
	case *ast.CapturePattern:
		return v.Name
	case *ast.WildcardPattern:
		return "_"
	case *ast.ValuePattern:
		return expr(v.Value)
	case *ast.SequencePattern:
		var parts []string
		for _, e := range v.Elems {
			parts = append(parts, pattern(e))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.StarPattern:
		if v.Name == "" {
			return "*_"
		}
		return "*" + v.Name
	case *ast.MappingPattern:
		var parts []string
		for _, k := range v.Keys {
			parts = append(parts, expr(k.Key)+": "+pattern(k.Pattern))
		}
		if v.RestName != "" {
			parts = append(parts, "**"+v.RestName)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *ast.ClassPattern:
		var parts []string
		for _, e := range v.Positions {
			parts = append(parts, pattern(e))
		}
		for _, k := range v.Keywords {
			parts = append(parts, k.Name+"="+pattern(k.Pattern))
		}
		return expr(v.Class) + "(" + strings.Join(parts, ", ") + ")"
	case *ast.OrPattern:
		var parts []string
		for _, a := range v.Alternatives {
			parts = append(parts, pattern(a))
		}
		return strings.Join(parts, " | ")
	case *ast.AsPattern:
		return pattern(v.Inner) + " as " + v.Name
	default:
		return p.String()
	}
}
