package sim

import (
	"strings"

	"github.com/mna/depyc/ast"
	"github.com/mna/depyc/ir"
	"github.com/mna/depyc/pyerr"
	"github.com/mna/depyc/stackvalue"
)

// storeName binds the top-of-stack value to target, either as a plain
// assignment or, for a still-pending function/class object, as the
// corresponding def statement (spec §4.D "function/class creation").
func (st *simState) storeName(in ir.Instruction, target string) error {
	v, raw, err := st.popStorable(in, target)
	if err != nil {
		return err
	}
	if raw {
		return nil
	}
	st.emit(commit(st, ast.AssignStmt{Targets: []ast.Expr{commit(st, ast.NameExpr{Id: target})}, Value: v}))
	return nil
}

// popStorable pops the top of stack. A KindFunctionObject/KindClassObject
// commits its def statement directly (bound to target) and reports
// raw=true so the caller skips building a plain AssignStmt; everything
// else behaves like popExpr.
func (st *simState) popStorable(in ir.Instruction, target string) (ast.Expr, bool, error) {
	v, err := st.pop(in.Offset, in.Opcode)
	if err != nil {
		return nil, false, err
	}
	if e, ok := v.AsExpr(); ok && st.pendingAug != nil && e == st.pendingAugLeft {
		st.emit(st.pendingAug)
		st.pendingAug, st.pendingAugLeft = nil, nil
		return nil, true, nil
	}
	switch v.Kind {
	case stackvalue.KindUnpackSlot:
		st.storeUnpackTarget(v.Unpack, commit(st, ast.NameExpr{Id: target}))
		return nil, true, nil
	case stackvalue.KindFunctionObject:
		st.emitFunctionDef(target, v.Fn)
		return nil, true, nil
	case stackvalue.KindClassObject:
		st.emitClassDef(target, v.Cls)
		return nil, true, nil
	case stackvalue.KindImportModule:
		st.emitImportStmt(target, v.Module)
		return nil, true, nil
	case stackvalue.KindImportPull:
		st.emitImportFromStmt(target, v.Import)
		return nil, true, nil
	}
	e, ok := v.AsExpr()
	if !ok {
		if st.flowMode {
			return nil, false, nil
		}
		return nil, false, pyerr.NewNotAnExpression(codeName(st.env), in.Offset, in.Opcode)
	}
	return e, false, nil
}

// storeUnpackTarget records one store consuming an unpack slot; once the
// last slot is bound, the whole unpack becomes a single assignment with a
// tuple target, starred at the UNPACK_EX position when there is one (spec
// §3 "assignment", §4.D).
func (st *simState) storeUnpackTarget(us *stackvalue.UnpackState, target ast.Expr) {
	if us == nil {
		return
	}
	us.Targets = append(us.Targets, target)
	if len(us.Targets) < us.Total {
		return
	}
	elts := us.Targets
	if us.StarIdx >= 0 && us.StarIdx < len(elts) {
		elts[us.StarIdx] = commit(st, ast.StarredExpr{Value: elts[us.StarIdx]})
	}
	tuple := commit(st, ast.TupleExpr{Elts: elts})
	st.emit(commit(st, ast.AssignStmt{Targets: []ast.Expr{tuple}, Value: us.Source}))
}

// emitFunctionDef commits a FunctionDefStmt stub for fn bound to target,
// then (when env.Recurse is wired) immediately fills its Body by
// recursively decompiling the nested code object. By the time a def
// reaches its STORE, every decorator has already been folded onto
// fn.Decorators by the CALL dispatch (spec §4.I), so there is no later
// point at which the body would need patching in.
func (st *simState) emitFunctionDef(target string, fn *stackvalue.FnMeta) {
	if fn == nil {
		fn = &stackvalue.FnMeta{}
	}
	child := st.findChild(fn.CodeName)
	stmt := commit(st, ast.FunctionDefStmt{
		Name:        target,
		Args:        buildArguments(child, fn),
		Decorators:  toDecorators(fn.Decorators),
		TypeParams:  fn.TypeParams,
		IsAsync:     fn.IsAsync || (child != nil && child.IsAsync),
		IsGenerator: fn.IsGenerator || (child != nil && child.IsGenerator),
	})
	if child != nil {
		stmt.Docstring = child.Docstring
	}
	if st.flowMode {
		return
	}
	if child != nil && st.env.Recurse != nil {
		body, err := st.env.Recurse(child, false)
		if err == nil {
			stmt.Body = body
		}
	}
	st.emit(stmt)
}

// emitClassDef is the class-creation analogue of emitFunctionDef; cls.Name
// is authoritative (the literal name argument passed to __build_class__),
// falling back to target only when absent.
func (st *simState) emitClassDef(target string, cls *stackvalue.ClsMeta) {
	if cls == nil {
		cls = &stackvalue.ClsMeta{}
	}
	name := cls.Name
	if name == "" {
		name = target
	}
	stmt := commit(st, ast.ClassDefStmt{
		Name:       name,
		Bases:      cls.Bases,
		Keywords:   cls.Keywords,
		Decorators: toDecorators(cls.Decorators),
		TypeParams: cls.TypeParams,
	})
	if st.flowMode {
		return
	}
	if child := st.findChild(name); child != nil && st.env.Recurse != nil {
		body, err := st.env.Recurse(child, true)
		if err == nil {
			stmt.Body = body
		}
	}
	st.emit(stmt)
}

// emitImportStmt commits a single-alias ImportStmt for a plain `import
// module` or `import module as target` (spec §4.D "import"): a bound name
// that isn't the module's own leading dotted segment means the bytecode
// came from the `as` form, since a plain `import a.b.c` always binds `a`.
func (st *simState) emitImportStmt(target, module string) {
	asname := module
	top := module
	if i := strings.IndexByte(module, '.'); i >= 0 {
		top = module[:i]
	}
	if target != top {
		asname = target
	}
	st.emit(commit(st, ast.ImportStmt{Names: []ast.ImportAlias{{Name: module, AsName: asname}}}))
}

// emitImportFromStmt commits a single-name ImportFromStmt for one
// IMPORT_FROM+STORE pair; the rewrite pipeline's import-grouping pass
// later merges consecutive pulls from the same module into one statement
// (spec §4.G.3).
func (st *simState) emitImportFromStmt(target string, p *stackvalue.ImportPull) {
	if p == nil {
		p = &stackvalue.ImportPull{}
	}
	asname := p.Symbol
	if target != p.Symbol {
		asname = target
	}
	st.emit(commit(st, ast.ImportFromStmt{
		Module: p.Module,
		Level:  p.Level,
		Names:  []ast.ImportAlias{{Name: p.Symbol, AsName: asname}},
	}))
}

// findChild locates the owning CodeObject's child by name, the only
// linkage sim has back to a nested code object once its CodeRef has been
// unwrapped into an FnMeta/ClsMeta (spec §4.D).
func (st *simState) findChild(name string) *ir.CodeObject {
	if st.env.Code == nil || name == "" {
		return nil
	}
	for _, c := range st.env.Code.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func toDecorators(exprs []ast.Expr) []ast.Decorator {
	if len(exprs) == 0 {
		return nil
	}
	out := make([]ast.Decorator, len(exprs))
	for i, e := range exprs {
		out[i] = ast.Decorator{Expr: e}
	}
	return out
}

// buildArguments assembles an *ast.Arguments from a child code object's
// parameter counts/names plus the defaults/annotations FnMeta accumulated
// from the MAKE_FUNCTION sequence (spec §4.D, §6 "argcount/posonlyargcount/
// kwonlyargcount"). Defaults always trail the positional parameter list in
// CPython's compiled form, spanning PosOnlyParams+Params as one sequence.
func buildArguments(child *ir.CodeObject, fn *stackvalue.FnMeta) *ast.Arguments {
	args := &ast.Arguments{}
	if child == nil {
		return args
	}
	names := child.Varnames
	mkParam := func(i int) ast.Param {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		p := ast.Param{Name: name}
		if fn.Annotations != nil {
			p.Annotation = fn.Annotations[name]
		}
		return p
	}

	idx := 0
	for ; idx < child.PosOnlyArgCount && idx < child.ArgCount; idx++ {
		args.PosOnlyParams = append(args.PosOnlyParams, mkParam(idx))
	}
	for ; idx < child.ArgCount; idx++ {
		args.Params = append(args.Params, mkParam(idx))
	}

	nd := len(fn.Defaults)
	allPos := append(append([]ast.Param{}, args.PosOnlyParams...), args.Params...)
	for i := 0; i < nd && i < len(allPos); i++ {
		allPos[len(allPos)-nd+i].Default = fn.Defaults[i]
	}
	args.PosOnlyParams = allPos[:len(args.PosOnlyParams)]
	args.Params = allPos[len(args.PosOnlyParams):]

	if child.HasVarArgs && idx < len(names) {
		va := mkParam(idx)
		args.VarArg = &va
		idx++
	}
	for i := 0; i < child.KwOnlyArgCount && idx < len(names); i, idx = i+1, idx+1 {
		p := mkParam(idx)
		for _, kw := range fn.KwDefaults {
			if kw.Name == p.Name {
				p.Default = kw.Value
			}
		}
		args.KwOnlyParams = append(args.KwOnlyParams, p)
	}
	if child.HasVarKwArgs && idx < len(names) {
		kw := mkParam(idx)
		args.KwArg = &kw
	}
	return args
}
