package frontend

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/mpyw/e2immu/internal/model"
)

// linkCalls fills MethodInfo.Calls from the call instructions of the SSA
// functions. Interface calls resolve to the abstract method of a unit
// interface; dynamic calls of function values are not followed.
func (b *builder) linkCalls(funcs []*ssa.Function) {
	calls := make(map[*model.MethodInfo][]*model.MethodInfo)
	for _, fn := range funcs {
		caller := b.methodOf(fn)
		if caller == nil {
			continue
		}
		for _, block := range fn.Blocks {
			for _, instr := range block.Instrs {
				if callee := b.callee(instr); callee != nil {
					calls[caller] = append(calls[caller], callee)
				}
			}
		}
	}
	for m, callees := range calls {
		m.Calls = sortedMethods(callees)
	}
}

func (b *builder) callee(instr ssa.Instruction) *model.MethodInfo {
	switch instr := instr.(type) {
	case ssa.CallInstruction:
		common := instr.Common()
		if common.IsInvoke() {
			return b.methods[common.Method]
		}
		if fn := common.StaticCallee(); fn != nil {
			return b.methodOf(fn)
		}
	case *ssa.MakeClosure:
		// bound method values, e.g. defer t.unlock() or f := t.next
		if fn, ok := instr.Fn.(*ssa.Function); ok && fn.Synthetic != "" {
			return b.methodOf(fn)
		}
	}
	return nil
}

// methodOf maps an SSA function to its method, constructor or lambda.
func (b *builder) methodOf(fn *ssa.Function) *model.MethodInfo {
	if o := fn.Origin(); o != nil {
		fn = o
	}
	if lit, ok := fn.Syntax().(*ast.FuncLit); ok {
		return b.lambdas[lit]
	}
	obj, ok := fn.Object().(*types.Func)
	if !ok {
		return nil
	}
	if m := b.methods[obj]; m != nil {
		return m
	}
	return b.constructors[obj]
}

// SourceFunctions lists the functions declared in pkg with their function
// literals, the way the buildssa pass reports them.
func SourceFunctions(pkg *ssa.Package) []*ssa.Function {
	var out []*ssa.Function
	seen := make(map[*ssa.Function]bool)
	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if fn == nil || seen[fn] || fn.Synthetic != "" {
			return
		}
		seen[fn] = true
		out = append(out, fn)
		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}
	for _, mem := range pkg.Members {
		switch mem := mem.(type) {
		case *ssa.Function:
			add(mem)
		case *ssa.Type:
			named, ok := mem.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 {
				continue
			}
			for _, t := range []types.Type{named, types.NewPointer(named)} {
				mset := pkg.Prog.MethodSets.MethodSet(t)
				for i := range mset.Len() {
					if fn := pkg.Prog.MethodValue(mset.At(i)); fn != nil && fn.Pkg == pkg {
						add(fn)
					}
				}
			}
		}
	}
	return out
}
