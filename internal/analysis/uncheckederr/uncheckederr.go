// Package uncheckederr defines an analyzer that reports *sdk.SensorError
// results that are discarded without being checked.
//
// A SensorError left unchecked is only detected at run time, when the garbage
// collector reclaims it. This analyzer catches the common cases at build
// time: calls used as statements, results assigned to the blank identifier,
// and go or defer statements whose call returns a SensorError.
package uncheckederr

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const doc = `report discarded *sdk.SensorError results

Every SDK operation returns a *SensorError that must be inspected or
explicitly dismissed with Ignore. Calls whose SensorError result is dropped
are reported.`

// Analyzer reports discarded *sdk.SensorError results.
var Analyzer = &analysis.Analyzer{
	Name:     "uncheckederr",
	Doc:      doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// errorTypeName and errorPkgName identify the checked error type.
const (
	errorTypeName = "SensorError"
	errorPkgName  = "sdk"
)

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.ExprStmt)(nil),
		(*ast.GoStmt)(nil),
		(*ast.DeferStmt)(nil),
		(*ast.AssignStmt)(nil),
		(*ast.ValueSpec)(nil),
	}
	insp.Preorder(nodeFilter, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.ExprStmt:
			if call, ok := ast.Unparen(n.X).(*ast.CallExpr); ok && anyResultIsSensorError(pass, call) {
				report(pass, call, "")
			}
		case *ast.GoStmt:
			if anyResultIsSensorError(pass, n.Call) {
				report(pass, n.Call, "go ")
			}
		case *ast.DeferStmt:
			if anyResultIsSensorError(pass, n.Call) {
				report(pass, n.Call, "defer ")
			}
		case *ast.AssignStmt:
			checkBlankAssign(pass, n.Lhs, n.Rhs)
		case *ast.ValueSpec:
			lhs := make([]ast.Expr, len(n.Names))
			for i, name := range n.Names {
				lhs[i] = name
			}
			checkBlankAssign(pass, lhs, n.Values)
		}
	})
	return nil, nil
}

// checkBlankAssign reports SensorError values assigned to _.
func checkBlankAssign(pass *analysis.Pass, lhs, rhs []ast.Expr) {
	if len(rhs) == 1 && len(lhs) > 1 {
		call, ok := ast.Unparen(rhs[0]).(*ast.CallExpr)
		if !ok {
			return
		}
		tuple, ok := pass.TypesInfo.TypeOf(call).(*types.Tuple)
		if !ok || tuple.Len() != len(lhs) {
			return
		}
		for i, l := range lhs {
			if isBlank(l) && isSensorError(tuple.At(i).Type()) {
				report(pass, call, "")
				return
			}
		}
		return
	}
	for i, r := range rhs {
		if i >= len(lhs) || !isBlank(lhs[i]) {
			continue
		}
		call, ok := ast.Unparen(r).(*ast.CallExpr)
		if ok && isSensorError(pass.TypesInfo.TypeOf(call)) {
			report(pass, call, "")
		}
	}
}

func report(pass *analysis.Pass, call *ast.CallExpr, prefix string) {
	pass.Reportf(call.Pos(), "unchecked *%s.%s returned by %s%s", errorPkgName, errorTypeName, prefix, types.ExprString(call.Fun))
}

func isBlank(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "_"
}

func anyResultIsSensorError(pass *analysis.Pass, call *ast.CallExpr) bool {
	switch t := pass.TypesInfo.TypeOf(call).(type) {
	case nil:
		return false
	case *types.Tuple:
		for i := 0; i < t.Len(); i++ {
			if isSensorError(t.At(i).Type()) {
				return true
			}
		}
		return false
	default:
		return isSensorError(t)
	}
}

func isSensorError(t types.Type) bool {
	if t == nil {
		return false
	}
	ptr, ok := types.Unalias(t).(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := types.Unalias(ptr.Elem()).(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Name() == errorTypeName && obj.Pkg() != nil && obj.Pkg().Name() == errorPkgName
}
