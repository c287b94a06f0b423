package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that status and outcome fields are set from their declared constants, not string literals",
	Run:  run,
}

var enumTypes string

func init() {
	Analyzer.Flags.StringVar(&enumTypes, "types",
		"BuildStatus,BuildResult,CauseKind,EnqueueResult,EventKind,Outcome,StatusEvent",
		"comma-separated names of string enum types to check")
}

func run(pass *analysis.Pass) (any, error) {
	enums := make(map[string]bool)
	for _, name := range strings.Split(enumTypes, ",") {
		if name = strings.TrimSpace(name); name != "" {
			enums[name] = true
		}
	}

	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.AssignStmt:
				checkAssign(pass, node, enums)
			case *ast.CompositeLit:
				checkCompositeLit(pass, node, enums)
			}
			return true
		})
	}
	return nil, nil
}

func checkAssign(pass *analysis.Pass, assign *ast.AssignStmt, enums map[string]bool) {
	if len(assign.Lhs) != len(assign.Rhs) {
		return
	}
	for i, lhs := range assign.Lhs {
		sel, ok := lhs.(*ast.SelectorExpr)
		if !ok {
			continue
		}
		if isEnum(pass.TypesInfo.TypeOf(sel), enums) && isStringLiteral(assign.Rhs[i]) {
			pass.Reportf(assign.Pos(),
				"enum field %s assigned string literal; use defined constant instead",
				sel.Sel.Name)
		}
	}
}

// checkCompositeLit reports keyed struct fields such as Build{Status: "queued"}.
func checkCompositeLit(pass *analysis.Pass, lit *ast.CompositeLit, enums map[string]bool) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}
		field, ok := pass.TypesInfo.ObjectOf(key).(*types.Var)
		if !ok || !field.IsField() {
			continue
		}
		if isEnum(field.Type(), enums) && isStringLiteral(kv.Value) {
			pass.Reportf(kv.Pos(),
				"enum field %s set to string literal; use defined constant instead",
				key.Name)
		}
	}
}

func isEnum(t types.Type, enums map[string]bool) bool {
	named, ok := t.(*types.Named)
	return ok && enums[named.Obj().Name()]
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}
