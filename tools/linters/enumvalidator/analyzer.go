// Package enumvalidator flags enum-typed struct fields and variables
// assigned a bare string literal instead of one of the type's defined
// constants.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

// enumTypes names every string-backed enum type this module expects callers
// to construct only from its declared constants: canonical.Domain/.Kind/
// .Strategy, layout.Tier, pipeline.Kind, config.ValidationMode,
// validate.Severity. Keyed on the unqualified type name since
// go/analysis's single-package passes don't carry import paths cheaply;
// two distinct packages sharing a name (canonical.Kind, pipeline.Kind) both
// legitimately want the same check, so the collision is harmless here.
var enumTypes = map[string]bool{
	"Domain":         true,
	"Kind":           true,
	"Strategy":       true,
	"Tier":           true,
	"ValidationMode": true,
	"Severity":       true,
}

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that enum fields and vars only use defined constants, not string literals",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch stmt := n.(type) {
			case *ast.GenDecl:
				if stmt.Tok == token.CONST {
					return false // constant declarations define the enum values themselves
				}
			case *ast.AssignStmt:
				checkAssign(pass, stmt)
			case *ast.ValueSpec:
				checkValueSpec(pass, stmt)
			}
			return true
		})
	}
	return nil, nil
}

func checkAssign(pass *analysis.Pass, assign *ast.AssignStmt) {
	for i, lhs := range assign.Lhs {
		if i >= len(assign.Rhs) {
			continue
		}
		if !isStringLiteral(assign.Rhs[i]) {
			continue
		}
		switch target := lhs.(type) {
		case *ast.SelectorExpr:
			if name, ok := enumFieldName(pass, target); ok {
				pass.Reportf(assign.Pos(),
					"enum field %s assigned string literal; use a defined constant instead", name)
			}
		case *ast.Ident:
			if name, ok := enumIdentName(pass, target); ok {
				pass.Reportf(assign.Pos(),
					"enum variable %s assigned string literal; use a defined constant instead", name)
			}
		}
	}
}

// checkValueSpec catches the `var domain canonical.Domain = "electronics"`
// declaration form, which AssignStmt never sees.
func checkValueSpec(pass *analysis.Pass, spec *ast.ValueSpec) {
	if spec.Type == nil {
		return
	}
	if !enumTypes[typeIdentName(spec.Type)] {
		return
	}
	for i, name := range spec.Names {
		if i >= len(spec.Values) {
			continue
		}
		if isStringLiteral(spec.Values[i]) {
			pass.Reportf(spec.Pos(),
				"enum variable %s assigned string literal; use a defined constant instead", name.Name)
		}
	}
}

func enumFieldName(pass *analysis.Pass, sel *ast.SelectorExpr) (string, bool) {
	if t := pass.TypesInfo.TypeOf(sel); t != nil {
		if named, ok := t.(*types.Named); ok && enumTypes[named.Obj().Name()] {
			return sel.Sel.Name, true
		}
	}
	return "", false
}

func enumIdentName(pass *analysis.Pass, ident *ast.Ident) (string, bool) {
	if t := pass.TypesInfo.TypeOf(ident); t != nil {
		if named, ok := t.(*types.Named); ok && enumTypes[named.Obj().Name()] {
			return ident.Name, true
		}
	}
	return "", false
}

func typeIdentName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	default:
		return ""
	}
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}
