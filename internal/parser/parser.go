// Package parser extracts top-level symbols from Go source files for the
// syntax-aware chunking strategy.
//
// Syntax errors are non-fatal: the Go parser frequently returns a partial
// AST, and whatever symbols it yields are still usable. A result with
// errors and zero symbols signals the caller to fall back to generic
// chunking for that file.
package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/dshills/semindex-mcp/pkg/types"
)

// Parser handles AST-based parsing of Go source files
type Parser struct {
	fset *token.FileSet
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{
		fset: token.NewFileSet(),
	}
}

// ParseFile parses a Go source file and extracts top-level symbols
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	result := &types.ParseResult{}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	file, err := parser.ParseFile(p.fset, filePath, content, parser.ParseComments)
	if err != nil {
		result.AddError(filePath, 0, fmt.Sprintf("syntax error: %v", err))
		// parser.ParseFile may return a partial AST even on error
	}

	if file != nil {
		if file.Name != nil {
			result.PackageName = file.Name.Name
		}

		e := &extractor{
			fset:        p.fset,
			packageName: result.PackageName,
		}
		for _, decl := range file.Decls {
			e.extractDecl(decl)
		}
		result.Symbols = e.symbols
	}

	return result, nil
}

// extractor walks top-level declarations collecting symbols
type extractor struct {
	fset        *token.FileSet
	packageName string
	symbols     []types.Symbol
}

func (e *extractor) extractDecl(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		e.extractFunction(d)
	case *ast.GenDecl:
		if d.Tok == token.TYPE {
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					e.extractTypeSpec(ts, d)
				}
			}
		}
	}
}

func (e *extractor) extractFunction(funcDecl *ast.FuncDecl) {
	sym := types.Symbol{
		Name:       funcDecl.Name.Name,
		Package:    e.packageName,
		DocComment: docText(funcDecl.Doc),
		Directives: directives(funcDecl.Doc),
		Exported:   token.IsExported(funcDecl.Name.Name),
		Start:      e.position(declStart(funcDecl.Doc, funcDecl.Pos())),
		End:        e.position(funcDecl.End()),
	}

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sym.Kind = types.KindMethod
		sym.Receiver = receiverType(funcDecl.Recv.List[0].Type)
	} else {
		sym.Kind = types.KindFunction
	}

	sym.Signature = functionSignature(funcDecl)
	e.symbols = append(e.symbols, sym)
}

func (e *extractor) extractTypeSpec(typeSpec *ast.TypeSpec, genDecl *ast.GenDecl) {
	doc := typeSpec.Doc
	if doc == nil {
		doc = genDecl.Doc
	}

	sym := types.Symbol{
		Name:       typeSpec.Name.Name,
		Package:    e.packageName,
		DocComment: docText(doc),
		Directives: directives(doc),
		Exported:   token.IsExported(typeSpec.Name.Name),
		Start:      e.position(declStart(doc, genDecl.Pos())),
		End:        e.position(genDecl.End()),
	}

	switch t := typeSpec.Type.(type) {
	case *ast.StructType:
		sym.Kind = types.KindStruct
		sym.Signature = fmt.Sprintf("type %s struct // %d fields", typeSpec.Name.Name, fieldCount(t.Fields))
	case *ast.InterfaceType:
		sym.Kind = types.KindInterface
		sym.Signature = fmt.Sprintf("type %s interface // %d methods", typeSpec.Name.Name, fieldCount(t.Methods))
	default:
		sym.Kind = types.KindType
		sym.Signature = fmt.Sprintf("type %s", typeSpec.Name.Name)
	}

	e.symbols = append(e.symbols, sym)
}

func (e *extractor) position(pos token.Pos) types.Position {
	position := e.fset.Position(pos)
	return types.Position{Line: position.Line, Column: position.Column}
}

// declStart returns the start of the declaration including its doc comment,
// so chunks carry doc comments with them.
func declStart(doc *ast.CommentGroup, declPos token.Pos) token.Pos {
	if doc != nil && doc.Pos() < declPos {
		return doc.Pos()
	}
	return declPos
}

func fieldCount(fields *ast.FieldList) int {
	if fields == nil {
		return 0
	}
	return fields.NumFields()
}

func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func functionSignature(funcDecl *ast.FuncDecl) string {
	var sig strings.Builder

	sig.WriteString("func ")

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(exprString(funcDecl.Recv.List[0].Type))
		sig.WriteString(") ")
	}

	sig.WriteString(funcDecl.Name.Name)

	sig.WriteString("(")
	if funcDecl.Type.Params != nil {
		sig.WriteString(fieldListString(funcDecl.Type.Params))
	}
	sig.WriteString(")")

	if funcDecl.Type.Results != nil {
		results := fieldListString(funcDecl.Type.Results)
		if results != "" {
			if funcDecl.Type.Results.NumFields() > 1 {
				sig.WriteString(" (" + results + ")")
			} else {
				sig.WriteString(" " + results)
			}
		}
	}

	return sig.String()
}

func fieldListString(fieldList *ast.FieldList) string {
	if fieldList == nil || len(fieldList.List) == 0 {
		return ""
	}

	var parts []string
	for _, field := range fieldList.List {
		typeStr := exprString(field.Type)
		if len(field.Names) > 0 {
			for _, name := range field.Names {
				parts = append(parts, fmt.Sprintf("%s %s", name.Name, typeStr))
			}
		} else {
			parts = append(parts, typeStr)
		}
	}

	return strings.Join(parts, ", ")
}

func exprString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}

	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", exprString(t.Key), exprString(t.Value))
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	case *ast.IndexExpr:
		return exprString(t.X) + "[" + exprString(t.Index) + "]"
	default:
		return "..."
	}
}

func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

// directives collects comment directives (//go:..., //nolint etc.) attached
// to a declaration. These are the Go analog of decorators and stay with the
// chunk's metadata.
func directives(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	var out []string
	for _, c := range doc.List {
		text := strings.TrimPrefix(c.Text, "//")
		if strings.Contains(text, ":") && !strings.HasPrefix(text, " ") {
			out = append(out, c.Text)
		}
	}
	return strings.Join(out, "\n")
}
