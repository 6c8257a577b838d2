package types

import "go/token"

// SymbolKind represents the type of Go language symbol
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
)

// Position represents a location in source code
type Position struct {
	Line   int
	Column int
}

// Symbol represents a top-level declaration extracted from Go source via
// AST parsing. Symbols feed the syntax-aware chunking strategy.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Package string

	Signature  string // Function signature or type header
	DocComment string
	Directives string // Attached comment directives (go:generate etc.)

	Receiver string // For methods: receiver type name
	Exported bool

	Start Position
	End   Position
}

// IsExportedName reports whether name is exported per Go visibility rules
func IsExportedName(name string) bool {
	return token.IsExported(name)
}

// ParseResult represents the output of parsing a source file
type ParseResult struct {
	Symbols     []Symbol
	PackageName string

	// Errors encountered during parsing. Non-empty errors with zero
	// symbols signal the chunker to fall back to the generic strategy.
	Errors []ParseError
}

// ParseError represents an error that occurred during parsing
type ParseError struct {
	File    string
	Line    int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.Message
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file string, line int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{File: file, Line: line, Message: msg})
}
