package language

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL, prelude included.
func LoadSchema(name, source string) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Format prints a parsed document in gqlparser's canonical layout.
func Format(doc *QueryDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(doc)
	return buf.String()
}

// Compact collapses whitespace runs to single spaces, putting a document on
// one line. String literals are kept verbatim.
func Compact(document string) string {
	var b strings.Builder
	inString, escaped, space := false, false, false
	for _, r := range document {
		if inString {
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case ' ', '\t', '\n', '\r':
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Printer parses generated documents and prints them back, which rejects
// syntax errors and normalizes layout. The zero value prints the formatter's
// multi-line layout; Compact prints a single line.
type Printer struct {
	Compact bool
}

func (p Printer) Print(document string) (string, error) {
	doc, err := ParseQuery(document)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	return p.print(doc), nil
}

func (p Printer) print(doc *QueryDocument) string {
	out := Format(doc)
	if p.Compact {
		return Compact(out)
	}
	return out
}

// SchemaValidator is a Printer that also validates documents against a
// schema, catching unknown fields and mistyped arguments.
type SchemaValidator struct {
	Printer
	schema *Schema
}

func NewSchemaValidator(s *Schema, p Printer) *SchemaValidator {
	return &SchemaValidator{Printer: p, schema: s}
}

func (v *SchemaValidator) Print(document string) (string, error) {
	doc, errs := gqlparser.LoadQuery(v.schema, document)
	if len(errs) > 0 {
		return "", fmt.Errorf("validate document: %w", errs)
	}
	return v.print(doc), nil
}
