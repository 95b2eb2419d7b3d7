package language

import "github.com/vektah/gqlparser/v2/ast"

type (
	QueryDocument  = ast.QueryDocument
	SchemaDocument = ast.SchemaDocument
	Schema         = ast.Schema
)
