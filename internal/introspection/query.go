package introspection

import (
	"context"
	"fmt"

	schema "github.com/hanpama/opgen/internal/schema"
	transport "github.com/hanpama/opgen/internal/transport"
)

// QueryName is the operation name of Query.
const QueryName = "IntrospectionQuery"

// Query is the standard introspection query. TypeRef nests seven levels of
// ofType, enough for types such as [[String!]!]!.
const Query = `
query IntrospectionQuery {
	__schema {
		queryType { name }
		mutationType { name }
		subscriptionType { name }
		types {
			...FullType
		}
		directives {
			name
			description
			locations
			args {
				...InputValue
			}
		}
	}
}
fragment FullType on __Type {
	kind
	name
	description
	fields(includeDeprecated: true) {
		name
		description
		args {
			...InputValue
		}
		type {
			...TypeRef
		}
		isDeprecated
		deprecationReason
	}
	inputFields {
		...InputValue
	}
	interfaces {
		...TypeRef
	}
	enumValues(includeDeprecated: true) {
		name
		description
		isDeprecated
		deprecationReason
	}
	possibleTypes {
		...TypeRef
	}
}
fragment InputValue on __InputValue {
	name
	description
	type { ...TypeRef }
	defaultValue
}
fragment TypeRef on __Type {
	kind
	name
	ofType {
		kind
		name
		ofType {
			kind
			name
			ofType {
				kind
				name
				ofType {
					kind
					name
					ofType {
						kind
						name
						ofType {
							kind
							name
							ofType {
								kind
								name
							}
						}
					}
				}
			}
		}
	}
}`

// Doer executes a single GraphQL request.
type Doer interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Fetch runs Query against a server and decodes the result.
func Fetch(ctx context.Context, d Doer) (*schema.Schema, error) {
	res, err := d.Do(ctx, transport.Request{Query: Query, OperationName: QueryName})
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("introspect: %w", res.Errors)
	}
	return Parse(res.Data)
}
