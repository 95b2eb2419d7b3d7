package builder

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	schema "github.com/hanpama/opgen/internal/schema"
)

// ErrEmptySelection is returned when exclusions remove every field of an
// object-typed operation.
var ErrEmptySelection = errors.New("selection set is empty after exclusions")

// Operation is the kind of root an operation field belongs to.
type Operation int

const (
	Query Operation = iota
	Mutation
	Subscription
)

func (o Operation) String() string {
	switch o {
	case Query:
		return "query"
	case Mutation:
		return "mutation"
	case Subscription:
		return "subscription"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// Keyword is the document prefix; queries use the shorthand form.
func (o Operation) Keyword() string {
	if o == Query {
		return ""
	}
	return o.String()
}

// RootType returns the name of the schema's root type for o.
func (o Operation) RootType(s *schema.Schema) string {
	switch o {
	case Query:
		return s.QueryType
	case Mutation:
		return s.MutationType
	case Subscription:
		return s.SubscriptionType
	}
	return ""
}

// ParseOperation maps "query", "mutation" or "subscription" to an Operation.
func ParseOperation(s string) (Operation, error) {
	for _, o := range []Operation{Query, Mutation, Subscription} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown operation type %q", s)
}

// Printer normalizes an assembled document, e.g. parse then print.
type Printer interface {
	Print(document string) (string, error)
}

// IgnoreFunc returns the paths to exclude for an operation field.
type IgnoreFunc func(field *schema.Field) []string

type options struct {
	ignore     []string
	ignoreFunc IgnoreFunc
	printer    Printer
	maxDepth   int
}

// Option configures a builder factory.
type Option func(*options)

// WithIgnoreFields excludes paths from every builder's selection set.
func WithIgnoreFields(paths ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, paths...) }
}

// WithIgnoreFunc excludes paths computed per operation field.
func WithIgnoreFunc(fn IgnoreFunc) Option { return func(o *options) { o.ignoreFunc = fn } }

// WithPrinter post-processes every built document.
func WithPrinter(p Printer) Option { return func(o *options) { o.printer = p } }

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

type buildOptions struct {
	ignore     []string
	ignoreFunc IgnoreFunc
}

// BuildOption configures a single Build call.
type BuildOption func(*buildOptions)

// IgnoreFields excludes paths for one call, in addition to the factory's.
func IgnoreFields(paths ...string) BuildOption {
	return func(o *buildOptions) { o.ignore = append(o.ignore, paths...) }
}

// IgnoreBy excludes paths computed from the operation field for one call.
func IgnoreBy(fn IgnoreFunc) BuildOption { return func(o *buildOptions) { o.ignoreFunc = fn } }

// Builder renders documents for one root operation field. It holds no
// mutable state and is safe for concurrent use.
type Builder struct {
	Name      string
	Operation Operation
	Field     *schema.Field
	Args      ArgSpecs // argument table, for callers deciding what to pass

	tree *FieldTree // nil when the field returns a leaf type
	opts *options
}

// Paths lists every selectable path in depth-first order; these are the
// strings accepted by the ignore options.
func (b *Builder) Paths() []string {
	var paths []string
	var walk func(*FieldTree)
	walk = func(t *FieldTree) {
		if t == nil {
			return
		}
		for _, f := range t.Scalar {
			paths = append(paths, f.Path)
		}
		for _, f := range t.Object {
			paths = append(paths, f.Path)
			walk(f.Fields)
		}
	}
	walk(b.tree)
	return paths
}

// Build renders the operation document for values.
func (b *Builder) Build(values Values, opts ...BuildOption) (string, error) {
	var bo buildOptions
	for _, f := range opts {
		f(&bo)
	}

	var args string
	if len(b.Field.Args) > 0 {
		var err error
		if args, err = FormatArgs(values, b.Args); err != nil {
			return "", fmt.Errorf("%s %s: %w", b.Operation, b.Name, err)
		}
	}

	var doc strings.Builder
	if kw := b.Operation.Keyword(); kw != "" {
		doc.WriteString(kw)
		doc.WriteByte(' ')
	}
	doc.WriteString("{ ")
	doc.WriteString(b.Name)
	if args != "" {
		doc.WriteByte('(')
		doc.WriteString(args)
		doc.WriteByte(')')
	}
	if b.tree != nil {
		selection := MakeQuery(b.tree, b.ignored(bo))
		if selection == "" {
			return "", fmt.Errorf("%s %s: %w", b.Operation, b.Name, ErrEmptySelection)
		}
		doc.WriteString(" { ")
		doc.WriteString(selection)
		doc.WriteString(" }")
	}
	doc.WriteString(" }")

	if b.opts.printer == nil {
		return doc.String(), nil
	}
	printed, err := b.opts.printer.Print(doc.String())
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", b.Operation, b.Name, err)
	}
	return printed, nil
}

func (b *Builder) ignored(bo buildOptions) []string {
	var paths []string
	paths = append(paths, b.opts.ignore...)
	if b.opts.ignoreFunc != nil {
		paths = append(paths, b.opts.ignoreFunc(b.Field)...)
	}
	paths = append(paths, bo.ignore...)
	if bo.ignoreFunc != nil {
		paths = append(paths, bo.ignoreFunc(b.Field)...)
	}
	return paths
}

// BuildOperations creates one Builder per field of the root type. Field trees
// and argument specs are resolved eagerly; the first unresolvable type aborts
// the whole factory.
func BuildOperations(index TypeIndex, rootTypeName string, op Operation, opts ...Option) (map[string]*Builder, error) {
	o := &options{maxDepth: DefaultMaxDepth}
	for _, f := range opts {
		f(o)
	}

	root, err := index.Lookup(rootTypeName, op.String()+" root")
	if err != nil {
		return nil, err
	}

	builders := make(map[string]*Builder, len(root.Fields))
	for _, f := range root.Fields {
		tree, err := resolveOperationTree(f, root.Name, o.maxDepth, index)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, f.Name, err)
		}
		specs, err := extractArgSpecs(f.Args, root.Name+"."+f.Name, 0, o.maxDepth, index)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, f.Name, err)
		}
		builders[f.Name] = &Builder{
			Name:      f.Name,
			Operation: op,
			Field:     f,
			Args:      specs,
			tree:      tree,
			opts:      o,
		}
	}
	return builders, nil
}

func resolveOperationTree(f *schema.Field, rootName string, maxDepth int, index TypeIndex) (*FieldTree, error) {
	named := f.Type.Named()
	if named == nil {
		return nil, &SchemaResolutionError{Field: rootName + "." + f.Name}
	}
	switch named.Kind {
	case schema.KindScalar, schema.KindEnum:
		return nil, nil
	case schema.KindObject, schema.KindInterface:
		t, err := index.Lookup(named.Name, rootName+"."+f.Name)
		if err != nil {
			return nil, err
		}
		tree, err := resolveFieldTree(t, 0, maxDepth, index)
		if err != nil {
			return nil, err
		}
		AnnotatePaths(tree, "")
		return tree, nil
	case schema.KindUnion:
		// members need fragments; the type name is always selectable
		return &FieldTree{Scalar: []*ScalarField{{Name: "__typename", Path: "__typename"}}}, nil
	case schema.KindInputObject:
		return nil, fmt.Errorf("input type %s cannot be an operation result", named.Name)
	case schema.KindList, schema.KindNonNull:
		panic("unreachable: Named unwraps wrappers")
	}
	panic("unreachable: " + named.Kind.String())
}

// Build creates builders for the root type op selects in s. A schema without
// that root yields an empty map.
func Build(s *schema.Schema, op Operation, opts ...Option) (map[string]*Builder, error) {
	rootName := op.RootType(s)
	if rootName == "" {
		return map[string]*Builder{}, nil
	}
	return BuildOperations(NewTypeIndex(s.Types), rootName, op, opts...)
}

// QueryBuilders builds the query root's operations.
func QueryBuilders(s *schema.Schema, opts ...Option) (map[string]*Builder, error) {
	return Build(s, Query, opts...)
}

// MutationBuilders builds the mutation root's operations.
func MutationBuilders(s *schema.Schema, opts ...Option) (map[string]*Builder, error) {
	return Build(s, Mutation, opts...)
}

// SubscriptionBuilders builds the subscription root's operations.
func SubscriptionBuilders(s *schema.Schema, opts ...Option) (map[string]*Builder, error) {
	return Build(s, Subscription, opts...)
}

// Digest returns the hex MD5 of a document, a stable key for deduplicating
// identical operations such as subscriptions.
func Digest(document string) string {
	sum := md5.Sum([]byte(document))
	return hex.EncodeToString(sum[:])
}
