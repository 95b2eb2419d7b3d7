package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hanpama/opgen/internal/builder"
	"github.com/hanpama/opgen/internal/client"
	"github.com/hanpama/opgen/internal/config"
	"github.com/hanpama/opgen/internal/eventbus"
	"github.com/hanpama/opgen/internal/events"
	"github.com/hanpama/opgen/internal/introspection"
	"github.com/hanpama/opgen/internal/language"
	"github.com/hanpama/opgen/internal/otel"
	"github.com/hanpama/opgen/internal/schema"
	"github.com/hanpama/opgen/internal/transport"
	"github.com/hanpama/opgen/internal/values"
)

const rootUsage = `opgen: GraphQL operation builders generated from introspection

USAGE:
  opgen <command> [flags]

COMMANDS:
  list             List root operations and their arguments
  build            Print the document for one operation
  sample           Print sample arguments for one operation as JSON
  exec             Build an operation and send it to a server
  introspect       Fetch introspection JSON from a server
  sdl              Render a schema file as SDL
  help             Show help for any command
`

const schemaFlagUsage = `  -schema <file>           Introspection JSON (.json) or SDL (required)
`

const operationFlagUsage = `  -op <name>               Root field name (required)
  -kind <kind>             query, mutation or subscription (default: query)
  -args <json>             Arguments as a JSON object; key order is kept
  -ignore <path>           Exclude a selection path, e.g. transactions.block. Repeatable
  -depth <n>               Selection depth bound (default: 4)
`

const listUsage = `list FLAGS:
` + schemaFlagUsage + `  (Required arguments are marked with *)
`

const buildUsage = `build FLAGS:
` + schemaFlagUsage + operationFlagUsage + `  -pretty                  Print the document on multiple lines
  -validate                Validate the document against the schema
`

const sampleUsage = `sample FLAGS:
` + schemaFlagUsage + `  -op <name>               Root field name (required)
  -kind <kind>             query, mutation or subscription (default: query)
`

const execUsage = `exec FLAGS:
` + schemaFlagUsage + operationFlagUsage + `  -endpoint <url>          GraphQL HTTP endpoint (required)
  -ws <url>                graphql-transport-ws endpoint (default: endpoint with ws scheme)
  -timeout <duration>      Per-request timeout, e.g. 10s (default: 10s)
  -header <K=V>            Add a request header. Repeatable
  -verbose                 Log operation and request events
  -otel.endpoint <addr>    OTLP collector endpoint
  -otel.service <name>     OpenTelemetry service name (default: opgen)
  (Subscriptions print each payload until interrupted)
`

const introspectUsage = `introspect FLAGS:
  -endpoint <url>          GraphQL HTTP endpoint (required)
  -timeout <duration>      Request timeout (default: 10s)
  -header <K=V>            Add a request header. Repeatable
  -out <file>              Write introspection JSON to file (default: stdout)
`

const sdlUsage = `sdl FLAGS:
` + schemaFlagUsage + `  -out <file>              Write SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("opgen", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "list":
		return cmdList(cmdArgs)
	case "build":
		return cmdBuild(cmdArgs)
	case "sample":
		return cmdSample(cmdArgs)
	case "exec":
		return cmdExec(cmdArgs)
	case "introspect":
		return cmdIntrospect(cmdArgs)
	case "sdl":
		return cmdSDL(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "list":
		fmt.Print(listUsage)
	case "build":
		fmt.Print(buildUsage)
	case "sample":
		fmt.Print(sampleUsage)
	case "exec":
		fmt.Print(execUsage)
	case "introspect":
		fmt.Print(introspectUsage)
	case "sdl":
		fmt.Print(sdlUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type headerFlag struct {
	m map[string]string
}

func (h *headerFlag) String() string { return "" }

func (h *headerFlag) Set(v string) error {
	parts := strings.SplitN(v, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid header %q", v)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("invalid header %q", v)
	}
	if h.m == nil {
		h.m = map[string]string{}
	}
	h.m[key] = strings.TrimSpace(parts[1])
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// parse parses args into fs and validates cfg, printing usage on failure.
func parse(fs *flag.FlagSet, args []string, usage string, cfg any) error {
	fs.SetOutput(new(bytes.Buffer))
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return err
	}
	if fs.NArg() > 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unexpected arguments %q", fs.Args())
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return err
	}
	return nil
}

func schemaFlags(fs *flag.FlagSet, cfg *config.Schema) {
	fs.StringVar(&cfg.Path, "schema", cfg.Path, "Introspection JSON or SDL file")
}

func operationFlags(fs *flag.FlagSet, cfg *config.Operation) {
	cfg.Kind = builder.Query.String()
	cfg.MaxDepth = builder.DefaultMaxDepth
	fs.StringVar(&cfg.Name, "op", cfg.Name, "Root field name")
	fs.StringVar(&cfg.Kind, "kind", cfg.Kind, "Operation kind")
	fs.StringVar(&cfg.Args, "args", cfg.Args, "Arguments as JSON")
	fs.Var((*stringListFlag)(&cfg.Ignore), "ignore", "Exclude a selection path")
	fs.IntVar(&cfg.MaxDepth, "depth", cfg.MaxDepth, "Selection depth bound")
}

func endpointFlags(fs *flag.FlagSet, cfg *config.Endpoint, headers *headerFlag) {
	cfg.Timeout = 10 * time.Second
	fs.StringVar(&cfg.URL, "endpoint", cfg.URL, "GraphQL HTTP endpoint")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	fs.Var(headers, "header", "Add a request header")
}

// loadSchema reads introspection JSON or SDL, chosen by file extension.
func loadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		s, err := introspection.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	}
	return schema.BuildFromSDL(filepath.Base(path), string(data))
}

// parseArgs decodes -args. No input is an empty argument object, so
// operations without required arguments build without flags.
func parseArgs(raw string) (builder.Values, error) {
	if strings.TrimSpace(raw) == "" {
		return builder.Values{}, nil
	}
	return values.ParseString(raw)
}

func lookupBuilder(s *schema.Schema, kind, name string, opts ...builder.Option) (*builder.Builder, error) {
	op, err := builder.ParseOperation(kind)
	if err != nil {
		return nil, err
	}
	builders, err := builder.Build(s, op, opts...)
	if err != nil {
		return nil, err
	}
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", client.ErrUnknownOperation, op, name)
	}
	return b, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func cmdList(args []string) error {
	var cfg config.List
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	schemaFlags(fs, &cfg.Schema)
	if err := parse(fs, args, listUsage, &cfg); err != nil {
		return err
	}
	s, err := loadSchema(cfg.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	for _, op := range []builder.Operation{builder.Query, builder.Mutation, builder.Subscription} {
		builders, err := builder.Build(s, op)
		if err != nil {
			return err
		}
		if len(builders) == 0 {
			continue
		}
		names := make([]string, 0, len(builders))
		for name := range builders {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println(op)
		for _, name := range names {
			fmt.Println("  " + signature(builders[name]))
		}
	}
	return nil
}

func signature(b *builder.Builder) string {
	if len(b.Args) == 0 {
		return b.Name
	}
	args := make([]string, len(b.Args))
	for i, spec := range b.Args {
		args[i] = spec.Name
		if spec.Required {
			args[i] += "*"
		}
	}
	return b.Name + "(" + strings.Join(args, ", ") + ")"
}

func cmdBuild(args []string) error {
	var cfg config.Build
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	schemaFlags(fs, &cfg.Schema)
	operationFlags(fs, &cfg.Operation)
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Print on multiple lines")
	fs.BoolVar(&cfg.Validate, "validate", cfg.Validate, "Validate against the schema")
	if err := parse(fs, args, buildUsage, &cfg); err != nil {
		return err
	}
	s, err := loadSchema(cfg.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	vals, err := parseArgs(cfg.Args)
	if err != nil {
		return err
	}

	opts := []builder.Option{builder.WithMaxDepth(cfg.MaxDepth), builder.WithIgnoreFields(cfg.Ignore...)}
	printer := language.Printer{Compact: !cfg.Pretty}
	switch {
	case cfg.Validate:
		src, err := language.LoadSchema(filepath.Base(cfg.Path), schema.Render(s))
		if err != nil {
			return err
		}
		opts = append(opts, builder.WithPrinter(language.NewSchemaValidator(src, printer)))
	case cfg.Pretty:
		opts = append(opts, builder.WithPrinter(printer))
	}

	b, err := lookupBuilder(s, cfg.Kind, cfg.Name, opts...)
	if err != nil {
		return err
	}
	doc, err := b.Build(vals)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimRight(doc, "\n"))
	return nil
}

func cmdSample(args []string) error {
	cfg := config.Sample{Kind: builder.Query.String()}
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	schemaFlags(fs, &cfg.Schema)
	fs.StringVar(&cfg.Name, "op", cfg.Name, "Root field name")
	fs.StringVar(&cfg.Kind, "kind", cfg.Kind, "Operation kind")
	if err := parse(fs, args, sampleUsage, &cfg); err != nil {
		return err
	}
	s, err := loadSchema(cfg.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	b, err := lookupBuilder(s, cfg.Kind, cfg.Name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(builder.SampleValues(b.Args), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// websocketURL derives a graphql-transport-ws URL from an HTTP endpoint.
func websocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

func cmdExec(args []string) error {
	cfg := config.Exec{Telemetry: config.Telemetry{Service: "opgen"}}
	var headers headerFlag
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	schemaFlags(fs, &cfg.Schema)
	operationFlags(fs, &cfg.Operation)
	endpointFlags(fs, &cfg.Endpoint, &headers)
	fs.StringVar(&cfg.WebSocketURL, "ws", cfg.WebSocketURL, "graphql-transport-ws endpoint")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log events")
	fs.StringVar(&cfg.Telemetry.Endpoint, "otel.endpoint", cfg.Telemetry.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.Service, "otel.service", cfg.Service, "OpenTelemetry service name")
	if err := parse(fs, args, execUsage, &cfg); err != nil {
		return err
	}
	cfg.Headers = headers.m

	s, err := loadSchema(cfg.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	op, err := builder.ParseOperation(cfg.Kind)
	if err != nil {
		return err
	}
	vals, err := parseArgs(cfg.Args)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	shutdown, err := otel.Setup(cfg.Telemetry.Endpoint, cfg.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	if cfg.Verbose {
		defer logEvents()()
	}

	httpOpts := []transport.HTTPOption{transport.WithTimeout(cfg.Timeout)}
	wsURL := cfg.WebSocketURL
	if wsURL == "" {
		wsURL = websocketURL(cfg.URL)
	}
	var wsOpts []transport.WebSocketOption
	for k, v := range cfg.Headers {
		httpOpts = append(httpOpts, transport.WithHeader(k, v))
		wsOpts = append(wsOpts, transport.WithWSHeader(k, v))
	}
	c, err := client.New(s, transport.NewHTTP(cfg.URL, httpOpts...),
		client.WithSubscriber(transport.NewWebSocket(wsURL, wsOpts...)),
		client.WithBuilderOptions(builder.WithMaxDepth(cfg.MaxDepth), builder.WithIgnoreFields(cfg.Ignore...)))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if op == builder.Subscription {
		ch, err := c.Subscribe(ctx, cfg.Name, vals)
		if err != nil {
			return err
		}
		for res := range ch {
			if err := printResponse(res); err != nil {
				return err
			}
		}
		return nil
	}

	res, err := c.Do(ctx, op, cfg.Name, vals)
	if res != nil {
		if perr := printResponse(res); perr != nil {
			return perr
		}
	}
	return err
}

func printResponse(res *transport.Response) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// logEvents prints lifecycle events to the standard logger.
func logEvents() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.OperationFinish) {
			if len(e.Errors) > 0 {
				log.Printf("%s %s failed in %s: %v", e.Operation, e.Field, e.Duration, e.Errors[0])
				return
			}
			log.Printf("%s %s in %s: %s", e.Operation, e.Field, e.Duration, e.Document)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.RequestFinish) {
			if e.Err != nil {
				log.Printf("POST %s: %v", e.Request.URL, e.Err)
				return
			}
			log.Printf("POST %s %d in %s", e.Request.URL, e.Status, e.Duration)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SubscriptionStart) {
			log.Printf("subscription %s opened on %s", e.ID, e.URL)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.SubscriptionFinish) {
			log.Printf("subscription %s closed after %d messages in %s (err: %v)", e.ID, e.Messages, e.Duration, e.Err)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func cmdIntrospect(args []string) error {
	var cfg config.Introspect
	var headers headerFlag
	fs := flag.NewFlagSet("introspect", flag.ContinueOnError)
	endpointFlags(fs, &cfg.Endpoint, &headers)
	fs.StringVar(&cfg.Out, "out", cfg.Out, "Output file")
	if err := parse(fs, args, introspectUsage, &cfg); err != nil {
		return err
	}
	opts := []transport.HTTPOption{transport.WithTimeout(cfg.Timeout)}
	for k, v := range headers.m {
		opts = append(opts, transport.WithHeader(k, v))
	}
	s, err := introspection.Fetch(context.Background(), transport.NewHTTP(cfg.URL, opts...))
	if err != nil {
		return err
	}
	data, err := introspection.Marshal(s)
	if err != nil {
		return err
	}
	return writeOutput(cfg.Out, append(data, '\n'))
}

func cmdSDL(args []string) error {
	var cfg config.SDL
	fs := flag.NewFlagSet("sdl", flag.ContinueOnError)
	schemaFlags(fs, &cfg.Schema)
	fs.StringVar(&cfg.Out, "out", cfg.Out, "Output file")
	if err := parse(fs, args, sdlUsage, &cfg); err != nil {
		return err
	}
	s, err := loadSchema(cfg.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	return writeOutput(cfg.Out, []byte(schema.Render(s)))
}
