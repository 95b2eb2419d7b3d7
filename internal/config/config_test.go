package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validExec() Exec {
	return Exec{
		Schema:    Schema{Path: "schema.json"},
		Operation: Operation{Kind: "query", Name: "listBlocks", Args: `{"paging":{"size":5}}`, MaxDepth: 4},
		Endpoint:  Endpoint{URL: "https://example.com/graphql", Timeout: 10 * time.Second},
		Telemetry: Telemetry{Service: "opgen"},
	}
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, Validate(validExec()))
	require.NoError(t, Validate(List{Schema: Schema{Path: "s.graphql"}}))

	cfg := validExec()
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Endpoint.WebSocketURL = "wss://example.com/graphql"
	require.NoError(t, Validate(cfg))
}

func TestValidateNamesFlags(t *testing.T) {
	cfg := validExec()
	cfg.Schema.Path = ""
	cfg.Operation.Kind = "fragment"
	cfg.Operation.Args = `{"a":`
	cfg.Operation.MaxDepth = 0
	cfg.Endpoint.URL = "not a url"
	cfg.Telemetry.Endpoint = "collector"

	err := Validate(cfg)
	require.Error(t, err)
	for _, want := range []string{
		"-schema is required",
		"-kind must be one of: query, mutation, subscription",
		"-args must be valid JSON",
		"-depth must be at least 1",
		"-endpoint must be a URL",
		"-otel.endpoint must be host:port",
	} {
		require.ErrorContains(t, err, want)
	}
}

func TestValidateIgnorePaths(t *testing.T) {
	cfg := Build{
		Schema:    Schema{Path: "s.json"},
		Operation: Operation{Kind: "mutation", Name: "createWallet", MaxDepth: 4, Ignore: []string{"pk", ""}},
	}
	require.ErrorContains(t, Validate(cfg), "is required")
}
