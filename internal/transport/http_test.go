package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	eventbus "github.com/hanpama/opgen/internal/eventbus"
	events "github.com/hanpama/opgen/internal/events"
	"github.com/stretchr/testify/require"
)

func TestHTTPDo(t *testing.T) {
	var got Request
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"chainId":"main"}}`))
	}))
	defer srv.Close()

	tr := NewHTTP(srv.URL, WithHeader("Authorization", "Bearer t"), WithTimeout(5*time.Second))
	res, err := tr.Do(context.Background(), Request{Query: "{ chainId }"})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.JSONEq(t, `{"chainId":"main"}`, string(res.Data))
	require.Equal(t, "{ chainId }", got.Query)
	require.Equal(t, "Bearer t", auth)
}

func TestHTTPGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"boom","path":["chainId"]}]}`))
	}))
	defer srv.Close()

	res, err := NewHTTP(srv.URL).Do(context.Background(), Request{Query: "{ chainId }"})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "boom", res.Errors[0].Message)
	require.ErrorContains(t, res.Err(), "boom")
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL).Do(context.Background(), Request{Query: "{ chainId }"})
	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusBadGateway, status.StatusCode)
	require.Equal(t, "unexpected status 502: nope", err.Error())
}

func TestHTTPEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	var started, finished int
	var status int
	eventbus.Subscribe(func(context.Context, events.RequestStart) { started++ })
	eventbus.Subscribe(func(_ context.Context, e events.RequestFinish) {
		finished++
		status = e.Status
	})

	_, err := NewHTTP(srv.URL).Do(context.Background(), Request{Query: "{ a }"})
	require.NoError(t, err)
	require.Equal(t, 1, started)
	require.Equal(t, 1, finished)
	require.Equal(t, http.StatusOK, status)
}
