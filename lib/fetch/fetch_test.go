package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"macrocast-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBody(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:fetch")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2025", r.URL.Query().Get("year"))
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	client := NewClient(Options{})
	res, err := client.Fetch(context.Background(), Endpoint{
		Role:   "page",
		Url:    server.URL,
		Params: map[string]string{"year": "2025"},
	})
	require.NoError(t, err)
	require.Equal(t, "page", res.Role)
	require.Equal(t, []byte("payload"), res.Body)
}

func TestFetchWrapsErrorStatus(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:fetch")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Options{})
	_, err := client.Fetch(context.Background(), Endpoint{Role: "page", Url: server.URL})

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	require.Equal(t, http.StatusInternalServerError, transport.StatusCode)
}

func TestFetchConcurrentTagsByRole(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:fetch")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "body-of-%s", r.URL.Path[1:])
	}))
	defer server.Close()

	var endpoints []Endpoint
	for i := 0; i < 8; i++ {
		role := fmt.Sprintf("slice-%d", i)
		endpoints = append(endpoints, Endpoint{
			Role: role,
			Url:  fmt.Sprintf("%s/%s", server.URL, role),
		})
	}

	client := NewClient(Options{})
	responses, err := client.FetchConcurrent(context.Background(), endpoints)
	require.NoError(t, err)
	require.Len(t, responses, 8)

	// completion order is arbitrary, the role ties bodies back together
	for _, res := range responses {
		require.Equal(t, "body-of-"+res.Role, string(res.Body))
	}
}

func TestFetchConcurrentFailsBatchOnError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:fetch")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(Options{})
	_, err := client.FetchConcurrent(context.Background(), []Endpoint{
		{Role: "good", Url: server.URL + "/good"},
		{Role: "bad", Url: server.URL + "/bad"},
	})
	require.Error(t, err)
}
