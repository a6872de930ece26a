package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRelayForward(t *testing.T) {
	var got EventsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Success"}`))
	}))
	defer server.Close()

	relay := NewHTTPRelay(server.URL+"/events", time.Second)
	require.NoError(t, relay.Forward(context.Background(), "0xfeed", "game_1"))
	assert.Equal(t, EventsRequest{TransactionHash: "0xfeed", GameID: "game_1"}, got)
}

func TestHTTPRelayForwardFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/plain" {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"receipt not found"}`))
	}))
	defer server.Close()

	err := NewHTTPRelay(server.URL+"/events", time.Second).Forward(context.Background(), "0xfeed", "game_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "receipt not found")

	err = NewHTTPRelay(server.URL+"/plain", time.Second).Forward(context.Background(), "0xfeed", "game_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestHTTPRelayUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewHTTPRelay(url, 200*time.Millisecond).Forward(context.Background(), "0xfeed", "game_1")
	assert.Error(t, err)
}
