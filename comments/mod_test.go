package comments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.canvass.io/canvass/ballot/types"
)

func TestClient_Nonce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, NoncePath, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req NonceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "0xab", req.Address)

		json.NewEncoder(w).Encode(NonceResponse{Nonce: "abc"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", WithHTTPClient(srv.Client()))

	nonce, err := client.Nonce(context.Background(), "0xab")
	require.NoError(t, err)
	require.Equal(t, "abc", nonce)
}

func TestClient_Add(t *testing.T) {
	opt := types.NewChoice(2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, AddPath, r.URL.Path)
		require.Equal(t, "main net", r.URL.Query().Get("network"))

		var req AddRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "0xvoter", req.VoterAddress)
		require.Equal(t, "0xhot", req.HotAddress)
		require.Equal(t, "0xsig", req.SignedMessage)
		require.Equal(t, "0xtx", req.TxHash)
		require.Len(t, req.Comments, 1)
		require.Equal(t, types.PollID(7), req.Comments[0].PollID)
		require.True(t, req.Comments[0].Option.Equal(opt))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	err := client.Add(context.Background(), "main net", AddRequest{
		VoterAddress:  "0xvoter",
		HotAddress:    "0xhot",
		Comments:      []types.Comment{{PollID: 7, Comment: "hi", Option: &opt}},
		SignedMessage: "0xsig",
		TxHash:        "0xtx",
	})
	require.NoError(t, err)
}

func TestClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	_, err := client.Nonce(context.Background(), "0xab")
	require.EqualError(t, err, "couldn't get nonce: unexpected status 401: nope")

	err = client.Add(context.Background(), "net", AddRequest{})
	require.EqualError(t, err, "couldn't add comments: unexpected status 401: nope")

	_, err = client.List(context.Background(), "net", 1)
	require.EqualError(t, err, "couldn't list comments: unexpected status 401: nope")
}

func TestClient_BadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	_, err := client.Nonce(context.Background(), "0xab")
	require.EqualError(t, err, "couldn't get nonce: failed to decode response: unexpected EOF")
}

func TestClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, ListPath+"42", r.URL.Path)
		require.Equal(t, "net", r.URL.Query().Get("network"))

		w.Write([]byte(`[{"pollId": 42, "comment": "hi", "voterAddress": "0xa", "network": "net"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	entries, err := client.List(context.Background(), "net", 42)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hi", entries[0].Comment.Comment)
	require.Equal(t, "0xa", entries[0].VoterAddress)
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	_, err := client.Nonce(context.Background(), "0xab")
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't get nonce: request failed: ")
}
