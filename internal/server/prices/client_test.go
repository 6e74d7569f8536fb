package prices

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

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestClosePrice_String(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/005930/basic", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(`{"stockName":"Samsung","closePrice":"71,500"}`))
	})

	p, ok, err := c.ClosePrice(context.Background(), "005930")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(71500), p)
}

func TestClosePrice_Number(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"closePrice":1234}`))
	})

	p, ok, err := c.ClosePrice(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1234), p)
}

func TestClosePrice_NotFound(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
		"no field": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"stockName":"x"}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
		"bad price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"closePrice":"n/a"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newServer(t, h)
			_, ok, err := c.ClosePrice(context.Background(), "X")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestClosePrice_EmptyCodeSkipsRequest(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, ok, err := c.ClosePrice(context.Background(), "  ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClosePrice_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, ok, err := NewClient(srv.URL, time.Second).ClosePrice(context.Background(), "X")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestParsePrice(t *testing.T) {
	for raw, want := range map[string]int64{`"1,000"`: 1000, `42`: 42, `42.9`: 42, `" 7 "`: 7} {
		got, ok, err := parsePrice(json.RawMessage(raw))
		require.NoError(t, err)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok, _ := parsePrice(json.RawMessage(`null`))
	assert.False(t, ok)
}
