package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/scrape"
)

func newTestClient(t *testing.T) *fetch.Client {
	t.Helper()
	limiter := ratelimit.New(ratelimit.Config{
		DomainRate:  1000,
		DomainBurst: 1000,
		GlobalRate:  1000,
		GlobalBurst: 1000,
	})
	c := fetch.NewClient(limiter, logger.NewNoOp(), 2*time.Second)
	c.DisableJitter()
	return c
}

func TestClient_GetSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"), "requests carry rotated headers")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	resp, err := newTestClient(t).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(resp.Body))
}

func TestClient_AddsFetchedBytesToContextCounter(t *testing.T) {
	t.Parallel()

	body := "a listing page with several postings"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	ctx, counted := scrape.WithByteCount(context.Background())
	client := newTestClient(t)

	_, err := client.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), counted.Load())

	_, err = client.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(2*len(body)), counted.Load(), "the counter accumulates across requests")
}

func TestClient_StatusClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   scrape.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, "", scrape.KindRateLimit},
		{"unauthorized", http.StatusUnauthorized, "", scrape.KindAuthentication},
		{"plain forbidden", http.StatusForbidden, "nope", scrape.KindAuthentication},
		{"bot challenge", http.StatusForbidden, "please solve this CAPTCHA", scrape.KindBotBlock},
		{"server error", http.StatusInternalServerError, "", scrape.KindNetwork},
		{"not found", http.StatusNotFound, "", scrape.KindParse},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			resp, err := newTestClient(t).Get(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Equal(t, tc.want, scrape.KindOf(err))
			require.NotNil(t, resp, "response is returned alongside the classification error")
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestClient_TimeoutClassifiedAsTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t).Get(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, scrape.KindTimeout, scrape.KindOf(err))
}

func TestClient_ConnectionRefusedClassifiedAsNetwork(t *testing.T) {
	t.Parallel()

	// A server that is already closed refuses connections.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t).Get(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, scrape.KindNetwork, scrape.KindOf(err))
}

func TestClient_HeadRequest(t *testing.T) {
	t.Parallel()

	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	}))
	defer srv.Close()

	resp, err := newTestClient(t).Head(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, method)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
