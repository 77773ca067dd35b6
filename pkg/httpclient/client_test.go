package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("with default config", func(t *testing.T) {
		client := NewWithDefaults()
		assert.NotNil(t, client.client)
		assert.NotNil(t, client.breakers)
		assert.NotNil(t, client.logger)
	})

	t.Run("with custom base client", func(t *testing.T) {
		baseClient := &http.Client{Timeout: 5 * time.Second}
		cfg := DefaultConfig()
		cfg.BaseClient = baseClient
		client := New(cfg)
		assert.Equal(t, baseClient, client.client)
	})
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgentHeader, r.Header.Get(HeaderUserAgent))
		assert.Equal(t, "application/json", r.Header.Get(HeaderAccept))
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"name":"streamfold"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer server.Close()

	client := New(fastConfig())

	t.Run("decodes body", func(t *testing.T) {
		var out struct {
			Name string `json:"name"`
		}
		require.NoError(t, client.GetJSON(context.Background(), server.URL+"/ok", &out))
		assert.Equal(t, "streamfold", out.Name)
	})

	t.Run("status error", func(t *testing.T) {
		var out map[string]any
		err := client.GetJSON(context.Background(), server.URL+"/missing", &out)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})

	t.Run("decode error", func(t *testing.T) {
		var out map[string]any
		err := client.GetJSON(context.Background(), server.URL+"/garbage", &out)
		assert.ErrorContains(t, err, "decoding response")
	})
}

func TestClient_Retries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		status    int
		wantCalls int32
		wantErr   bool
	}{
		{name: "recovers after retryable status", failures: 2, status: http.StatusServiceUnavailable, wantCalls: 3},
		{name: "gives up after max retries", failures: 10, status: http.StatusBadGateway, wantCalls: 3, wantErr: true},
		{name: "does not retry client errors", failures: 10, status: http.StatusNotFound, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if calls.Add(1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			resp, err := New(fastConfig()).Get(context.Background(), server.URL)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMaxRetries)
			} else {
				require.NoError(t, err)
				resp.Body.Close()
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	client := New(fastConfig())
	_, err := client.Get(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, CircuitClosed, client.CircuitStates()[strings.TrimPrefix(server.URL, "http://")])
}

func TestClient_Decompression(t *testing.T) {
	payload := `{"streams":[]}`

	tests := []struct {
		name     string
		encoding string
		encode   func(t *testing.T, s string) []byte
	}{
		{
			name:     "gzip",
			encoding: EncodingGzip,
			encode: func(t *testing.T, s string) []byte {
				var buf bytes.Buffer
				w := gzip.NewWriter(&buf)
				_, err := w.Write([]byte(s))
				require.NoError(t, err)
				require.NoError(t, w.Close())
				return buf.Bytes()
			},
		},
		{
			name:     "brotli",
			encoding: EncodingBrotli,
			encode: func(t *testing.T, s string) []byte {
				var buf bytes.Buffer
				w := brotli.NewWriter(&buf)
				_, err := w.Write([]byte(s))
				require.NoError(t, err)
				require.NoError(t, w.Close())
				return buf.Bytes()
			},
		},
		{
			name:     "identity",
			encoding: "",
			encode:   func(_ *testing.T, s string) []byte { return []byte(s) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.encode(t, payload)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, DefaultAcceptEncodingHeader, r.Header.Get(HeaderAcceptEncoding))
				if tt.encoding != "" {
					w.Header().Set(HeaderContentEncoding, tt.encoding)
				}
				w.Write(body)
			}))
			defer server.Close()

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			// Setting Accept-Encoding disables the transport's own gzip handling.
			req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncodingHeader)

			resp, err := New(fastConfig()).Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, string(got))
		})
	}
}

func TestClient_MaxResponseSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("x", 128)))
	}))
	defer server.Close()

	cfg := fastConfig()
	cfg.MaxResponseSize = 64
	resp, err := New(cfg).Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = io.ReadAll(resp.Body)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestClient_CircuitBreakerPerHost(t *testing.T) {
	var badCalls atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer good.Close()

	cfg := fastConfig()
	cfg.CircuitThreshold = 2
	cfg.CircuitTimeout = time.Hour
	client := New(cfg)

	for range 2 {
		resp, err := client.Get(context.Background(), bad.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}

	_, err := client.Get(context.Background(), bad.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), badCalls.Load())

	resp, err := client.Get(context.Background(), good.URL)
	require.NoError(t, err)
	resp.Body.Close()

	states := client.CircuitStates()
	assert.Equal(t, CircuitOpen, states[strings.TrimPrefix(bad.URL, "http://")])
	assert.Equal(t, CircuitClosed, states[strings.TrimPrefix(good.URL, "http://")])

	client.ResetCircuits()
	assert.Equal(t, CircuitClosed, client.CircuitStates()[strings.TrimPrefix(bad.URL, "http://")])
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(3, time.Minute, 1)
	cb.now = func() time.Time { return now }

	for range 2 {
		cb.RecordFailure()
	}
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "only one probe while half-open")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(time.Minute)
	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 502, 503, 504} {
		assert.True(t, isRetryableStatus(code), code)
	}
	for _, code := range []int{200, 400, 404, 500} {
		assert.False(t, isRetryableStatus(code), code)
	}
}
