package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/greenfinch/internal/domain"
)

// fakeGate records backoff accounting.
type fakeGate struct {
	mu         sync.Mutex
	closed     bool
	failures   int
	successes  int
	retryAfter time.Duration
}

func (g *fakeGate) RequestNotAllowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *fakeGate) RecordFailure(retryAfter time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	g.retryAfter = retryAfter
}

func (g *fakeGate) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.successes++
}

// capture is what the test server saw for one request.
type capture struct {
	path     string
	query    string
	encoding string
	body     []byte
}

type ingestServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capture
	status   int
	reply    string
	header   http.Header
}

func newIngestServer(t *testing.T) *ingestServer {
	t.Helper()
	s := &ingestServer{status: http.StatusOK, reply: "1", header: http.Header{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, capture{
			path:     r.URL.Path,
			query:    r.URL.RawQuery,
			encoding: r.Header.Get("Content-Encoding"),
			body:     body,
		})
		status, reply := s.status, s.reply
		for k, v := range s.header {
			w.Header()[k] = v
		}
		s.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *ingestServer) Requests() []capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capture(nil), s.requests...)
}

func newTransport(t *testing.T, srv *ingestServer, gate *fakeGate, mutate func(*TransportConfig)) *BatchTransport {
	t.Helper()
	cfg := TransportConfig{
		Token:       "token",
		ServiceName: "checkout",
		ServiceURL:  srv.URL,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	tr, err := NewBatchTransport(cfg, srv.Client(), gate, nil)
	require.NoError(t, err)
	return tr
}

func batchOf(n int) domain.Queue {
	q := make(domain.Queue, n)
	for i := range q {
		q[i] = domain.Record{"event": "view", "n": i}
	}
	return q
}

func TestBatchTransport_SendPerCategory(t *testing.T) {
	tests := []struct {
		category  domain.Category
		wantPath  string
		wantQuery string
	}{
		{domain.CategoryEvents, "/track", "ip=0&service=checkout"},
		{domain.CategoryPeople, "/engage", "ip=0"},
		{domain.CategoryGroups, "/groups", "ip=0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			srv := newIngestServer(t)
			gate := &fakeGate{}
			tr := newTransport(t, srv, gate, nil)

			require.NoError(t, tr.Send(context.Background(), tt.category, batchOf(2)))

			reqs := srv.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.wantPath, reqs[0].path)
			assert.Equal(t, tt.wantQuery, reqs[0].query)

			var payload struct {
				Data []map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal(reqs[0].body, &payload))
			assert.Len(t, payload.Data, 2)
			assert.Equal(t, 1, gate.successes)
			assert.Zero(t, gate.failures)
		})
	}
}

func TestBatchTransport_UseIPForGeolocation(t *testing.T) {
	srv := newIngestServer(t)
	tr := newTransport(t, srv, &fakeGate{}, func(c *TransportConfig) {
		c.UseIPForGeolocation = true
		c.ServiceName = ""
	})

	require.NoError(t, tr.Send(context.Background(), domain.CategoryEvents, batchOf(1)))
	tr.SetUseIPForGeolocation(false)
	require.NoError(t, tr.Send(context.Background(), domain.CategoryEvents, batchOf(1)))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "ip=1", reqs[0].query)
	assert.Equal(t, "ip=0", reqs[1].query)
	assert.False(t, tr.UseIPForGeolocation())
}

func TestBatchTransport_Base64Payload(t *testing.T) {
	srv := newIngestServer(t)
	tr := newTransport(t, srv, &fakeGate{}, func(c *TransportConfig) { c.Encoding = EncodingBase64 })

	require.NoError(t, tr.Send(context.Background(), domain.CategoryPeople, batchOf(3)))

	var payload struct {
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(srv.Requests()[0].body, &payload))
	raw, err := base64.StdEncoding.DecodeString(payload.Data)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(raw, &records))
	assert.Len(t, records, 3)
}

func TestBatchTransport_GzipPayload(t *testing.T) {
	srv := newIngestServer(t)
	tr := newTransport(t, srv, &fakeGate{}, func(c *TransportConfig) { c.Compress = true })

	require.NoError(t, tr.Send(context.Background(), domain.CategoryEvents, batchOf(4)))

	req := srv.Requests()[0]
	assert.Equal(t, "gzip", req.encoding)
	zr, err := gzip.NewReader(bytesReader(req.body))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	var payload struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(plain, &payload))
	assert.Len(t, payload.Data, 4)
}

func TestBatchTransport_GatedSendsNothing(t *testing.T) {
	srv := newIngestServer(t)
	gate := &fakeGate{closed: true}
	tr := newTransport(t, srv, gate, nil)

	err := tr.Send(context.Background(), domain.CategoryEvents, batchOf(1))

	assert.ErrorIs(t, err, domain.ErrBackoffActive)
	assert.Empty(t, srv.Requests())
	assert.Zero(t, gate.failures)
}

func TestBatchTransport_ServerErrorCountsFailure(t *testing.T) {
	srv := newIngestServer(t)
	srv.status = http.StatusServiceUnavailable
	srv.header.Set("Retry-After", "300")
	gate := &fakeGate{}
	tr := newTransport(t, srv, gate, nil)

	err := tr.Send(context.Background(), domain.CategoryEvents, batchOf(10))

	var failure *domain.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, domain.FailureStatus, failure.Kind)
	assert.Equal(t, 1, gate.failures)
	assert.Equal(t, 300*time.Second, gate.retryAfter)
	assert.Zero(t, gate.successes)
}

func TestBatchTransport_Acks(t *testing.T) {
	tests := []struct {
		reply   string
		wantErr bool
	}{
		{"1", false},
		{"0", false},
		{`{"status": 1}`, false},
		{`{"status": 0, "error": "bad record"}`, false},
		{"OK", false},
		{"<html>", false},
		{"", true},
		{"\xff\xfe", true},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			srv := newIngestServer(t)
			srv.reply = tt.reply
			gate := &fakeGate{}
			tr := newTransport(t, srv, gate, nil)

			err := tr.Send(context.Background(), domain.CategoryGroups, batchOf(1))

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 1, gate.failures)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, gate.successes)
			}
		})
	}
}

func TestBatchTransport_CanceledContextNotCounted(t *testing.T) {
	srv := newIngestServer(t)
	gate := &fakeGate{}
	tr := newTransport(t, srv, gate, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Send(ctx, domain.CategoryEvents, batchOf(1))

	assert.Error(t, err)
	assert.Zero(t, gate.failures)
	assert.Zero(t, gate.successes)
}

func TestBatchTransport_UnknownCategory(t *testing.T) {
	srv := newIngestServer(t)
	tr := newTransport(t, srv, &fakeGate{}, nil)

	err := tr.Send(context.Background(), domain.Category("alerts"), batchOf(1))

	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
	assert.Empty(t, srv.Requests())
}

func TestNewBatchTransport_Validation(t *testing.T) {
	_, err := NewBatchTransport(TransportConfig{ServiceURL: "no-scheme"}, nil, &fakeGate{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewBatchTransport(TransportConfig{Encoding: "xml"}, nil, &fakeGate{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewBatchTransport(TransportConfig{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestTransportConfig_BaseURL(t *testing.T) {
	assert.Equal(t, HostProduction, TransportConfig{}.BaseURL())
	assert.Equal(t, HostDebug, TransportConfig{Debug: true}.BaseURL())
	assert.Equal(t, "http://local", TransportConfig{Debug: true, ServiceURL: "http://local"}.BaseURL())
}
