package greenfinch_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/greenfinch"
	pipeline "github.com/bft-labs/greenfinch/pkg/greenfinch"
)

func TestDefaultConfig(t *testing.T) {
	cfg := greenfinch.DefaultConfig()
	assert.Equal(t, 60*time.Second, cfg.FlushInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.True(t, cfg.FlushOnStop)
	assert.True(t, cfg.UseIPForGeolocation)
}

func TestRun_InvalidConfig(t *testing.T) {
	err := greenfinch.Run(context.Background(), greenfinch.DefaultConfig())
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = io.WriteString(w, "1")
	}))
	defer srv.Close()

	cfg := greenfinch.DefaultConfig()
	cfg.Token = "tok"
	cfg.ServiceURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- greenfinch.Run(ctx, cfg, pipeline.WithHTTPClient(srv.Client())) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Zero(t, requests.Load(), "empty queues send nothing")
}
