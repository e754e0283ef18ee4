package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckListingOK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>listing</body></html>"))
	}))
	defer srv.Close()

	p := New(Config{UserAgent: "stridewatch-test", Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, p.CheckListing(context.Background(), srv.URL))
}

func TestCheckListingNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 5 * time.Second}, zap.NewNop())
	err := p.CheckListing(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestCheckListingUnreachable(t *testing.T) {
	t.Parallel()

	p := New(Config{Timeout: time.Second}, zap.NewNop())
	err := p.CheckListing(context.Background(), "http://127.0.0.1:1/listing")
	require.Error(t, err)
}
