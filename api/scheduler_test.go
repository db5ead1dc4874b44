package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httptestRecorder(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCacheRefresher_RefreshWarmsManifestRetailers(t *testing.T) {
	// GIVEN: A handler with one snapshot already loaded
	s := newTestServer(t)
	first, err := s.h.retailer(context.Background(), "sprouts")
	require.NoError(t, err)

	// WHEN: Refreshing with warm-up
	cr := NewCacheRefresher(s.h, time.Hour, nil)
	warmed := cr.Refresh(context.Background())

	// THEN: Both manifest retailers are reloaded as new snapshots
	assert.Equal(t, 2, warmed)
	second, err := s.h.retailer(context.Background(), "sprouts")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, s.h.snapshotCount())
}

func TestCacheRefresher_NoWarm(t *testing.T) {
	s := newTestServer(t)
	_, err := s.h.retailer(context.Background(), "sprouts")
	require.NoError(t, err)

	cr := NewCacheRefresher(s.h, time.Hour, nil)
	cr.Warm = false

	assert.Equal(t, 0, cr.Refresh(context.Background()))
	assert.Equal(t, 0, s.h.snapshotCount())
}

func TestCacheRefresher_StartStop(t *testing.T) {
	// GIVEN: A refresher with a short interval
	s := newTestServer(t)
	_, err := s.h.retailer(context.Background(), "sprouts")
	require.NoError(t, err)
	cr := NewCacheRefresher(s.h, 10*time.Millisecond, nil)
	cr.Warm = false

	// WHEN: Running it for a few ticks
	cr.Start()
	cr.Start() // no second loop
	assert.Eventually(t, func() bool { return s.h.snapshotCount() == 0 }, time.Second, 5*time.Millisecond)
	cr.Stop()
	cr.Stop()

	// THEN: The snapshot was cleared and the loop is gone
	assert.Nil(t, cr.ticker)
}

func TestCacheRefresher_DisabledInterval(t *testing.T) {
	cr := NewCacheRefresher(NewHandler(nil, nil), 0, nil)

	cr.Start()

	assert.Nil(t, cr.ticker)
	cr.Stop()
}
