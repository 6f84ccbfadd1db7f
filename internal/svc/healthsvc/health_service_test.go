package healthsvc_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/svc/healthsvc"
)

type mockStore struct {
	err error
	m   sync.Mutex
}

func (s *mockStore) Ping(context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()

	return s.err
}

func (s *mockStore) setErr(err error) {
	s.m.Lock()
	defer s.m.Unlock()

	s.err = err
}

func TestHealthTransport(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	svc := healthsvc.NewHealthService(store)
	svc.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	handler := healthsvc.NewHTTPTransport(svc)

	apitest.New().
		Handler(handler).
		Get("/health").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.status`, "healthy")).
		Assert(jsonpath.Equal(`$.database`, "connected")).
		Assert(jsonpath.Equal(`$.service`, healthsvc.ServiceName)).
		Assert(jsonpath.Equal(`$.timestamp`, "2024-05-01T12:00:00Z")).
		Assert(jsonpath.NotPresent(`$.error`)).
		End()

	apitest.New().
		Handler(handler).
		Get("/ready").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.status`, "ready")).
		Assert(jsonpath.NotPresent(`$.service`)).
		End()

	store.setErr(errors.Join(domain.ErrStoreUnavailable, errors.New("connection refused")))

	apitest.New().
		Handler(handler).
		Get("/health").
		Expect(t).
		Status(http.StatusServiceUnavailable).
		Assert(jsonpath.Equal(`$.detail.status`, "unhealthy")).
		Assert(jsonpath.Equal(`$.detail.database`, "disconnected")).
		Assert(jsonpath.Contains(`$.detail.error`, "connection refused")).
		End()

	apitest.New().
		Handler(handler).
		Get("/ready").
		Expect(t).
		Status(http.StatusServiceUnavailable).
		Assert(jsonpath.Equal(`$.detail.status`, "not ready")).
		Assert(jsonpath.Present(`$.detail.timestamp`)).
		End()
}
