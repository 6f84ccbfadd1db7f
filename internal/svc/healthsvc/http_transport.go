package healthsvc

import (
	"context"
	"net/http"

	"github.com/mkrupp/postboard/internal/domain"
	http_ "github.com/mkrupp/postboard/internal/infra/transport/http"
)

// HTTPTransport serves GET /health and GET /ready.
type HTTPTransport struct {
	healthSvc *HealthService
	mux       *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(healthSvc *HealthService) *HTTPTransport {
	ht := &HTTPTransport{
		healthSvc: healthSvc,
		mux:       http.NewServeMux(),
	}

	ht.mux.HandleFunc("GET /health", ht.probe(healthSvc.Health))
	ht.mux.HandleFunc("GET /ready", ht.probe(healthSvc.Ready))

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// probe answers 200 with the status, or 503 with the status as detail.
func (ht *HTTPTransport) probe(check func(context.Context) (domain.HealthStatus, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := check(r.Context())
		if err != nil {
			http_.WriteDetail(w, http.StatusServiceUnavailable, status)

			return
		}

		_ = http_.WriteJSON(w, http.StatusOK, status)
	}
}
