package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens a span per request, named after the matched route of
// routes, and tags it with the request ID set by chi's RequestID.
func Tracing(serviceName string, routes chi.Routes, opts ...otelchi.Option) func(http.Handler) http.Handler {
	opts = append([]otelchi.Option{otelchi.WithChiRoutes(routes)}, opts...)
	base := otelchi.Middleware(serviceName, opts...)

	return func(next http.Handler) http.Handler {
		return base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := trace.SpanFromContext(r.Context())
			if span.IsRecording() {
				if requestID := chimw.GetReqID(r.Context()); requestID != "" {
					span.SetAttributes(attribute.String("request.id", requestID))
				}
			}
			next.ServeHTTP(w, r)
		}))
	}
}
