package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// setURLParam adds a route parameter the way chi's router would.
func setURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// withRequestID tags the request as chi's RequestID middleware would.
func withRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, id))
}
