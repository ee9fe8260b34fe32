// Package api exposes the tracker over HTTP.
package api

import (
	"net/http"

	"nutripal"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServerOptions struct {
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter registers every route on a fresh mux.
func NewRouter(h *Handler, secret string) *http.ServeMux {
	auth := func(fn http.HandlerFunc) http.HandlerFunc { return AuthMiddleware(fn, secret) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.HealthCheck)
	mux.HandleFunc("GET /healthz", h.HealthCheck)
	mux.HandleFunc("GET /livez", h.LivenessCheck)
	mux.HandleFunc("GET /readyz", h.ReadinessCheck)

	mux.HandleFunc("POST /api/ai/parse-meal", auth(h.ParseMeal))
	mux.HandleFunc("GET /api/summary/{date}", auth(h.Summary))
	mux.HandleFunc("GET /api/logs/{date}", auth(h.GetLog))
	mux.HandleFunc("POST /api/logs/{date}/add", auth(h.AddFood))
	mux.HandleFunc("DELETE /api/logs/{date}/items/{itemIndex}", auth(h.DeleteItem))
	mux.HandleFunc("GET /api/profile", auth(h.GetProfile))
	mux.HandleFunc("POST /api/profile", auth(h.SaveProfile))
	mux.HandleFunc("PUT /api/profile", auth(h.UpdateProfile))
	mux.HandleFunc("GET /api/foods", auth(h.ListFoods))

	mux.HandleFunc("GET /api/foods/search", h.SearchFoods)
	mux.HandleFunc("POST /api/bmi-plan", h.BMIPlan)
	return mux
}

// NewServer wraps the router with CORS and request tracing.
func NewServer(h *Handler, opts ServerOptions) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return otelhttp.NewHandler(c.Handler(NewRouter(h, opts.JWTSecret)), nutripal.TracerNameHTTP)
}
