package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/qr-checkin/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func RegisterRoutes(
	r chi.Router,
	log zerolog.Logger,
	gatherer prometheus.Gatherer,
	authHandler *auth.AuthHandler,
	registrationHandler *RegistrationHandler,
	stationHandler *StationHandler,
	apiKeyHandler *APIKeyHandler,
) huma.API {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	config := huma.DefaultConfig("QR Check-in API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"apiKeyAuth": {
			Type: "apiKey",
			In:   "header",
			Name: auth.APIKeyHeader,
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	huma.Register(api, huma.Operation{
		OperationID:   "create-registration",
		Method:        http.MethodPost,
		Path:          "/registrations",
		Summary:       "Register an attendee",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"Registrations"},
	}, registrationHandler.HandleCreate)
	huma.Get(api, "/registrations/{id}", registrationHandler.HandleGet, tagged("Registrations"))
	huma.Get(api, "/registrations/{id}/qr.png", registrationHandler.HandleQRCode, tagged("Registrations"), func(o *huma.Operation) {
		o.OperationID = "get-registration-qr-code"
	})

	// Auth routes
	huma.Get(api, "/auth/discord/login", authHandler.HandleLogin, tagged("Auth"))
	huma.Get(api, "/auth/discord/callback", authHandler.HandleCallback, tagged("Auth"))

	// Protected routes
	protected := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
		o.Middlewares = append(o.Middlewares, authHandler.Middleware(api))
	}

	huma.Get(api, "/me", authHandler.HandleMe, protected, tagged("Auth"))

	huma.Post(api, "/api-keys", apiKeyHandler.HandleCreate, protected, tagged("API keys"))
	huma.Get(api, "/api-keys", apiKeyHandler.HandleList, protected, tagged("API keys"))
	huma.Delete(api, "/api-keys/{id}", apiKeyHandler.HandleDelete, protected, tagged("API keys"))

	huma.Get(api, "/stations/{station}", stationHandler.HandleGet, protected, tagged("Stations"))
	huma.Put(api, "/stations/{station}/devices", stationHandler.HandleDevices, protected, tagged("Stations"))
	huma.Put(api, "/stations/{station}/device", stationHandler.HandleSelectDevice, protected, tagged("Stations"))
	huma.Post(api, "/stations/{station}/start", stationHandler.HandleStart, protected, tagged("Stations"))
	huma.Post(api, "/stations/{station}/reset", stationHandler.HandleReset, protected, tagged("Stations"))
	huma.Post(api, "/stations/{station}/frames", stationHandler.HandleFrame, protected, tagged("Stations"))
	huma.Delete(api, "/stations/{station}/cooldown", stationHandler.HandleEvict, protected, tagged("Stations"))

	return api
}

func tagged(tag string) func(o *huma.Operation) {
	return func(o *huma.Operation) {
		o.Tags = append(o.Tags, tag)
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("Request handled")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
