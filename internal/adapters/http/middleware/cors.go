package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/jsamuelsen/quotenest/internal/platform/config"
)

// CORS applies the allowed-origins policy around the whole handler so
// preflight requests are answered before gin routing.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderRequestID, HeaderCorrelationID},
		ExposedHeaders:   []string{"Location", HeaderRequestID, HeaderCorrelationID, "X-Trace-ID"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
