// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/qrattend/internal/auth"
	xlog "github.com/ManuGH/qrattend/internal/log"
)

// Authenticate rejects requests without a valid bearer token with 401 and
// stores the verified principal in the request context otherwise.
func Authenticate(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := v.Authenticate(r)
			if err != nil {
				logger := xlog.WithComponentFromContext(r.Context(), "auth")
				logger.Debug().Err(err).Str(xlog.FieldPath, r.URL.Path).Msg("request rejected")

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="qrattend"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"msg": "Unauthorized"})
				return
			}

			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = xlog.ContextWithCallerID(ctx, p.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
