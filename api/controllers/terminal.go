package controllers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/jpalacios-dev/comanda-backend/api/responses"
	"github.com/jpalacios-dev/comanda-backend/api/validators"
	pkgauth "github.com/jpalacios-dev/comanda-backend/pkg/auth"
	"github.com/jpalacios-dev/comanda-backend/pkg/config"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
	"github.com/jpalacios-dev/comanda-backend/pkg/logger"
)

// TerminalEnroll exchanges the enrollment code for a long lived terminal
// token. Enrollment is disabled unless both the code and the JWT secret are
// configured.
func TerminalEnroll(cfg config.TerminalConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.EnrollCode == "" || cfg.JWTSecret == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "terminal enrollment disabled"))
			return
		}

		var payload terminalEnrollRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if subtle.ConstantTimeCompare([]byte(payload.EnrollCode), []byte(cfg.EnrollCode)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid enrollment code"))
			return
		}

		token, err := pkgauth.MintTerminalToken(cfg, time.Now(), pkgauth.TerminalTokenPayload{
			TerminalID:   payload.TerminalID,
			TerminalName: payload.TerminalName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint terminal token"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, terminalEnrollResponse{
			Token:     token,
			ExpiresIn: int64(cfg.TokenTTL().Seconds()),
		})
	}
}

type terminalEnrollRequest struct {
	TerminalID   string `json:"terminal_id" validate:"required"`
	TerminalName string `json:"terminal_name,omitempty"`
	EnrollCode   string `json:"enroll_code" validate:"required"`
}

type terminalEnrollResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
