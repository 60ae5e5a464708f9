package jwtgate

import (
	"encoding/json"
	"net/http"

	"github.com/entragate/go-jwt-gate/core"
)

var (
	// ErrJWTMissing is returned when the request carries no token.
	ErrJWTMissing = core.ErrJWTMissing

	// ErrJWTInvalid matches every token rejection.
	ErrJWTInvalid = core.ErrJWTInvalid
)

// ErrorHandler is called when the Gate rejects a request. err is always
// classifiable with core.Classify; errors.Is(err, ErrJWTMissing) and the
// validator and jwks sentinels can be used to tell the failures apart.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Message string `json:"message"`
}

// DefaultErrorHandler answers every rejection with 401, a WWW-Authenticate
// challenge per RFC 6750 and a generic JSON body. The failure code is never
// sent to the client.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	decision := core.Decide(nil, err)

	w.Header().Set("WWW-Authenticate", decision.WWWAuthenticate())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(decision.Status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Message: decision.Message})
}
