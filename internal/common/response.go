package common

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError maps err to a status code. Server-side failures are logged
// and replaced by a generic message; client errors carry their own text.
func RespondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatusFromError(err)
	if code >= http.StatusInternalServerError && code != http.StatusBadGateway {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		message := ErrInternalServer.Error()
		if code == http.StatusServiceUnavailable {
			message = ErrServiceUnavailable.Error()
		}
		RespondWithError(w, code, message)
		return
	}

	var verr *ValidationError
	if AsValidationError(err, &verr) {
		RespondWithJSON(w, code, ErrorResponse{Error: ErrValidation.Error(), Details: verr.Fields})
		return
	}
	RespondWithError(w, code, err.Error())
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
