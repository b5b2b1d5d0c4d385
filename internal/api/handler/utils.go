package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Zeygath/th-2024/internal/api/middleware"
	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type messageResponse struct {
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (*model.Identity, bool) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
		return nil, false
	}
	return identity, true
}

func int64URLParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

func intQueryParam(r *http.Request, name string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v
	}
	return fallback
}

// multipartOverhead leaves room for the non-file form fields.
const multipartOverhead = 1 << 20

// readMultipartImage parses a multipart body and reads the optional "image" part.
// A nil image with ok=true means no file was sent.
func readMultipartImage(w http.ResponseWriter, r *http.Request, maxBytes int64) (*storage.Image, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondWithError(w, http.StatusRequestEntityTooLarge, storage.ErrImageTooLarge.Error())
			return nil, false
		}
		common.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid image field: "+err.Error())
		return nil, false
	}
	defer file.Close()

	image, err := storage.ReadImage(file, maxBytes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrImageTooLarge):
			common.RespondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrEmptyImage):
			common.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			logrus.WithError(err).Error("Failed to read uploaded image")
			common.RespondWithError(w, http.StatusBadRequest, "Could not read image")
		}
		return nil, false
	}
	return image, true
}
