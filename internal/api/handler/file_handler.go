package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Zeygath/th-2024/internal/common"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// FileHandler serves stored objects. Public buckets are open; private ones
// need a token minted by storage.URLSigner for that exact object.
type FileHandler struct {
	objects  ObjectReader
	verifier ObjectVerifier
}

func NewFileHandler(objects ObjectReader, verifier ObjectVerifier) *FileHandler {
	return &FileHandler{objects: objects, verifier: verifier}
}

func (h *FileHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/files/{bucket}/*", h.serve)
}

func (h *FileHandler) serve(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	objectPath := chi.URLParam(r, "*")
	if !storage.IsKnownBucket(bucket) {
		common.RespondWithError(w, http.StatusNotFound, common.ErrNotFound.Error())
		return
	}

	cacheControl := "public, max-age=3600"
	if !storage.IsPublicBucket(bucket) {
		if err := h.verifier.Verify(r.URL.Query().Get("token"), bucket, objectPath); err != nil {
			common.RespondWithError(w, http.StatusForbidden, storage.ErrInvalidSignature.Error())
			return
		}
		cacheControl = "private, no-store"
	}

	rc, err := h.objects.Get(r.Context(), bucket, objectPath)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrObjectNotFound):
			common.RespondWithError(w, http.StatusNotFound, common.ErrNotFound.Error())
		case errors.Is(err, storage.ErrInvalidPath):
			common.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			logrus.WithError(err).WithFields(logrus.Fields{"bucket": bucket, "path": objectPath}).Error("Object read failed")
			common.RespondWithError(w, http.StatusBadGateway, "storage backend unavailable")
		}
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"bucket": bucket, "path": objectPath}).Error("Object read failed")
		common.RespondWithError(w, http.StatusBadGateway, "storage backend unavailable")
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeFor(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
