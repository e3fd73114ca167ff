package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/fybs47/Library/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CoverStorage is the interface that wraps read access to stored cover images
type CoverStorage interface {
	// Method OpenFile opens a stored file.
	//
	// If the file does not exist, an error matching os.ErrNotExist will be returned.
	OpenFile(name string) (*os.File, error)
}

// CoverHandler serves book cover images
type CoverHandler struct {
	BaseHandler
	storage CoverStorage
}

// NewCoverHandler creates a new cover handler
func NewCoverHandler(coverStorage CoverStorage, logger *zap.Logger) *CoverHandler {
	return &CoverHandler{
		BaseHandler: BaseHandler{Logger: logger},
		storage:     coverStorage,
	}
}

// RegisterRoutes registers all cover handler routes
func (h *CoverHandler) RegisterRoutes(r chi.Router) {
	r.Get("/images/{filename}", h.GetImage)
}

// GetImage handles GET /images/{filename}
func (h *CoverHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	file, err := h.storage.OpenFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidFileName) {
			h.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		h.Logger.Error("failed to open file", zap.Error(err), zap.String("file", filename))
		h.RespondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		h.Logger.Error("failed to get file info", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to get file info")
		return
	}
	if fileInfo.IsDir() {
		h.RespondError(w, http.StatusNotFound, "file not found")
		return
	}

	http.ServeContent(w, r, filename, fileInfo.ModTime(), file)
}
