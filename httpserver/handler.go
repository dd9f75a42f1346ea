package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kaplanelad/active-storage/interfaces"
	"github.com/kaplanelad/active-storage/storage"
)

// Handler implements the gateway API over a MultiStore.
type Handler struct {
	multi *storage.MultiStore
	log   *slog.Logger
}

// NewHandler creates a handler.
func NewHandler(multi *storage.MultiStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{multi: multi, log: logger}
}

// errorResponse is the JSON error body. Stores carries per-store failures of
// a partial mirror failure.
type errorResponse struct {
	Error  string            `json:"error"`
	Stores map[string]string `json:"stores,omitempty"`
}

// mirrorFor resolves the fan-out targets for a mutating request: a named
// group via the "mirror" query parameter, all stores otherwise.
func (h *Handler) mirrorFor(r *http.Request) (*storage.Mirror, bool) {
	if group := r.URL.Query().Get("mirror"); group != "" {
		return h.multi.Mirror(group)
	}
	return h.multi.MirrorStoresFromPrimary(), true
}

// storeFor resolves the store a read request targets: a named secondary via
// the "store" query parameter, the primary otherwise.
func (h *Handler) storeFor(r *http.Request) (*storage.Store, bool) {
	if name := r.URL.Query().Get("store"); name != "" {
		return h.multi.GetStore(name)
	}
	return h.multi.Primary(), true
}

// HandleWrite stores the request body at the object path on every mirror
// target.
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	content, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "reading request body failed")
		return
	}

	mirror, ok := h.mirrorFor(r)
	if !ok {
		h.writeError(w, http.StatusNotFound, "mirror group not defined")
		return
	}

	if err := mirror.Write(r.Context(), path, content); err != nil {
		h.writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleRead returns the object content.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	store, ok := h.storeFor(r)
	if !ok {
		h.writeError(w, http.StatusNotFound, "store not defined")
		return
	}

	contents, err := store.Read(r.Context(), path)
	if err != nil {
		h.writeOperationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(contents.Bytes())
}

// HandleHead reports object existence; the Last-Modified header is set when
// the backend supports it.
func (h *Handler) HandleHead(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	store, ok := h.storeFor(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	exists, err := store.FileExists(r.Context(), path)
	if err != nil {
		w.WriteHeader(statusForError(err))
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if modified, err := store.LastModified(r.Context(), path); err == nil {
		w.Header().Set("Last-Modified", modified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
}

// HandleDelete removes the object from every mirror target.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	mirror, ok := h.mirrorFor(r)
	if !ok {
		h.writeError(w, http.StatusNotFound, "mirror group not defined")
		return
	}

	if err := mirror.Delete(r.Context(), path); err != nil {
		h.writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteDirectory removes the directory from every mirror target.
func (h *Handler) HandleDeleteDirectory(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	mirror, ok := h.mirrorFor(r)
	if !ok {
		h.writeError(w, http.StatusNotFound, "mirror group not defined")
		return
	}

	if err := mirror.DeleteDirectory(r.Context(), path); err != nil {
		h.writeOperationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addMirrorsRequest is the body of POST /api/mirrors/{group}.
type addMirrorsRequest struct {
	Stores []string `json:"stores"`
}

// HandleAddMirrors defines a mirror group. Unknown store names fail the whole
// request and are all reported.
func (h *Handler) HandleAddMirrors(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	var req addMirrorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.multi.AddMirrors(group, req.Stores); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info("Mirror group defined via API",
		slog.String("group", group),
		slog.Int("stores", len(req.Stores)))

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// writeOperationError renders storage errors, including partial mirror
// failures with their per-store breakdown.
func (h *Handler) writeOperationError(w http.ResponseWriter, err error) {
	var storesErr *storage.MirrorStoresError
	if errors.As(err, &storesErr) {
		stores := make(map[string]string, len(storesErr.Failures))
		for name, storeErr := range storesErr.Failures {
			stores[name] = storeErr.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(errorResponse{Error: "mirror failed on some stores", Stores: stores})
		return
	}

	var storeErr *storage.MirrorStoreError
	if errors.As(err, &storeErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusForError(storeErr.Err))
		json.NewEncoder(w).Encode(errorResponse{
			Error:  "mirror stopped on failing store",
			Stores: map[string]string{storeErr.Store: storeErr.Err.Error()},
		})
		return
	}

	h.writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrInvalidPath), errors.Is(err, interfaces.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrNetwork), errors.Is(err, interfaces.ErrAuthenticationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
