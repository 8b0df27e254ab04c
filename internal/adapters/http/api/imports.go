package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/gradelens/internal/adapters/repository"
	service "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/domain/mapping"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/pkg/logger"
)

// Multipart form fields of upload requests.
const (
	formFile    = "file"
	formMapping = "mapping"
)

// Importer is the slice of the service the upload endpoints need.
type Importer interface {
	SuggestMapping(ctx context.Context, name string, content []byte) (service.Suggestion, error)
	Import(ctx context.Context, req service.ImportRequest) (service.ImportResult, error)
	Imports(ctx context.Context) ([]repository.Import, error)
}

// ImportsHandler handles file uploads and the import history.
type ImportsHandler struct {
	importer Importer
	maxBytes int64
	logger   logger.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(importer Importer, maxBytes int64, l logger.Logger) *ImportsHandler {
	return &ImportsHandler{importer: importer, maxBytes: maxBytes, logger: l}
}

// HandleSuggest handles POST /mappings/suggest with a multipart "file" field.
func (h *ImportsHandler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	const op = "api.suggest_mapping"
	if r.Method != http.MethodPost {
		fail(r.Context(), h.logger, w, NewKind(op, ErrMethodNotAllowed))
		return
	}
	name, content, err := h.readUpload(w, r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	s, err := h.importer.SuggestMapping(r.Context(), name, content)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleImports handles POST /imports (multipart "file" plus an optional
// JSON "mapping" field) and GET /imports. Students cannot upload.
func (h *ImportsHandler) HandleImports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		fail(r.Context(), h.logger, w, NewKind("api.imports", ErrMethodNotAllowed))
	}
}

func (h *ImportsHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_imports"
	imps, err := h.importer.Imports(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if imps == nil {
		imps = []repository.Import{}
	}
	writeJSON(w, http.StatusOK, imps)
}

func (h *ImportsHandler) create(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_import"
	c, err := callerFrom(r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if c.Role == model.RoleStudent {
		fail(r.Context(), h.logger, w, Wrap(op, service.ErrForbidden))
		return
	}
	name, content, err := h.readUpload(w, r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	var m mapping.Mapping
	if raw := r.FormValue(formMapping); raw != "" {
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			fail(r.Context(), h.logger, w, WrapKind(op, ErrBadRequest, fmt.Errorf("mapping: %w", err)))
			return
		}
	}
	res, err := h.importer.Import(r.Context(), service.ImportRequest{
		FileName: name,
		Content:  content,
		Mapping:  m,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// readUpload extracts the uploaded file, enforcing the size cap.
func (h *ImportsHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, fmt.Errorf("%w: limit %d bytes", service.ErrTooLarge, tooLarge.Limit)
		}
		return "", nil, WrapKind("api.read_upload", ErrBadRequest, err)
	}
	f, hdr, err := r.FormFile(formFile)
	if err != nil {
		return "", nil, WrapKind("api.read_upload", ErrBadRequest, fmt.Errorf("field %q: %w", formFile, err))
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return hdr.Filename, content, nil
}
