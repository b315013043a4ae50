package author

import (
	"errors"
	"log/slog"
	"net/http"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

type createAuthorRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Bio  string `json:"bio" validate:"max=2000"`
}

type updateAuthorRequest struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=100"`
	Bio  *string `json:"bio" validate:"omitempty,max=2000"`
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Author not found", nil)
	case errors.Is(err, ErrHasBooks):
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Author has books and cannot be deleted", nil)
	case errors.Is(err, ErrEmptyUpdate):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "At least one field must be provided", nil)
	default:
		h.logger.Error(op+" failed", "error", err, "request_id", httpx.RequestIDFrom(r))
		httpx.JSONInternalError(w, r)
	}
}

// List handles GET /api/authors
// @Summary List authors with their book counts
// @Security BearerAuth
// @Param q query string false "Name search"
// @Success 200 {object} httpx.SuccessResponse
// @Router /api/authors [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := httpx.Pagination(r)
	authors, total, err := h.service.List(r.Context(), Query{
		Q:      r.URL.Query().Get("q"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		h.fail(w, r, "list authors", err)
		return
	}
	httpx.JSONSuccess(w, r, authors, httpx.PageMeta(page, pageSize, total))
}

// Get handles GET /api/authors/{id}
// @Summary Get an author
// @Security BearerAuth
// @Param id path string true "Author ID"
// @Success 200 {object} Author
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/authors/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get author", err)
		return
	}
	httpx.JSONSuccess(w, r, a, nil)
}

// Create handles POST /api/authors
// @Summary Create an author (admin)
// @Security BearerAuth
// @Success 201 {object} Author
// @Router /api/authors [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAuthorRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	a := Author{Name: req.Name, Bio: req.Bio}
	if err := h.service.Create(r.Context(), &a); err != nil {
		h.fail(w, r, "create author", err)
		return
	}
	httpx.JSONSuccessCreated(w, r, a)
}

// Update handles PUT /api/authors/{id}
// @Summary Update an author (admin)
// @Security BearerAuth
// @Param id path string true "Author ID"
// @Success 200 {object} Author
// @Router /api/authors/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateAuthorRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	a, err := h.service.Update(r.Context(), id, Update{Name: req.Name, Bio: req.Bio})
	if err != nil {
		h.fail(w, r, "update author", err)
		return
	}
	httpx.JSONSuccess(w, r, a, nil)
}

// Delete handles DELETE /api/authors/{id}
// @Summary Delete an author without books (admin)
// @Security BearerAuth
// @Param id path string true "Author ID"
// @Success 204
// @Failure 409 {object} httpx.ErrorResponse
// @Router /api/authors/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete author", err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}
