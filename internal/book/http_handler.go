package book

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger, now: time.Now}
}

type createBookRequest struct {
	Title       string  `json:"title" validate:"required,min=2,max=255"`
	AuthorID    string  `json:"author_id" validate:"required,uuid"`
	PublishYear int     `json:"publish_year" validate:"required,gte=1000"`
	Copies      int     `json:"copies" validate:"required,gte=1"`
	CoverURL    *string `json:"cover_url" validate:"omitempty,url"`
}

type updateBookRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=255"`
	AuthorID    *string `json:"author_id" validate:"omitempty,uuid"`
	PublishYear *int    `json:"publish_year" validate:"omitempty,gte=1000"`
	Copies      *int    `json:"copies" validate:"omitempty,gte=0"`
	CoverURL    *string `json:"cover_url" validate:"omitempty,url"`
}

func (h *HTTPHandler) checkYear(year *int) []httpx.ErrorDetail {
	if year != nil && *year > h.now().Year() {
		return []httpx.ErrorDetail{{Field: "publish_year", Message: "publish_year cannot be in the future"}}
	}
	return nil
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", httpx.RequestIDFrom(r))
	httpx.JSONInternalError(w, r)
}

// List handles GET /api/books
// @Summary List books
// @Param author_id query string false "Filter by author"
// @Param q query string false "Title or author search"
// @Param available query bool false "Only books with available copies"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} httpx.SuccessResponse
// @Router /api/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := Query{
		Q:             query.Get("q"),
		AvailableOnly: query.Get("available") == "true",
	}
	if authorID := query.Get("author_id"); authorID != "" {
		if _, err := uuid.Parse(authorID); err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input",
				[]httpx.ErrorDetail{{Field: "author_id", Message: "author_id must be a valid UUID"}})
			return
		}
		params.AuthorID = authorID
	}

	page, pageSize := httpx.Pagination(r)
	params.Limit = pageSize
	params.Offset = (page - 1) * pageSize

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.internalError(w, r, "list books failed", err)
		return
	}

	httpx.JSONSuccess(w, r, books, httpx.PageMeta(page, pageSize, total))
}

// Get handles GET /api/books/{id}
// @Summary Get a book with its available copies
// @Param id path string true "Book ID"
// @Success 200 {object} Book
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		h.internalError(w, r, "get book failed", err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /api/books
// @Summary Create a book (admin)
// @Security BearerAuth
// @Success 201 {object} Book
// @Failure 400 {object} httpx.ErrorResponse
// @Router /api/books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}
	if details := h.checkYear(&req.PublishYear); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b := Book{
		Title:       req.Title,
		AuthorID:    req.AuthorID,
		PublishYear: req.PublishYear,
		Copies:      req.Copies,
		CoverURL:    req.CoverURL,
	}
	if err := h.service.Create(r.Context(), &b); err != nil {
		if errors.Is(err, ErrInvalidAuthor) {
			httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_AUTHOR", "Author does not exist", nil)
			return
		}
		h.internalError(w, r, "create book failed", err)
		return
	}
	httpx.JSONSuccessCreated(w, r, b)
}

// Update handles PUT /api/books/{id}
// @Summary Partially update a book (admin)
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 200 {object} Book
// @Router /api/books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req updateBookRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}
	if details := h.checkYear(req.PublishYear); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.service.Update(r.Context(), id, Update{
		Title:       req.Title,
		AuthorID:    req.AuthorID,
		PublishYear: req.PublishYear,
		Copies:      req.Copies,
		CoverURL:    req.CoverURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyUpdate):
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "At least one field must be provided", nil)
		case errors.Is(err, ErrNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		case errors.Is(err, ErrInvalidAuthor):
			httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_AUTHOR", "Author does not exist", nil)
		default:
			h.internalError(w, r, "update book failed", err)
		}
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /api/books/{id}
// @Summary Delete a book without loans (admin)
// @Security BearerAuth
// @Param id path string true "Book ID"
// @Success 204
// @Failure 409 {object} httpx.ErrorResponse
// @Router /api/books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		case errors.Is(err, ErrHasLoans):
			httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Book has loans and cannot be deleted", nil)
		default:
			h.internalError(w, r, "delete book failed", err)
		}
		return
	}
	httpx.JSONSuccessNoContent(w)
}
