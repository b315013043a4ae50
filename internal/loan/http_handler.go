package loan

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"libraryapi/internal/httpx"
	"libraryapi/internal/user"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

type createLoanRequest struct {
	BookID  string `json:"book_id" validate:"required,uuid"`
	DueDate string `json:"due_date" validate:"required,date"`
}

type returnLoanRequest struct {
	ReturnDate string `json:"return_date" validate:"required,date"`
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	args = append(args, "error", err, "request_id", httpx.RequestIDFrom(r))
	h.logger.Error(msg, args...)
	httpx.JSONInternalError(w, r)
}

// CreateLoan handles POST /api/loans
// @Summary Borrow one copy of a book
// @Tags loans
// @Security Bearer
// @Accept json
// @Produce json
// @Success 201 {object} Receipt
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/loans [post]
func (h *HTTPHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	var req createLoanRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}
	dueDate, _ := httpx.ParseDate(req.DueDate)

	receipt, err := h.service.CreateLoan(r.Context(), userID, req.BookID, dueDate)
	if err != nil {
		var stockErr *StockError
		switch {
		case errors.As(err, &stockErr):
			httpx.JSONErrorWithData(w, r, http.StatusBadRequest, "NO_STOCK_AVAILABLE", "No copies of this book are available", stockErr)
		case errors.Is(err, ErrBookNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		default:
			h.internalError(w, r, "create loan failed", err, "user_id", userID, "book_id", req.BookID)
		}
		return
	}

	h.logger.Info("loan created",
		"loan_id", receipt.LoanID,
		"book_id", receipt.BookID,
		"user_id", userID,
		"available_copies", receipt.AvailableCopies,
	)
	httpx.JSONSuccessCreated(w, r, receipt)
}

// ReturnLoan handles PUT /api/loans/{id}/return
// @Summary Return a borrowed copy
// @Tags loans
// @Security Bearer
// @Param id path int true "Loan ID"
// @Success 200 {object} ReturnReceipt
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/loans/{id}/return [put]
func (h *HTTPHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpx.IdentityFrom(r.Context())
	if !ok {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	loanID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || loanID <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input",
			[]httpx.ErrorDetail{{Field: "id", Message: "id must be a positive integer"}})
		return
	}

	var req returnLoanRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}
	returnDate, _ := httpx.ParseDate(req.ReturnDate)

	caller := Caller{UserID: identity.UserID, IsAdmin: identity.HasRole(user.RoleAdmin)}
	receipt, err := h.service.ReturnLoan(r.Context(), loanID, returnDate, caller)
	if err != nil {
		if errors.Is(err, ErrAlreadyReturnedOrNotFound) {
			httpx.JSONErrorWithData(w, r, http.StatusNotFound, "NOT_FOUND", "Loan not found or already returned",
				map[string]any{"loanId": loanID})
			return
		}
		h.internalError(w, r, "return loan failed", err, "loan_id", loanID)
		return
	}

	h.logger.Info("loan returned",
		"loan_id", receipt.LoanID,
		"book_id", receipt.BookID,
		"user_id", identity.UserID,
		"available_copies", receipt.AvailableCopies,
	)
	httpx.JSONSuccess(w, r, receipt, nil)
}

// GetMyLoans handles GET /api/loans/my
// @Summary List the caller's loans, newest first
// @Tags loans
// @Security Bearer
// @Success 200 {array} Loan
// @Failure 401 {object} httpx.ErrorResponse
// @Router /api/loans/my [get]
func (h *HTTPHandler) GetMyLoans(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	loans, err := h.service.GetUserLoans(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, "list user loans failed", err, "user_id", userID)
		return
	}
	httpx.JSONSuccess(w, r, loans, nil)
}

// ListOverdue handles GET /api/loans/overdue
// @Summary List active loans past their due date (admin)
// @Tags loans
// @Security Bearer
// @Param as_of query string false "Reference date, defaults to today"
// @Success 200 {array} Loan
// @Router /api/loans/overdue [get]
func (h *HTTPHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	asOf := h.service.Today()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := httpx.ParseDate(v)
		if err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input",
				[]httpx.ErrorDetail{{Field: "as_of", Message: "as_of must be a valid date (YYYY-MM-DD)"}})
			return
		}
		asOf = parsed
	}

	loans, err := h.service.ListOverdue(r.Context(), asOf)
	if err != nil {
		h.internalError(w, r, "list overdue loans failed", err)
		return
	}
	httpx.JSONSuccess(w, r, loans, map[string]any{"as_of": asOf.Format(httpx.DateLayout), "count": len(loans)})
}
