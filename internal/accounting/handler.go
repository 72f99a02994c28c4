package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/reports"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/accounting/statements"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
	"github.com/dairy-erp/ledger/internal/platform/httpx"
	internalShared "github.com/dairy-erp/ledger/internal/shared"
)

// IdempotencyHeader carries the client supplied replay key.
const IdempotencyHeader = "Idempotency-Key"

const idempotencyModule = "vouchers"

// IdempotencyPort guards voucher creation against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Services groups the accounting services exposed over HTTP.
type Services struct {
	Ledgers    *ledgers.Service
	Vouchers   *vouchers.Service
	Statements *statements.Service
	Reports    *reports.Service
}

// Handler wires ledger, voucher and report endpoints.
type Handler struct {
	logger      *slog.Logger
	svc         Services
	idempotency IdempotencyPort
	validate    *validator.Validate
	now         func() time.Time
}

// NewHandler builds a Handler instance. A nil idempotency port ignores the
// Idempotency-Key header.
func NewHandler(logger *slog.Logger, svc Services, idempotency IdempotencyPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		svc:         svc,
		idempotency: idempotency,
		validate:    newValidator(),
		now:         time.Now,
	}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledgers", func(r chi.Router) {
		r.Get("/", h.listLedgers)
		r.Post("/", h.createLedger)
		r.Get("/{id}", h.getLedger)
		r.Patch("/{id}", h.renameLedger)
		r.Post("/{id}/deactivate", h.deactivateLedger)
		r.Post("/{id}/reactivate", h.reactivateLedger)
		r.Get("/{id}/statement", h.statement)
	})
	r.Route("/vouchers", func(r chi.Router) {
		r.Get("/", h.listVouchers)
		r.Post("/", h.createVoucher)
		r.Post("/batch", h.createBatch)
		r.Get("/{id}", h.getVoucher)
		r.Delete("/{id}", h.deleteVoucher)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/balance-sheet", h.balanceSheet)
		r.Post("/balance-sheet", h.balanceSheet)
		r.Get("/profit-and-loss", h.profitAndLoss)
		r.Get("/trial-balance", h.trialBalance)
	})
}

func (h *Handler) listLedgers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledgers.ListFilter{
		Status: ledgers.Status(strings.ToUpper(q.Get("status"))),
		Search: q.Get("search"),
	}
	if raw := q.Get("type"); raw != "" {
		t, err := ledgers.ParseAccountType(raw)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		filter.Type = t
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		h.fail(w, r, err)
		return
	}
	var items []ledgers.Ledger
	if q.Get("selectable") == "true" {
		items, err = h.svc.Ledgers.ListSelectable(r.Context())
	} else {
		items, err = h.svc.Ledgers.ListLedgers(r.Context(), filter)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []ledgers.Ledger{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[ledgers.Ledger]{Data: items})
}

func (h *Handler) createLedger(w http.ResponseWriter, r *http.Request) {
	var req createLedgerRequest
	if !h.decode(w, r, &req) {
		return
	}
	input, err := req.toInput(internalShared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ledger, err := h.svc.Ledgers.CreateLedger(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ledger)
}

func (h *Handler) getLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	ledger, err := h.svc.Ledgers.GetLedger(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) renameLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req renameLedgerRequest
	if !h.decode(w, r, &req) {
		return
	}
	ledger, err := h.svc.Ledgers.Rename(r.Context(), ledgers.RenameInput{
		LedgerID: id,
		Name:     req.Name,
		ActorID:  internalShared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) deactivateLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req deactivateLedgerRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	ledger, err := h.svc.Ledgers.Deactivate(r.Context(), ledgers.DeactivateInput{
		LedgerID: id,
		Force:    req.Force,
		ActorID:  internalShared.ActorFromContext(r.Context()),
		Reason:   req.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) reactivateLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	ledger, err := h.svc.Ledgers.Reactivate(r.Context(), id, internalShared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var (
		window statements.Window
		err    error
	)
	if window.From, err = dateParam(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	}
	if window.To, err = dateParam(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	}
	stmt, err := h.svc.Statements.GetStatement(r.Context(), id, window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := vouchers.ListFilter{
		Type:   vouchers.VoucherType(strings.ToUpper(q.Get("type"))),
		Status: vouchers.Status(strings.ToUpper(q.Get("status"))),
	}
	var err error
	if raw := q.Get("ledgerId"); raw != "" {
		if filter.LedgerID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			h.fail(w, r, fmt.Errorf("%w: ledgerId must be numeric", shared.ErrValidation))
			return
		}
	}
	if filter.From, err = dateParam(r, "from"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.To, err = dateParam(r, "to"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Page, err = intParam(q.Get("page")); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.PerPage, err = intParam(q.Get("perPage")); err != nil {
		h.fail(w, r, err)
		return
	}
	items, page, err := h.svc.Vouchers.ListVouchers(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []vouchers.Voucher{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[vouchers.Voucher]{Data: items, Pagination: page})
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if !h.decode(w, r, &req) {
		return
	}
	post, err := req.toRequest(internalShared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			if errors.Is(err, internalShared.ErrIdempotencyConflict) {
				err = fmt.Errorf("%w: key %q", shared.ErrDuplicateRequest, key)
			}
			h.fail(w, r, err)
			return
		}
	}
	v, err := h.svc.Vouchers.Post(r.Context(), post)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(context.WithoutCancel(r.Context()), key, idempotencyModule); delErr != nil {
				h.logger.Warn("idempotency key release failed", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%d", strings.TrimSuffix(r.URL.Path, "/"), v.ID))
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Vouchers) == 0 || len(req.Vouchers) > MaxBatchRows {
		h.fail(w, r, fmt.Errorf("%w: batch must hold 1 to %d vouchers", shared.ErrValidation, MaxBatchRows))
		return
	}
	actorID := internalShared.ActorFromContext(r.Context())
	rows := make([]vouchers.Request, 0, len(req.Vouchers))
	for _, item := range req.Vouchers {
		if err := checkStruct(h.validate, item); err != nil {
			rows = append(rows, vouchers.Rejected(err))
			continue
		}
		post, err := item.toRequest(actorID)
		if err != nil {
			rows = append(rows, vouchers.Rejected(err))
			continue
		}
		rows = append(rows, post)
	}
	result := h.svc.Vouchers.CreateBatch(r.Context(), rows)
	status := http.StatusOK
	if result.Failed > 0 && result.Succeeded > 0 {
		status = http.StatusMultiStatus
	} else if result.Succeeded == 0 {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Vouchers.GetVoucher(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) deleteVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Vouchers.DeleteVoucher(r.Context(), vouchers.VoidInput{
		VoucherID: id,
		ActorID:   internalShared.ActorFromContext(r.Context()),
		Reason:    r.URL.Query().Get("reason"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	var req balanceSheetRequest
	if r.Method == http.MethodPost {
		if !h.decode(w, r, &req) {
			return
		}
	} else {
		req.AsOnDate = r.URL.Query().Get("asOnDate")
	}
	asOn := h.now()
	if req.AsOnDate != "" {
		parsed, err := time.Parse(time.DateOnly, req.AsOnDate)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: asOnDate must be YYYY-MM-DD", shared.ErrValidation))
			return
		}
		asOn = parsed
	}
	bs, err := h.svc.Reports.BalanceSheet(r.Context(), asOn, req.Rules)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := dateParam(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end := h.now()
	if to != nil {
		end = *to
	}
	pl, err := h.svc.Reports.ProfitAndLoss(r.Context(), from, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOn, err := dateParam(r, "asOnDate")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	day := h.now()
	if asOn != nil {
		day = *asOn
	}
	tb, err := h.svc.Reports.TrialBalance(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(w, r, target); err != nil {
		h.fail(w, r, err)
		return false
	}
	if err := checkStruct(h.validate, target); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, fmt.Errorf("%w: invalid id %q", shared.ErrValidation, chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("accounting request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	httpx.RespondError(w, err)
}

func dateParam(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", shared.ErrValidation, name)
	}
	return &t, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", shared.ErrValidation, raw)
	}
	return n, nil
}
