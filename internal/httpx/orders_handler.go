package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-mall-checkout.git/internal/address"
	"github.com/ariefcatur/go-mall-checkout.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-mall-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-mall-checkout.git/internal/orders"
)

// Ledger is the slice of the order ledger the handlers consume.
type Ledger interface {
	Commit(ctx context.Context, userID int64, selected map[int64]int, addressID int64, pay orders.PayMethod) (orders.Receipt, error)
	ListByUser(ctx context.Context, userID int64, page, perPage int) ([]orders.OrderSummary, int, error)
	SubmitComment(ctx context.Context, userID int64, orderID string, lineID int64, comment string, score int, anonymous bool) error
	UncommentedLines(ctx context.Context, userID int64, orderID string) ([]orders.LineSummary, error)
}

// Publisher emits order events fire-and-forget after a successful commit.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// AddressBook is the read-only address collaborator.
type AddressBook interface {
	ListByUser(ctx context.Context, userID int64) ([]address.Address, error)
}

type OrdersHandler struct {
	Ledger    Ledger
	Cart      CartStore
	Catalog   CatalogReader
	Addresses AddressBook
	Producer  Publisher
	Freight   decimal.Decimal
	Service   string
	PerPage   int
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/settlement", requireUser(h.settlement))
	r.Post("/orders/commit", requireUser(h.commit))
	r.Get("/orders/info/{page}", requireUser(h.list))
	r.Get("/orders/comment", requireUser(h.uncommented))
	r.Post("/orders/comment", requireUser(h.comment))
}

func (h *OrdersHandler) settlement(w http.ResponseWriter, r *http.Request, userID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	selected, err := h.Cart.Selected(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
		return
	}
	if len(selected) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"code": CodeOK, "errmsg": "OK", "empty": true})
		return
	}

	ids := make([]int64, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	skus, err := h.Catalog.GetSKUs(ctx, ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
		return
	}

	var addrs []address.Address
	if h.Addresses != nil {
		if addrs, err = h.Addresses.ListByUser(ctx, userID); err != nil {
			writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
			return
		}
	}

	s := orders.Settle(selected, skus, h.Freight)
	writeJSON(w, http.StatusOK, map[string]any{
		"code":         CodeOK,
		"errmsg":       "OK",
		"empty":        false,
		"addresses":    addrs,
		"skus":         s.Lines,
		"total_count":  s.TotalCount,
		"total_amount": s.TotalAmount,
		"freight":      s.Freight,
		"pay_amount":   s.PayAmount,
	})
}

type commitReq struct {
	AddressID int64 `json:"address_id"`
	PayMethod int   `json:"pay_method"`
}

func (h *OrdersHandler) commit(w http.ResponseWriter, r *http.Request, userID int64) {
	var req commitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AddressID <= 0 || req.PayMethod <= 0 {
		writeError(w, http.StatusForbidden, CodeValidation, "address_id and pay_method are required")
		return
	}
	pay := orders.PayMethod(req.PayMethod)
	if !pay.Valid() {
		writeError(w, http.StatusForbidden, CodeValidation, "unknown pay method")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	selected, err := h.Cart.Selected(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
		return
	}

	receipt, err := h.Ledger.Commit(ctx, userID, selected, req.AddressID, pay)
	switch {
	case err == nil:
	case errors.Is(err, inventory.ErrInsufficientStock):
		writeJSON(w, http.StatusOK, map[string]string{"code": CodeInsufficientStock, "errmsg": "insufficient stock"})
		return
	case errors.Is(err, orders.ErrAddressNotFound):
		writeError(w, http.StatusForbidden, CodeNotFound, "address not found")
		return
	case errors.Is(err, orders.ErrEmptyCart), errors.Is(err, orders.ErrInvalidPayMethod):
		writeError(w, http.StatusForbidden, CodeValidation, err.Error())
		return
	default:
		writeJSON(w, http.StatusOK, map[string]string{"code": CodeCommitFailure, "errmsg": "order commit failed"})
		return
	}

	// Cleanup and notification are outside the transaction; neither may undo
	// the committed order.
	if err := h.Cart.Purge(ctx, userID, receipt.SKUIDs); err != nil {
		log.Printf("cart purge after commit: user=%d order=%s: %v", userID, receipt.OrderID, err)
	}
	h.publishOrderPlaced(r, userID, pay, receipt)

	writeJSON(w, http.StatusOK, map[string]any{
		"code":       CodeOK,
		"errmsg":     "OK",
		"order_id":   receipt.OrderID,
		"pay_amount": receipt.PayAmount,
	})
}

func (h *OrdersHandler) publishOrderPlaced(r *http.Request, userID int64, pay orders.PayMethod, receipt orders.Receipt) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: receipt.OrderID,
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID:   receipt.OrderID,
			UserID:    userID,
			PayMethod: pay,
			PayAmount: receipt.PayAmount.String(),
			ItemCount: receipt.ItemCount,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(receipt.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request, userID int64) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		writeError(w, http.StatusForbidden, CodeValidation, "bad page number")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	summaries, totalPages, err := h.Ledger.ListByUser(ctx, userID, page, h.PerPage)
	if errors.Is(err, orders.ErrPageOutOfRange) {
		writeError(w, http.StatusForbidden, CodeValidation, "page out of range")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":        CodeOK,
		"errmsg":      "OK",
		"orders":      summaries,
		"page":        page,
		"total_pages": totalPages,
	})
}

type commentReq struct {
	OrderID     string `json:"order_id"`
	LineID      int64  `json:"line_id"`
	Comment     string `json:"comment"`
	Score       *int   `json:"score"`
	IsAnonymous *bool  `json:"is_anonymous"`
}

func (h *OrdersHandler) comment(w http.ResponseWriter, r *http.Request, userID int64) {
	var req commentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.OrderID == "" || req.LineID <= 0 || req.Comment == "" || req.Score == nil || req.IsAnonymous == nil {
		writeError(w, http.StatusForbidden, CodeValidation, "order_id, line_id, comment, score and is_anonymous are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Ledger.SubmitComment(ctx, userID, req.OrderID, req.LineID, req.Comment, *req.Score, *req.IsAnonymous)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "OK"})
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrLineNotFound):
		writeError(w, http.StatusForbidden, CodeNotFound, err.Error())
	case errors.Is(err, orders.ErrNotReviewable):
		writeError(w, http.StatusForbidden, CodeValidation, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
	}
}

func (h *OrdersHandler) uncommented(w http.ResponseWriter, r *http.Request, userID int64) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeError(w, http.StatusForbidden, CodeValidation, "order_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lines, err := h.Ledger.UncommentedLines(ctx, userID, orderID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"code": CodeOK, "errmsg": "OK", "skus": lines})
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusForbidden, CodeNotFound, "order not found")
	default:
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
	}
}
