package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-mall-checkout.git/internal/cart"
	"github.com/ariefcatur/go-mall-checkout.git/internal/catalog"
)

// CartStore is the authenticated cart surface the handlers consume.
type CartStore interface {
	Increment(ctx context.Context, userID, skuID int64, delta int, selected bool) error
	Set(ctx context.Context, userID, skuID int64, qty int, selected bool) error
	SelectAll(ctx context.Context, userID int64, selected bool) error
	ReadAll(ctx context.Context, userID int64) (cart.Mapping, error)
	Selected(ctx context.Context, userID int64) (map[int64]int, error)
	Remove(ctx context.Context, userID, skuID int64) error
	Purge(ctx context.Context, userID int64, skuIDs []int64) error
	Merge(ctx context.Context, userID int64, anon cart.Mapping) error
}

type CatalogReader interface {
	GetSKU(ctx context.Context, skuID int64) (catalog.SKU, error)
	GetSKUs(ctx context.Context, ids []int64) (map[int64]catalog.SKU, error)
}

const cartCookie = "cart"

func readAnonCart(r *http.Request) (cart.Mapping, error) {
	c, err := r.Cookie(cartCookie)
	if err != nil || c.Value == "" {
		return cart.Mapping{}, nil
	}
	return cart.DecodeToken(c.Value)
}

func writeAnonCart(w http.ResponseWriter, m cart.Mapping) {
	if len(m) == 0 {
		http.SetCookie(w, &http.Cookie{Name: cartCookie, Value: "", Path: "/", MaxAge: -1})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: cartCookie, Value: cart.EncodeToken(m), Path: "/"})
}

// MergeAnonCart reconciles the anonymous cart into the authenticated store the
// first time a logged-in request still carries the anonymous cookie, then
// clears the cookie.
func MergeAnonCart(store CartStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid, ok := userFrom(r); ok {
				if anon, err := readAnonCart(r); err == nil && len(anon) > 0 {
					if err := store.Merge(r.Context(), uid, anon); err == nil {
						writeAnonCart(w, nil)
						stripCookie(r, cartCookie)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// stripCookie removes one cookie from the request header, keeping the others
// intact for downstream handlers.
func stripCookie(r *http.Request, name string) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name == name {
			continue
		}
		r.AddCookie(c)
	}
}

type CartHandler struct {
	Store   CartStore
	Catalog CatalogReader
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Post("/cart", h.add)
	r.Get("/cart", h.view)
	r.Put("/cart", h.update)
	r.Delete("/cart", h.remove)
	r.Put("/cart/selection", h.selectAll)
}

type cartLineReq struct {
	SKUID    int64 `json:"sku_id"`
	Count    int   `json:"count"`
	Selected *bool `json:"selected"`
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKUID <= 0 || req.Count <= 0 {
		writeError(w, http.StatusForbidden, CodeValidation, "sku_id and count are required")
		return
	}
	selected := true
	if req.Selected != nil {
		selected = *req.Selected
	}

	if _, err := h.Catalog.GetSKU(r.Context(), req.SKUID); err != nil {
		if errors.Is(err, catalog.ErrSKUNotFound) {
			writeError(w, http.StatusForbidden, CodeNotFound, "unknown sku")
			return
		}
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
		return
	}

	if uid, ok := userFrom(r); ok {
		if err := h.Store.Increment(r.Context(), uid, req.SKUID, req.Count, selected); err != nil {
			writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "added"})
		return
	}

	m, err := readAnonCart(r)
	if err != nil {
		writeError(w, http.StatusForbidden, CodeValidation, "bad cart token")
		return
	}
	cur := m[req.SKUID]
	m[req.SKUID] = cart.Line{Qty: cur.Qty + req.Count, Selected: cur.Selected || selected}
	writeAnonCart(w, m)
	writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "added"})
}

type cartViewLine struct {
	SKUID    int64           `json:"sku_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
	Selected bool            `json:"selected"`
}

func (h *CartHandler) view(w http.ResponseWriter, r *http.Request) {
	m, ok := h.currentMapping(w, r)
	if !ok {
		return
	}

	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	skus, err := h.Catalog.GetSKUs(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
		return
	}

	lines := make([]cartViewLine, 0, len(m))
	for id, l := range m {
		sku, ok := skus[id]
		if !ok {
			continue
		}
		lines = append(lines, cartViewLine{
			SKUID:    id,
			Name:     sku.Name,
			Price:    sku.Price,
			Count:    l.Qty,
			Amount:   sku.Price.Mul(decimal.NewFromInt(int64(l.Qty))),
			Selected: l.Selected,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": CodeOK, "errmsg": "OK", "cart_skus": lines})
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKUID <= 0 || req.Count <= 0 || req.Selected == nil {
		writeError(w, http.StatusForbidden, CodeValidation, "sku_id, count and selected are required")
		return
	}
	if _, err := h.Catalog.GetSKU(r.Context(), req.SKUID); err != nil {
		writeError(w, http.StatusForbidden, CodeNotFound, "unknown sku")
		return
	}

	if uid, ok := userFrom(r); ok {
		if err := h.Store.Set(r.Context(), uid, req.SKUID, req.Count, *req.Selected); err != nil {
			writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "updated"})
		return
	}

	m, err := readAnonCart(r)
	if err != nil {
		writeError(w, http.StatusForbidden, CodeValidation, "bad cart token")
		return
	}
	m[req.SKUID] = cart.Line{Qty: req.Count, Selected: *req.Selected}
	writeAnonCart(w, m)
	writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "updated"})
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SKUID int64 `json:"sku_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKUID <= 0 {
		writeError(w, http.StatusForbidden, CodeValidation, "sku_id is required")
		return
	}

	if uid, ok := userFrom(r); ok {
		if err := h.Store.Remove(r.Context(), uid, req.SKUID); err != nil {
			writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "removed"})
		return
	}

	m, err := readAnonCart(r)
	if err != nil {
		writeError(w, http.StatusForbidden, CodeValidation, "bad cart token")
		return
	}
	delete(m, req.SKUID)
	writeAnonCart(w, m)
	writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "removed"})
}

func (h *CartHandler) selectAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selected *bool `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Selected == nil {
		writeError(w, http.StatusForbidden, CodeValidation, "selected is required")
		return
	}

	if uid, ok := userFrom(r); ok {
		if err := h.Store.SelectAll(r.Context(), uid, *req.Selected); err != nil {
			writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "OK"})
		return
	}

	m, err := readAnonCart(r)
	if err != nil {
		writeError(w, http.StatusForbidden, CodeValidation, "bad cart token")
		return
	}
	for id, l := range m {
		l.Selected = *req.Selected
		m[id] = l
	}
	writeAnonCart(w, m)
	writeJSON(w, http.StatusOK, map[string]string{"code": CodeOK, "errmsg": "OK"})
}

func (h *CartHandler) currentMapping(w http.ResponseWriter, r *http.Request) (cart.Mapping, bool) {
	if uid, ok := userFrom(r); ok {
		m, err := h.Store.ReadAll(r.Context(), uid)
		if err != nil {
			writeError(w, http.StatusInternalServerError, CodeCommitFailure, err.Error())
			return nil, false
		}
		return m, true
	}
	m, err := readAnonCart(r)
	if err != nil {
		writeError(w, http.StatusForbidden, CodeValidation, "bad cart token")
		return nil, false
	}
	return m, true
}
