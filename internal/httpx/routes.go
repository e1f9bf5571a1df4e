package httpx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/go-chi/chi/v5"
)

const insightsLimit = 5

// ---- session ----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Store.CurrentUser()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": viewUser(u)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Store.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": viewUser(u)})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.Store.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ---- users ----

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in market.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		h.writeErr(w, r, fmt.Errorf("%w: name, email and password are required", market.ErrInvalidInput))
		return
	}
	u, err := h.Store.RegisterUser(r.Context(), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewUser(u))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	role := market.Role(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		h.writeErr(w, r, fmt.Errorf("%w: %q", market.ErrInvalidRole, role))
		return
	}
	writeJSON(w, http.StatusOK, viewUsers(h.Store.Snapshot().UsersWithRole(role)))
}

func (h *Handler) toggleUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.ToggleUserStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewUser(u))
}

// ---- products ----

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.Store.Snapshot().Catalog(market.CatalogFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}))
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().Categories())
}

func (h *Handler) pendingProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().PendingProducts())
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var in market.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.Store.AddProduct(r.Context(), currentUser(r).ID, in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ownsProduct lets admins through and farmers only for their own listings.
func (h *Handler) ownsProduct(r *http.Request, id string) error {
	u := currentUser(r)
	if u.Role == market.RoleAdmin {
		return nil
	}
	p, ok := h.Store.Product(id)
	if !ok {
		return fmt.Errorf("%w: %s", market.ErrProductNotFound, id)
	}
	if p.FarmerID != u.ID {
		return errForbidden
	}
	return nil
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch market.ProductPatch
	if !decode(w, r, &patch) {
		return
	}
	if err := h.ownsProduct(r, id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if currentUser(r).Role != market.RoleAdmin {
		// farmers may only resubmit for review
		if patch.Status != nil && *patch.Status != market.ProductPending {
			h.writeErr(w, r, errForbidden)
			return
		}
		if editsListing(patch) {
			pending := market.ProductPending
			patch.Status = &pending
		}
	}
	p, err := h.Store.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// editsListing reports whether a patch changes what buyers see. Restocking
// alone does not send a product back to review.
func editsListing(p market.ProductPatch) bool {
	return p.Name != nil || p.Description != nil || p.Category != nil ||
		p.Price != nil || p.Unit != nil || p.Images != nil ||
		p.ValueAdd != nil || p.Certifications != nil
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ownsProduct(r, id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if err := h.Store.DeleteProduct(r.Context(), id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewReq struct {
	Status market.ProductStatus `json:"status"`
}

func (h *Handler) reviewProduct(w http.ResponseWriter, r *http.Request) {
	var req reviewReq
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Store.ApproveProduct(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ---- orders ----

// listOrders scopes the list to the caller: buyers see what they bought,
// farmers what they sold, admins everything.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	status := market.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.writeErr(w, r, fmt.Errorf("%w: %q", market.ErrInvalidStatus, status))
		return
	}
	u := currentUser(r)
	st := h.Store.Snapshot()

	var scoped []market.Order
	switch u.Role {
	case market.RoleBuyer:
		scoped = st.OrdersByBuyer(u.ID)
	case market.RoleFarmer:
		scoped = st.OrdersByFarmer(u.ID)
	default:
		scoped = st.Orders
	}
	out := []market.Order{}
	for _, o := range scoped {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var in market.OrderInput
	if !decode(w, r, &in) {
		return
	}
	o, err := h.Store.PlaceOrder(r.Context(), currentUser(r).ID, in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

type orderStatusReq struct {
	Status market.OrderStatus `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req orderStatusReq
	if !decode(w, r, &req) {
		return
	}
	u := currentUser(r)
	if u.Role == market.RoleFarmer {
		o, ok := h.Store.Order(id)
		if !ok {
			h.writeErr(w, r, fmt.Errorf("order %s: %w", id, market.ErrNotFound))
			return
		}
		if o.FarmerID != u.ID {
			h.writeErr(w, r, errForbidden)
			return
		}
	}
	o, err := h.Store.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ---- feedback ----

func (h *Handler) listFeedback(w http.ResponseWriter, r *http.Request) {
	st := h.Store.Snapshot()
	if farmerID := r.URL.Query().Get("farmerId"); farmerID != "" {
		writeJSON(w, http.StatusOK, st.FeedbackForFarmer(farmerID))
		return
	}
	writeJSON(w, http.StatusOK, st.Feedback)
}

type feedbackReq struct {
	OrderID string `json:"orderId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) addFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackReq
	if !decode(w, r, &req) {
		return
	}
	u := currentUser(r)
	o, ok := h.Store.Order(req.OrderID)
	if !ok {
		h.writeErr(w, r, fmt.Errorf("order %s: %w", req.OrderID, market.ErrNotFound))
		return
	}
	if o.BuyerID != u.ID {
		h.writeErr(w, r, errForbidden)
		return
	}
	f, err := h.Store.AddFeedback(r.Context(), market.FeedbackInput{
		OrderID:  o.ID,
		BuyerID:  u.ID,
		FarmerID: o.FarmerID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// ---- stats ----

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().AdminSummary())
}

func (h *Handler) farmerStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if u, ok := h.Store.User(id); !ok || u.Role != market.RoleFarmer {
		h.writeErr(w, r, fmt.Errorf("farmer %s: %w", id, market.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, h.Store.Snapshot().FarmerSummary(id))
}

func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot().Insights(insightsLimit))
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	feed, err := h.Feeds.Feed(r.Context(), currentUser(r).ID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}
