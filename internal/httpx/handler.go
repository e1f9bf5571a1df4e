package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/ariefcatur/go-farmlink/internal/notify"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FeedReader serves GET /notifications when configured.
type FeedReader interface {
	Feed(ctx context.Context, userID string) ([]notify.Notification, error)
}

type Handler struct {
	Store *market.Store
	Feeds FeedReader
	Log   *zap.Logger
}

var (
	errLoginRequired = errors.New("login required")
	errForbidden     = errors.New("not allowed for this account")
)

func (h *Handler) Register(r chi.Router) {
	admin := h.require(market.RoleAdmin)
	farmer := h.require(market.RoleFarmer)
	buyer := h.require(market.RoleBuyer)
	seller := h.require(market.RoleFarmer, market.RoleAdmin)
	anyone := h.require()

	r.Get("/session", h.getSession)
	r.Post("/session", h.login)
	r.Delete("/session", h.logout)

	r.Post("/users", h.register)
	r.With(admin).Get("/users", h.listUsers)
	r.With(admin).Post("/users/{id}/toggle-status", h.toggleUser)

	r.Get("/products", h.catalog)
	r.Get("/products/categories", h.categories)
	r.With(admin).Get("/products/pending", h.pendingProducts)
	r.With(farmer).Post("/products", h.addProduct)
	r.With(seller).Patch("/products/{id}", h.updateProduct)
	r.With(seller).Delete("/products/{id}", h.deleteProduct)
	r.With(admin).Post("/products/{id}/review", h.reviewProduct)

	r.With(anyone).Get("/orders", h.listOrders)
	r.With(buyer).Post("/orders", h.placeOrder)
	r.With(seller).Patch("/orders/{id}/status", h.updateOrderStatus)

	r.Get("/feedback", h.listFeedback)
	r.With(buyer).Post("/feedback", h.addFeedback)

	r.With(admin).Get("/stats/admin", h.adminStats)
	r.Get("/stats/farmers/{id}", h.farmerStats)
	r.Get("/insights", h.insights)

	if h.Feeds != nil {
		r.With(anyone).Get("/notifications", h.notifications)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log().Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrInvalidCredentials), errors.Is(err, errLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, market.ErrAccountInactive), errors.Is(err, market.ErrRoleMismatch), errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, market.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, market.ErrInsufficientStock),
		errors.Is(err, market.ErrInvalidQuantity),
		errors.Is(err, market.ErrInvalidInput),
		errors.Is(err, market.ErrInvalidRole),
		errors.Is(err, market.ErrInvalidStatus),
		errors.Is(err, market.ErrInvalidRating),
		errors.Is(err, market.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

type ctxKey struct{}

// require admits the current user if their role is listed. No roles means
// any logged-in user.
func (h *Handler) require(roles ...market.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := h.Store.CurrentUser()
			if !ok {
				h.writeErr(w, r, errLoginRequired)
				return
			}
			if u.Status != market.UserActive {
				h.writeErr(w, r, market.ErrAccountInactive)
				return
			}
			if len(roles) > 0 && !hasRole(u.Role, roles) {
				h.writeErr(w, r, errForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
		})
	}
}

func hasRole(r market.Role, roles []market.Role) bool {
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func currentUser(r *http.Request) market.User {
	u, _ := r.Context().Value(ctxKey{}).(market.User)
	return u
}

func (h *Handler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// userView is a User without its stored password.
type userView struct {
	ID        string            `json:"id"`
	Role      market.Role       `json:"role"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Status    market.UserStatus `json:"status"`
	Location  string            `json:"location"`
	CreatedAt time.Time         `json:"createdAt"`
	Expertise []string          `json:"expertise,omitempty"`
}

func viewUser(u market.User) userView {
	return userView{
		ID:        u.ID,
		Role:      u.Role,
		Name:      u.Name,
		Email:     u.Email,
		Status:    u.Status,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
		Expertise: u.Expertise,
	}
}

func viewUsers(us []market.User) []userView {
	out := make([]userView, 0, len(us))
	for _, u := range us {
		out = append(out, viewUser(u))
	}
	return out
}
