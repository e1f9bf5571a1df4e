package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Snapshotter persists whole-state snapshots. Load returns (nil, nil) when
// nothing has been stored yet.
type Snapshotter interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st State) error
}

// Store is the single owner of the marketplace state. Every mutation works
// on a clone and swaps it in only on success, so readers never observe a
// half-applied operation.
type Store struct {
	mu    sync.RWMutex
	state State

	snap     Snapshotter
	sink     EventSink
	creds    Credentials
	log      *zap.Logger
	now      func() time.Time
	newID    func(prefix string) string
	strict   bool
	producer string
}

type Option func(*Store)

func WithSnapshotter(sn Snapshotter) Option { return func(s *Store) { s.snap = sn } }

func WithEventSink(sink EventSink) Option { return func(s *Store) { s.sink = sink } }

func WithCredentials(c Credentials) Option { return func(s *Store) { s.creds = c } }

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithIDs(gen func(prefix string) string) Option { return func(s *Store) { s.newID = gen } }

// WithStrictOrderFlow rejects order status changes that CanTransition does
// not allow. Without it any known status can follow any other.
func WithStrictOrderFlow() Option { return func(s *Store) { s.strict = true } }

// WithProducer names the store in emitted event envelopes.
func WithProducer(name string) Option { return func(s *Store) { s.producer = name } }

// NewID returns "<prefix>-<uuid>".
func NewID(prefix string) string { return prefix + "-" + uuid.NewString() }

// Open builds a store from the configured snapshotter, falling back to the
// seeded default state when nothing usable is stored.
func Open(ctx context.Context, opts ...Option) *Store {
	s := &Store{
		creds:    PlainCredentials{},
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    NewID,
		producer: "farmlink",
	}
	for _, o := range opts {
		o(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.load(ctx); ok {
		s.state = st
		if s.upgradePasswords() > 0 {
			s.persistLocked(ctx)
		}
		return s
	}
	s.state = s.seed()
	s.persistLocked(ctx)
	return s
}

func (s *Store) load(ctx context.Context) (State, bool) {
	if s.snap == nil {
		return State{}, false
	}
	st, err := s.snap.Load(ctx)
	switch {
	case err != nil:
		s.log.Warn("snapshot unreadable, seeding defaults", zap.Error(err))
		return State{}, false
	case st == nil:
		s.log.Info("no snapshot stored, seeding defaults")
		return State{}, false
	}
	s.log.Info("snapshot loaded",
		zap.Int("users", len(st.Users)),
		zap.Int("products", len(st.Products)),
		zap.Int("orders", len(st.Orders)))
	return st.Clone(), true
}

func (s *Store) seed() State {
	st := Seed(s.now())
	for i := range st.Users {
		pw, err := s.creds.Hash(st.Users[i].Password)
		if err != nil {
			s.log.Error("hash seed password", zap.String("user_id", st.Users[i].ID), zap.Error(err))
			continue
		}
		st.Users[i].Password = pw
	}
	return st
}

// upgradePasswords hashes stored passwords the credentials do not
// recognise, so enabling hashing over a plaintext snapshot keeps logins
// working. It returns the number of users changed.
func (s *Store) upgradePasswords() int {
	rh, ok := s.creds.(rehasher)
	if !ok {
		return 0
	}
	n := 0
	for i := range s.state.Users {
		u := &s.state.Users[i]
		if !rh.NeedsRehash(u.Password) {
			continue
		}
		pw, err := s.creds.Hash(u.Password)
		if err != nil {
			s.log.Error("rehash stored password", zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		u.Password = pw
		n++
	}
	if n > 0 {
		s.log.Info("stored passwords upgraded", zap.Int("users", n))
	}
	return n
}

// Close writes a final snapshot. The store must not be used afterwards.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.Save(ctx, s.state)
}

type event struct {
	typ     string
	key     string
	payload any
}

// mutate applies fn to a clone of the state and commits it if fn succeeds.
// The save and the events that follow a commit never fail the operation.
func (s *Store) mutate(ctx context.Context, op string, fn func(st *State) ([]event, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	events, err := fn(&next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.state = next
	s.persistLocked(ctx)
	s.emit(ctx, events)
	return nil
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.snap == nil {
		return
	}
	if err := s.snap.Save(ctx, s.state); err != nil {
		s.log.Warn("snapshot save failed, continuing in memory", zap.Error(err))
	}
}

func (s *Store) emit(ctx context.Context, events []event) {
	if s.sink == nil {
		return
	}
	for _, e := range events {
		payload, err := json.Marshal(e.payload)
		if err != nil {
			s.log.Error("marshal event payload", zap.String("event_type", e.typ), zap.Error(err))
			continue
		}
		s.sink.Publish(ctx, Envelope{
			EventID:       uuid.NewString(),
			EventType:     e.typ,
			EventVersion:  1,
			OccurredAt:    s.now(),
			Producer:      s.producer,
			CorrelationID: e.key,
			Payload:       payload,
		})
	}
}

// ---- session ----

func (s *Store) Login(ctx context.Context, email, password string) (User, error) {
	var out User
	err := s.mutate(ctx, "login", func(st *State) ([]event, error) {
		key := normalizeEmail(email)
		for i := range st.Users {
			u := &st.Users[i]
			if normalizeEmail(u.Email) != key || !s.creds.Verify(u.Password, password) {
				continue
			}
			if u.Status != UserActive {
				return nil, ErrAccountInactive
			}
			st.CurrentUserID = u.ID
			out = u.clone()
			return nil, nil
		}
		return nil, ErrInvalidCredentials
	})
	return out, err
}

func (s *Store) Logout(ctx context.Context) {
	_ = s.mutate(ctx, "logout", func(st *State) ([]event, error) {
		st.CurrentUserID = ""
		return nil, nil
	})
}

// ---- users ----

// RegisterUser creates an active user and logs it in.
func (s *Store) RegisterUser(ctx context.Context, in RegisterInput) (User, error) {
	if !in.Role.Valid() {
		return User{}, fmt.Errorf("register user: %w: %q", ErrInvalidRole, in.Role)
	}
	password, err := s.creds.Hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("register user: %w", err)
	}

	var out User
	err = s.mutate(ctx, "register user", func(st *State) ([]event, error) {
		email := strings.TrimSpace(in.Email)
		for _, u := range st.Users {
			if normalizeEmail(u.Email) == normalizeEmail(email) {
				return nil, ErrDuplicateEmail
			}
		}
		u := User{
			ID:        s.newID(string(in.Role)),
			Role:      in.Role,
			Name:      in.Name,
			Email:     email,
			Password:  password,
			Status:    UserActive,
			Location:  in.Location,
			CreatedAt: s.now(),
		}
		if in.Role == RoleFarmer && len(in.Expertise) > 0 {
			u.Expertise = cloneStrings(in.Expertise)
		}
		st.Users = append(st.Users, u)
		st.CurrentUserID = u.ID
		out = u.clone()
		return []event{{EventUserRegistered, u.ID, UserRegisteredPayload{UserID: u.ID, Role: u.Role, Name: u.Name}}}, nil
	})
	return out, err
}

func (s *Store) ToggleUserStatus(ctx context.Context, userID string) (User, error) {
	var out User
	err := s.mutate(ctx, "toggle user status", func(st *State) ([]event, error) {
		i := st.userIndex(userID)
		if i < 0 {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		u := &st.Users[i]
		if u.Status == UserActive {
			u.Status = UserSuspended
		} else {
			u.Status = UserActive
		}
		out = u.clone()
		return []event{{EventUserStatusToggled, u.ID, UserStatusToggledPayload{UserID: u.ID, Status: u.Status}}}, nil
	})
	return out, err
}

// ---- products ----

// AddProduct creates a pending product owned by farmerID.
func (s *Store) AddProduct(ctx context.Context, farmerID string, in ProductInput) (Product, error) {
	if !validAmount(in.Price) || in.Stock < 0 {
		return Product{}, fmt.Errorf("add product: %w: price and stock must not be negative", ErrInvalidInput)
	}

	var out Product
	err := s.mutate(ctx, "add product", func(st *State) ([]event, error) {
		i := st.userIndex(farmerID)
		if i < 0 {
			return nil, fmt.Errorf("farmer %s: %w", farmerID, ErrNotFound)
		}
		if st.Users[i].Role != RoleFarmer {
			return nil, fmt.Errorf("%w: %s is a %s", ErrRoleMismatch, farmerID, st.Users[i].Role)
		}

		images := cloneStrings(in.Images)
		if len(images) == 0 {
			images = []string{PlaceholderImage}
		}
		p := Product{
			ID:             s.newID("product"),
			FarmerID:       farmerID,
			Name:           in.Name,
			Description:    in.Description,
			Category:       in.Category,
			Price:          in.Price,
			Stock:          in.Stock,
			Unit:           in.Unit,
			LastUpdated:    s.now(),
			Status:         ProductPending,
			Images:         images,
			ValueAdd:       nonNil(in.ValueAdd),
			Certifications: nonNil(in.Certifications),
		}
		st.Products = append([]Product{p}, st.Products...)
		out = p.clone()
		return []event{{EventProductAdded, p.ID, productPayload(p)}}, nil
	})
	return out, err
}

// UpdateProduct merges the non-nil fields of patch into the product.
func (s *Store) UpdateProduct(ctx context.Context, productID string, patch ProductPatch) (Product, error) {
	var out Product
	err := s.mutate(ctx, "update product", func(st *State) ([]event, error) {
		i := st.productIndex(productID)
		if i < 0 {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		p := &st.Products[i]
		if err := patch.apply(p); err != nil {
			return nil, err
		}
		out = p.clone()
		return []event{{EventProductUpdated, p.ID, productPayload(*p)}}, nil
	})
	return out, err
}

// DeleteProduct removes the product and every order referencing it.
// Feedback is append-only and is left in place.
func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	return s.mutate(ctx, "delete product", func(st *State) ([]event, error) {
		i := st.productIndex(productID)
		if i < 0 {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		removed := st.Products[i]
		st.Products = append(st.Products[:i], st.Products[i+1:]...)

		var removedOrders []string
		kept := st.Orders[:0]
		for _, o := range st.Orders {
			if o.ProductID == productID {
				removedOrders = append(removedOrders, o.ID)
				continue
			}
			kept = append(kept, o)
		}
		st.Orders = kept
		return []event{{EventProductDeleted, productID, ProductDeletedPayload{
			ProductID:       productID,
			FarmerID:        removed.FarmerID,
			RemovedOrderIDs: removedOrders,
		}}}, nil
	})
}

// ApproveProduct records the admin review outcome: approved or
// revision_required.
func (s *Store) ApproveProduct(ctx context.Context, productID string, status ProductStatus) (Product, error) {
	if status != ProductApproved && status != ProductRevisionRequired {
		return Product{}, fmt.Errorf("approve product: %w: %q", ErrInvalidStatus, status)
	}
	var out Product
	err := s.mutate(ctx, "approve product", func(st *State) ([]event, error) {
		i := st.productIndex(productID)
		if i < 0 {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		p := &st.Products[i]
		p.Status = status
		out = p.clone()
		return []event{{EventProductReviewed, p.ID, productPayload(*p)}}, nil
	})
	return out, err
}

// ---- orders ----

// PlaceOrder creates a pending order and debits the product stock in the
// same commit.
func (s *Store) PlaceOrder(ctx context.Context, buyerID string, in OrderInput) (Order, error) {
	var out Order
	err := s.mutate(ctx, "place order", func(st *State) ([]event, error) {
		i := st.productIndex(in.ProductID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, in.ProductID)
		}
		p := &st.Products[i]
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, in.Quantity)
		}
		if in.Quantity > p.Stock {
			return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, in.Quantity, p.Stock)
		}

		now := s.now()
		o := Order{
			ID:         s.newID("order"),
			BuyerID:    buyerID,
			ProductID:  p.ID,
			FarmerID:   p.FarmerID,
			Quantity:   in.Quantity,
			TotalPrice: LineTotal(p.Price, in.Quantity),
			Status:     OrderPending,
			CreatedAt:  now,
			UpdatedAt:  now,
			Notes:      in.Notes,
		}
		st.Orders = append([]Order{o}, st.Orders...)
		p.Stock -= in.Quantity
		p.LastUpdated = now

		out = o
		return []event{{EventOrderPlaced, o.ID, OrderPlacedPayload{
			OrderID:        o.ID,
			BuyerID:        o.BuyerID,
			FarmerID:       o.FarmerID,
			ProductID:      o.ProductID,
			Quantity:       o.Quantity,
			TotalPrice:     o.TotalPrice,
			RemainingStock: p.Stock,
		}}}, nil
	})
	return out, err
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (Order, error) {
	if !status.Valid() {
		return Order{}, fmt.Errorf("update order status: %w: %q", ErrInvalidStatus, status)
	}
	var out Order
	err := s.mutate(ctx, "update order status", func(st *State) ([]event, error) {
		i := st.orderIndex(orderID)
		if i < 0 {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		o := &st.Orders[i]
		from := o.Status
		if s.strict && !CanTransition(from, status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
		}
		o.Status = status
		o.UpdatedAt = s.now()
		out = *o
		return []event{{EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
			OrderID:  o.ID,
			BuyerID:  o.BuyerID,
			FarmerID: o.FarmerID,
			From:     from,
			To:       status,
		}}}, nil
	})
	return out, err
}

// ---- feedback ----

// AddFeedback records a rating. The referenced order is not checked.
func (s *Store) AddFeedback(ctx context.Context, in FeedbackInput) (Feedback, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return Feedback{}, fmt.Errorf("add feedback: %w: got %d", ErrInvalidRating, in.Rating)
	}
	var out Feedback
	err := s.mutate(ctx, "add feedback", func(st *State) ([]event, error) {
		f := Feedback{
			ID:        s.newID("feedback"),
			OrderID:   in.OrderID,
			BuyerID:   in.BuyerID,
			FarmerID:  in.FarmerID,
			Rating:    in.Rating,
			Comment:   in.Comment,
			CreatedAt: s.now(),
		}
		st.Feedback = append([]Feedback{f}, st.Feedback...)
		out = f
		return []event{{EventFeedbackAdded, f.ID, FeedbackAddedPayload{
			FeedbackID: f.ID,
			OrderID:    f.OrderID,
			BuyerID:    f.BuyerID,
			FarmerID:   f.FarmerID,
			Rating:     f.Rating,
		}}}, nil
	})
	return out, err
}

// ---- reads ----

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// CurrentUser resolves the session reference. A reference to a user that no
// longer exists reads as logged out.
func (s *Store) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentUserID == "" {
		return User{}, false
	}
	i := s.state.userIndex(s.state.CurrentUserID)
	if i < 0 {
		return User{}, false
	}
	return s.state.Users[i].clone(), true
}

func (s *Store) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.userIndex(id)
	if i < 0 {
		return User{}, false
	}
	return s.state.Users[i].clone(), true
}

func (s *Store) Product(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.productIndex(id)
	if i < 0 {
		return Product{}, false
	}
	return s.state.Products[i].clone(), true
}

func (s *Store) Order(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.orderIndex(id)
	if i < 0 {
		return Order{}, false
	}
	return s.state.Orders[i], true
}

// ---- helpers ----

// LineTotal is quantity × price rounded to cents.
func LineTotal(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

func (p ProductPatch) apply(dst *Product) error {
	if p.Price != nil && !validAmount(*p.Price) {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if p.Stock != nil && *p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}

	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
	if p.Unit != nil {
		dst.Unit = *p.Unit
	}
	if p.Images != nil {
		dst.Images = cloneStrings(*p.Images)
	}
	if p.ValueAdd != nil {
		dst.ValueAdd = nonNil(*p.ValueAdd)
	}
	if p.Certifications != nil {
		dst.Certifications = nonNil(*p.Certifications)
	}
	if p.Status != nil {
		dst.Status = *p.Status
	}
	if p.LastUpdated != nil {
		dst.LastUpdated = p.LastUpdated.UTC()
	}
	return nil
}

func productPayload(p Product) ProductPayload {
	return ProductPayload{ProductID: p.ID, FarmerID: p.FarmerID, Name: p.Name, Status: p.Status, Stock: p.Stock}
}

func (u User) clone() User {
	u.Expertise = cloneStrings(u.Expertise)
	return u
}

func (st State) userIndex(id string) int {
	for i := range st.Users {
		if st.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (st State) productIndex(id string) int {
	for i := range st.Products {
		if st.Products[i].ID == id {
			return i
		}
	}
	return -1
}

func (st State) orderIndex(id string) int {
	for i := range st.Orders {
		if st.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validAmount(v float64) bool { return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v) }

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}
