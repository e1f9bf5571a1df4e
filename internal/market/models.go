package market

import "time"

type User struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"` // plaintext unless BcryptCredentials is configured
	Status    UserStatus `json:"status"`
	Location  string     `json:"location"`
	CreatedAt time.Time  `json:"createdAt"`
	Expertise []string   `json:"expertise,omitempty"` // farmers only
}

type Product struct {
	ID             string        `json:"id"`
	FarmerID       string        `json:"farmerId"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Price          float64       `json:"price"`
	Stock          int           `json:"stock"`
	Unit           string        `json:"unit"`
	LastUpdated    time.Time     `json:"lastUpdated"`
	Status         ProductStatus `json:"status"`
	Images         []string      `json:"images"`
	ValueAdd       []string      `json:"valueAdd"`
	Certifications []string      `json:"certifications"`
}

type Order struct {
	ID         string      `json:"id"`
	BuyerID    string      `json:"buyerId"`
	ProductID  string      `json:"productId"`
	FarmerID   string      `json:"farmerId"` // copied from the product at creation
	Quantity   int         `json:"quantity"`
	TotalPrice float64     `json:"totalPrice"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Notes      string      `json:"notes"`
}

type Feedback struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	BuyerID   string    `json:"buyerId"`
	FarmerID  string    `json:"farmerId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// State is the complete snapshot owned by a Store. Its JSON form is what
// snapshotters persist.
type State struct {
	CurrentUserID string     `json:"currentUserId"`
	Users         []User     `json:"users"`
	Products      []Product  `json:"products"`
	Orders        []Order    `json:"orders"`
	Feedback      []Feedback `json:"feedback"`
}

// Clone returns a deep copy; no slice is shared with s.
func (s State) Clone() State {
	out := State{
		CurrentUserID: s.CurrentUserID,
		Users:         make([]User, len(s.Users)),
		Products:      make([]Product, len(s.Products)),
		Orders:        append([]Order(nil), s.Orders...),
		Feedback:      append([]Feedback(nil), s.Feedback...),
	}
	for i, u := range s.Users {
		u.Expertise = cloneStrings(u.Expertise)
		out.Users[i] = u
	}
	for i, p := range s.Products {
		out.Products[i] = p.clone()
	}
	if out.Orders == nil {
		out.Orders = []Order{}
	}
	if out.Feedback == nil {
		out.Feedback = []Feedback{}
	}
	return out
}

func (p Product) clone() Product {
	p.Images = cloneStrings(p.Images)
	p.ValueAdd = cloneStrings(p.ValueAdd)
	p.Certifications = cloneStrings(p.Certifications)
	return p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

// Input types for the store operations.

type RegisterInput struct {
	Role      Role     `json:"role"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Location  string   `json:"location"`
	Expertise []string `json:"expertise,omitempty"`
}

type ProductInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Price          float64  `json:"price"`
	Stock          int      `json:"stock"`
	Unit           string   `json:"unit"`
	Images         []string `json:"images"`
	ValueAdd       []string `json:"valueAdd"`
	Certifications []string `json:"certifications"`
}

// ProductPatch is a partial update: nil fields are left untouched.
type ProductPatch struct {
	Name           *string        `json:"name,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Category       *string        `json:"category,omitempty"`
	Price          *float64       `json:"price,omitempty"`
	Stock          *int           `json:"stock,omitempty"`
	Unit           *string        `json:"unit,omitempty"`
	Images         *[]string      `json:"images,omitempty"`
	ValueAdd       *[]string      `json:"valueAdd,omitempty"`
	Certifications *[]string      `json:"certifications,omitempty"`
	Status         *ProductStatus `json:"status,omitempty"`
	LastUpdated    *time.Time     `json:"lastUpdated,omitempty"`
}

type OrderInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

type FeedbackInput struct {
	OrderID  string `json:"orderId"`
	BuyerID  string `json:"buyerId"`
	FarmerID string `json:"farmerId"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}
