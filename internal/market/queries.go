package market

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Read-side views over a State value. All of them scan linearly.

type CatalogFilter struct {
	Search   string
	Category string // empty means every category
}

// Catalog lists approved products matching the filter.
func (st State) Catalog(f CatalogFilter) []Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []Product{}
	for _, p := range st.Products {
		if p.Status != ProductApproved {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p.clone())
	}
	return out
}

// Categories returns the distinct categories of approved products in
// first-seen order.
func (st State) Categories() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range st.Products {
		if p.Status != ProductApproved || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

func (st State) PendingProducts() []Product {
	return st.filterProducts(func(p Product) bool { return p.Status == ProductPending })
}

func (st State) ProductsByFarmer(farmerID string) []Product {
	return st.filterProducts(func(p Product) bool { return p.FarmerID == farmerID })
}

func (st State) OrdersByBuyer(buyerID string) []Order {
	return st.filterOrders(func(o Order) bool { return o.BuyerID == buyerID })
}

func (st State) OrdersByFarmer(farmerID string) []Order {
	return st.filterOrders(func(o Order) bool { return o.FarmerID == farmerID })
}

// OrdersWithStatus filters by status; an empty status returns every order.
func (st State) OrdersWithStatus(status OrderStatus) []Order {
	return st.filterOrders(func(o Order) bool { return status == "" || o.Status == status })
}

func (st State) FeedbackForFarmer(farmerID string) []Feedback {
	out := []Feedback{}
	for _, f := range st.Feedback {
		if f.FarmerID == farmerID {
			out = append(out, f)
		}
	}
	return out
}

// UsersWithRole filters by role; an empty role returns every user.
func (st State) UsersWithRole(role Role) []User {
	out := []User{}
	for _, u := range st.Users {
		if role == "" || u.Role == role {
			out = append(out, u.clone())
		}
	}
	return out
}

type AdminSummary struct {
	GrossVolume     float64 `json:"grossVolume"`
	Farmers         int     `json:"farmers"`
	Buyers          int     `json:"buyers"`
	ActiveFarmers   int     `json:"activeFarmers"`
	SuspendedUsers  int     `json:"suspendedUsers"`
	PendingProducts int     `json:"pendingProducts"`
}

func (st State) AdminSummary() AdminSummary {
	var sum AdminSummary
	gmv := decimal.Zero
	for _, o := range st.Orders {
		gmv = gmv.Add(decimal.NewFromFloat(o.TotalPrice))
	}
	sum.GrossVolume = gmv.Round(2).InexactFloat64()
	for _, u := range st.Users {
		switch u.Role {
		case RoleFarmer:
			sum.Farmers++
			if u.Status == UserActive {
				sum.ActiveFarmers++
			}
		case RoleBuyer:
			sum.Buyers++
		}
		if u.Status == UserSuspended {
			sum.SuspendedUsers++
		}
	}
	sum.PendingProducts = len(st.PendingProducts())
	return sum
}

type FarmerSummary struct {
	FarmerID         string  `json:"farmerId"`
	Products         int     `json:"products"`
	Orders           int     `json:"orders"`
	DeliveredRevenue float64 `json:"deliveredRevenue"`
	AverageRating    float64 `json:"averageRating"` // 0 when unrated
	Ratings          int     `json:"ratings"`
}

func (st State) FarmerSummary(farmerID string) FarmerSummary {
	sum := FarmerSummary{FarmerID: farmerID}
	sum.Products = len(st.ProductsByFarmer(farmerID))

	revenue := decimal.Zero
	for _, o := range st.OrdersByFarmer(farmerID) {
		sum.Orders++
		if o.Status == OrderDelivered {
			revenue = revenue.Add(decimal.NewFromFloat(o.TotalPrice))
		}
	}
	sum.DeliveredRevenue = revenue.Round(2).InexactFloat64()

	total := 0
	for _, f := range st.FeedbackForFarmer(farmerID) {
		sum.Ratings++
		total += f.Rating
	}
	if sum.Ratings > 0 {
		sum.AverageRating = decimal.NewFromInt(int64(total)).
			Div(decimal.NewFromInt(int64(sum.Ratings))).
			Round(2).
			InexactFloat64()
	}
	return sum
}

type TechniqueCount struct {
	Technique string `json:"technique"`
	Products  int    `json:"products"`
}

type Insights struct {
	DeliveredOrders int              `json:"deliveredOrders"`
	ExportValue     float64          `json:"exportValue"`
	AverageTicket   float64          `json:"averageTicket"`
	TopTechniques   []TechniqueCount `json:"topTechniques"`
}

// Insights summarises delivered trade and the most used value-add
// techniques, keeping at most limit techniques (limit <= 0 keeps all).
func (st State) Insights(limit int) Insights {
	var in Insights
	value := decimal.Zero
	for _, o := range st.Orders {
		if o.Status != OrderDelivered {
			continue
		}
		in.DeliveredOrders++
		value = value.Add(decimal.NewFromFloat(o.TotalPrice))
	}
	in.ExportValue = value.Round(2).InexactFloat64()
	divisor := int64(in.DeliveredOrders)
	if divisor == 0 {
		divisor = 1
	}
	in.AverageTicket = value.Div(decimal.NewFromInt(divisor)).Round(2).InexactFloat64()

	counts := map[string]int{}
	for _, p := range st.Products {
		for _, t := range p.ValueAdd {
			counts[t]++
		}
	}
	in.TopTechniques = make([]TechniqueCount, 0, len(counts))
	for t, n := range counts {
		in.TopTechniques = append(in.TopTechniques, TechniqueCount{Technique: t, Products: n})
	}
	sort.Slice(in.TopTechniques, func(i, j int) bool {
		a, b := in.TopTechniques[i], in.TopTechniques[j]
		if a.Products != b.Products {
			return a.Products > b.Products
		}
		return a.Technique < b.Technique
	})
	if limit > 0 && len(in.TopTechniques) > limit {
		in.TopTechniques = in.TopTechniques[:limit]
	}
	return in
}

func (st State) filterProducts(keep func(Product) bool) []Product {
	out := []Product{}
	for _, p := range st.Products {
		if keep(p) {
			out = append(out, p.clone())
		}
	}
	return out
}

func (st State) filterOrders(keep func(Order) bool) []Order {
	out := []Order{}
	for _, o := range st.Orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}
