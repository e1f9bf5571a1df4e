package market

import "time"

const (
	PlaceholderImage = "https://images.unsplash.com/photo-1504674900247-0877df9cc836?auto=format&fit=crop&w=800&q=80"
	day              = 24 * time.Hour
)

// Seed returns the default state used on first run or when the persisted
// snapshot is missing or unreadable. Timestamps are relative to now.
func Seed(now time.Time) State {
	return State{
		Users: []User{
			{
				ID:        "admin-1",
				Role:      RoleAdmin,
				Name:      "Bhargav Teja",
				Email:     "2400030791@kluniversity.in",
				Password:  "bhargav",
				Status:    UserActive,
				Location:  "Global Operations",
				CreatedAt: now,
			},
			{
				ID:        "farmer-1",
				Role:      RoleFarmer,
				Name:      "Sohail",
				Email:     "2400080026@kluniversity.in",
				Password:  "farmer123",
				Status:    UserActive,
				Location:  "Gujarat, India",
				CreatedAt: now.Add(-12 * day),
				Expertise: []string{"Millets", "Value-added snacks"},
			},
			{
				ID:        "farmer-2",
				Role:      RoleFarmer,
				Name:      "Bharath",
				Email:     "2400033014@kluniversity.in",
				Password:  "farmer123",
				Status:    UserActive,
				Location:  "Ashanti, Ghana",
				CreatedAt: now.Add(-32 * day),
				Expertise: []string{"Cocoa", "Artisanal chocolate"},
			},
			{
				ID:        "buyer-1",
				Role:      RoleBuyer,
				Name:      "Global Organic Foods",
				Email:     "2300031957@kluniversity.in",
				Password:  "buyer123",
				Status:    UserActive,
				Location:  "Berlin, Germany",
				CreatedAt: now.Add(-6 * day),
			},
			{
				ID:        "buyer-2",
				Role:      RoleBuyer,
				Name:      "Artisan Market Collective",
				Email:     "2400080018@kluniversity.in",
				Password:  "buyer123",
				Status:    UserActive,
				Location:  "Austin, USA",
				CreatedAt: now.Add(-18 * day),
			},
		},
		Products: []Product{
			{
				ID:             "product-1",
				FarmerID:       "farmer-1",
				Name:           "Spiced Pearl Millet Snack Mix",
				Description:    "Hand-roasted pearl millet clusters infused with regional spices, ready for international shipping.",
				Category:       "Processed Foods",
				Price:          14.5,
				Stock:          220,
				Unit:           "packs",
				LastUpdated:    now.Add(-5 * time.Hour),
				Status:         ProductApproved,
				Images:         []string{"https://images.unsplash.com/photo-1511690656952-34342bb7c2f2?auto=format&fit=crop&w=800&q=80"},
				ValueAdd:       []string{"Cold-pressed oil coating", "Dehydrated herbs infusion"},
				Certifications: []string{"Organic Certified", "Fair Trade Compliant"},
			},
			{
				ID:             "product-2",
				FarmerID:       "farmer-2",
				Name:           "Single-Origin Cocoa Nibs",
				Description:    "Stone-ground cocoa nibs with traceable origin, ideal for bean-to-bar chocolate makers.",
				Category:       "Artisan Ingredients",
				Price:          19.75,
				Stock:          120,
				Unit:           "kg",
				LastUpdated:    now.Add(-2 * day),
				Status:         ProductApproved,
				Images:         []string{"https://images.unsplash.com/photo-1470337458703-46ad1756a187?auto=format&fit=crop&w=800&q=80"},
				ValueAdd:       []string{"Solar fermentation", "Hand-sorted beans"},
				Certifications: []string{"Rainforest Alliance", "HACCP"},
			},
		},
		Orders: []Order{
			{
				ID:         "order-1",
				BuyerID:    "buyer-1",
				ProductID:  "product-2",
				FarmerID:   "farmer-2",
				Quantity:   45,
				TotalPrice: 888.75,
				Status:     OrderInTransit,
				CreatedAt:  now.Add(-4 * day),
				UpdatedAt:  now.Add(-12 * time.Hour),
				Notes:      "Require moisture-proof packaging",
			},
			{
				ID:         "order-2",
				BuyerID:    "buyer-2",
				ProductID:  "product-1",
				FarmerID:   "farmer-1",
				Quantity:   150,
				TotalPrice: 2175,
				Status:     OrderDelivered,
				CreatedAt:  now.Add(-20 * day),
				UpdatedAt:  now.Add(-10 * day),
				Notes:      "Interested in exclusive flavor collaboration",
			},
		},
		Feedback: []Feedback{
			{
				ID:        "feedback-1",
				OrderID:   "order-2",
				BuyerID:   "buyer-2",
				FarmerID:  "farmer-1",
				Rating:    5,
				Comment:   "Exceptional flavor and packaging. Our customers love the story behind this product.",
				CreatedAt: now.Add(-8 * day),
			},
		},
	}
}
