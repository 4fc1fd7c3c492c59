package domain

// Product is a catalog record as served to storefront clients.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
}
