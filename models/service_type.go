package models

// Service is an offering in the platform catalogue. Matching selects
// providers by the service's category.
type Service struct {
	ID          string  `bson:"id" json:"id"`
	Name        string  `bson:"name" json:"name"`         // e.g., "Deep Cleaning", "Drain Repair"
	Category    string  `bson:"category" json:"category"` // e.g., "cleaning", "plumbing"
	BaseRate    float64 `bson:"base_rate" json:"base_rate"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
	Active      bool    `bson:"active" json:"active"`
}
