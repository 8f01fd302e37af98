package models

import "time"

// ProviderDomain overrides the base URL of a provider when its site moves.
type ProviderDomain struct {
	Provider  string    `bson:"provider" json:"provider"`
	BaseURL   string    `bson:"base_url" json:"baseUrl"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
