package models

import "time"

type PaymentMethod struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	Type       string            `json:"type"` // bank_transfer|paypal|...
	Label      string            `json:"label"`
	Details    map[string]string `json:"details"`
	IsDefault  bool              `json:"is_default"`
	Verified   bool              `json:"verified"`
	CreatedAt  time.Time         `json:"created_at"`
}
