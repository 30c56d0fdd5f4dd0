// Package campaigns manages advertising campaigns. Every campaign belongs to
// a client, so client accounts only ever see their own.
package campaigns

import "time"

// Status values accepted for a campaign.
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Campaign is a client's advertising campaign.
type Campaign struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	BudgetCents int64     `json:"budgetCents"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input is the create/update payload.
type Input struct {
	ClientID    string `json:"clientId" validate:"required"`
	Name        string `json:"name" validate:"required,max=200"`
	Status      string `json:"status" validate:"omitempty,oneof=draft active paused archived"`
	BudgetCents int64  `json:"budgetCents" validate:"gte=0"`
}

// ListFilter narrows listings.
type ListFilter struct {
	ClientID string
	Status   string
}
