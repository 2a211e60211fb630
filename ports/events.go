package ports

import "context"

// RedemptionEvent describes a settled redemption attempt
type RedemptionEvent struct {
	AttemptID string `json:"attempt_id"`
	Wallet    string `json:"wallet"`
	Mint      string `json:"mint"`
	Amount    string `json:"amount"`
	Succeeded bool   `json:"succeeded"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EventPublisher publishes dashboard events to other consumers
type EventPublisher interface {
	PublishLogout(ctx context.Context, walletAddress string) error
	PublishRedemption(ctx context.Context, event RedemptionEvent) error
}
