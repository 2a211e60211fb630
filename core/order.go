package core

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Order is a tokenization or redemption order tracked by the backend
type Order struct {
	OrderID                  string   `json:"orderId"`
	OrderType                string   `json:"orderType"`
	Wallet                   string   `json:"wallet"`
	PuroAccountNumber        *string  `json:"puroAccountNumber,omitempty"`
	ReceivedAmount           *float64 `json:"receivedAmount,omitempty"`
	PuroIncomingTxID         *string  `json:"puroIncomingTxId,omitempty"`
	CertificateID            *string  `json:"certificateId,omitempty"`
	MintSignature            *string  `json:"mintSignature,omitempty"`
	PuroInternalTransferTxID *string  `json:"puroInternalTransferTxId,omitempty"`
	ErrorMessage             *string  `json:"errorMessage,omitempty"`
	Vintage                  *float64 `json:"vintage,omitempty"`
	MethodologyName          *string  `json:"methodologyName,omitempty"`
	Status                   string   `json:"status"`
	ExpiresAt                *string  `json:"expiresAt,omitempty"`
	CreatedAt                *string  `json:"createdAt,omitempty"`
	UpdatedAt                *string  `json:"updatedAt,omitempty"`
}

// OrderItems accepts either a single order object or an array of orders
type OrderItems []Order

// UnmarshalJSON normalizes a single order into a one-element slice
func (o *OrderItems) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single Order
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*o = OrderItems{single}
		return nil
	}

	var many []Order
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return err
	}
	*o = many
	return nil
}

// GroupedOrder groups orders sharing one incoming Puro transaction
type GroupedOrder struct {
	PuroIncomingTxID  *string    `json:"puroIncomingTxId,omitempty"`
	Status            string     `json:"status"`
	Wallet            string     `json:"wallet"`
	PuroAccountNumber *string    `json:"puroAccountNumber,omitempty"`
	CreatedAt         *string    `json:"createdAt,omitempty"`
	UpdatedAt         *string    `json:"updatedAt,omitempty"`
	Items             OrderItems `json:"items"`
}

// StatusClass is the display classification of a free-form order status
type StatusClass string

const (
	StatusClassSuccess StatusClass = "success"
	StatusClassFailure StatusClass = "failure"
	StatusClassOther   StatusClass = "other"
)

// ClassifyStatus maps a backend status onto a display class, case-insensitively
func ClassifyStatus(status string) StatusClass {
	switch strings.ToLower(status) {
	case "completed", "success":
		return StatusClassSuccess
	case "failed", "error":
		return StatusClassFailure
	default:
		return StatusClassOther
	}
}
