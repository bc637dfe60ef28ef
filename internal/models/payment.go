package models

// Payment is one gateway transaction, keyed by its reference.
type Payment struct {
	Reference         string  `json:"reference"`
	Kind              string  `json:"kind"`
	BookingID         string  `json:"booking_id,omitempty"`
	Email             string  `json:"email"`
	CustomerName      string  `json:"customer_name,omitempty"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	GatewayResponse   string  `json:"gateway_response,omitempty"`
	GatewayID         int64   `json:"gateway_id,omitempty"`
	AuthorizationCode string  `json:"authorization_code,omitempty"`
	Channel           string  `json:"channel,omitempty"`
	AuthorizationURL  string  `json:"authorization_url,omitempty"`
	DonationPurpose   string  `json:"donation_purpose,omitempty"`
	PaidAt            string  `json:"paid_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at,omitempty"`
}

func (p *Payment) IsTerminal() bool {
	return p.Status == TransactionSuccess || p.Status == TransactionFailed
}
