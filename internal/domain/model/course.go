package model

// Course is the pricing view of a course used by checkout.
type Course struct {
	ID            string
	Title         string
	PriceUSDCents int64
	IsActive      bool
}

// Purchasable reports whether the course can be part of a checkout.
func (c *Course) Purchasable() bool {
	return c != nil && c.IsActive && c.PriceUSDCents >= 0
}

// CheckoutIntent is what the student receives after checkout.
type CheckoutIntent struct {
	PaymentID        string `json:"paymentId"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	ActivationCode   string `json:"activationCode"`
	RedirectURL      string `json:"redirectUrl"`
	InstructionsText string `json:"instructionsText"`
}
