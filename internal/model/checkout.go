package model

import "time"

// CheckoutStep is the position in the three-step checkout flow.
type CheckoutStep int

const (
	StepChoosePlan     CheckoutStep = 1
	StepConfirmAndPay  CheckoutStep = 2
	StepActivateAndUse CheckoutStep = 3
)

// CheckoutSession is the ephemeral state of one checkout flow. Sessions
// live in a TTL store and are never written to durable storage.
type CheckoutSession struct {
	ID            string       `json:"id"`
	Step          CheckoutStep `json:"step"`
	CountrySlug   string       `json:"country_slug"`
	Bundle        *BundleOffer `json:"bundle,omitempty"`
	CouponCode    string       `json:"coupon_code,omitempty"`
	UserID        string       `json:"user_id,omitempty"`
	Authenticated bool         `json:"authenticated"`
	OrderID       string       `json:"order_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
