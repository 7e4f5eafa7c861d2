package models

// ProviderSubscription is the authoritative subscription state returned by
// the billing provider for a (package, product, token) triple.
type ProviderSubscription struct {
	OrderID          string `json:"order_id"`
	ExpiryTimeMillis int64  `json:"expiry_time_millis"`
	AutoRenewing     bool   `json:"auto_renewing"`
}
