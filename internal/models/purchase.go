package models

import "time"

// PremiumProductID is the subscription product that grants the premium
// entitlement.
const PremiumProductID = "premium"

// SubmitResult classifies how a submitted purchase token was resolved
// against the global index.
type SubmitResult int

const (
	SubmitCreated SubmitResult = iota
	SubmitAlreadyBound
	SubmitReassigned
)

// PurchaseRecord mirrors one billing-provider subscription purchase. The
// same document lives in two places: the global purchases index, keyed by
// purchase token, and the owning account's purchases subcollection. Both
// copies carry identical fields after every successful write.
type PurchaseRecord struct {
	PurchaseToken    string `firestore:"purchaseToken" json:"purchase_token"`
	OrderID          string `firestore:"orderId" json:"order_id"`
	ProductID        string `firestore:"productId" json:"product_id"`
	PackageName      string `firestore:"packageName" json:"package_name"`
	ExpiryTimeMillis int64  `firestore:"expiryTimeMillis" json:"expiry_time_millis"`
	UID              string `firestore:"uid" json:"uid"`
}

func (p PurchaseRecord) Expired(now time.Time) bool {
	return p.ExpiryTimeMillis <= now.UnixMilli()
}

// PremiumActive reports whether the given purchase set grants the premium
// entitlement: at least one premium purchase whose expiry is still ahead.
func PremiumActive(purchases []PurchaseRecord, now time.Time) bool {
	for _, p := range purchases {
		if p.ProductID == PremiumProductID && p.ExpiryTimeMillis > now.UnixMilli() {
			return true
		}
	}
	return false
}
