package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"nyxCloud/internal/models"
)

// Reconciler is what the subscription endpoints need from the
// reconciliation engine.
type Reconciler interface {
	SubmitSubscription(ctx context.Context, uid, skuID, token string, changeUser bool) (models.SubmitResult, error)
	Verify(ctx context.Context, skuID, token string) (models.ProviderSubscription, error)
	Sweep(ctx context.Context) error
}

type SubscriptionHandler struct {
	Service Reconciler
}

// SubmitSubscription binds a client-submitted purchase to the authenticated
// account. 201 created, 204 no-op or reassigned, 400 missing identity or
// malformed body, 401 provider rejected, 409 owned by another account.
func (h *SubscriptionHandler) SubmitSubscription(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value("uid").(string)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "Required UID")
		return
	}

	var req struct {
		SkuID         string `json:"sku_id"`
		PurchaseToken string `json:"purchase_token"`
		ChangeUser    bool   `json:"change_user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	req.SkuID = strings.TrimSpace(req.SkuID)
	req.PurchaseToken = strings.TrimSpace(req.PurchaseToken)
	if req.SkuID == "" || req.PurchaseToken == "" {
		writeError(w, http.StatusBadRequest, "sku_id and purchase_token are required")
		return
	}

	result, err := h.Service.SubmitSubscription(r.Context(), uid, req.SkuID, req.PurchaseToken, req.ChangeUser)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingIdentity):
			writeError(w, http.StatusBadRequest, "Required UID")
		case errors.Is(err, models.ErrVerificationFailed):
			writeError(w, http.StatusUnauthorized, "Failed to verify subscription, Try again!")
		case errors.Is(err, models.ErrOwnershipConflict):
			writeError(w, http.StatusConflict, "Confirm to change account to sync. Or just log in account previous used.")
		default:
			log.Printf("[subscription] submit uid=%s token_len=%d: %v", uid, len(req.PurchaseToken), err)
			writeError(w, http.StatusInternalServerError, "Failed to verify subscription, Try again!")
		}
		return
	}

	if result == models.SubmitCreated {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifySubscription returns the provider's current state for a purchase
// without mutating anything.
func (h *SubscriptionHandler) VerifySubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SkuID         string `json:"sku_id"`
		PurchaseToken string `json:"purchase_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	req.SkuID = strings.TrimSpace(req.SkuID)
	req.PurchaseToken = strings.TrimSpace(req.PurchaseToken)
	if req.SkuID == "" || req.PurchaseToken == "" {
		writeError(w, http.StatusBadRequest, "sku_id and purchase_token are required")
		return
	}

	sub, err := h.Service.Verify(r.Context(), req.SkuID, req.PurchaseToken)
	if err != nil {
		if errors.Is(err, models.ErrVerificationFailed) {
			writeError(w, http.StatusUnauthorized, "Failed to verify subscription, Try again!")
			return
		}
		log.Printf("[subscription] verify token_len=%d: %v", len(req.PurchaseToken), err)
		writeError(w, http.StatusInternalServerError, "Failed to verify subscription, Try again!")
		return
	}
	_ = json.NewEncoder(w).Encode(sub)
}

// RunSweep triggers the reconciliation sweep on demand and waits for it to
// finish.
func (h *SubscriptionHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Sweep(r.Context()); err != nil {
		log.Printf("[subscription] sweep: %v", err)
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"message": message,
	})
}
