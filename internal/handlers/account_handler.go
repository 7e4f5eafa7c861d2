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

// AccountDataService serves the account-scoped data endpoints.
type AccountDataService interface {
	EncryptKey(ctx context.Context, uid string) (string, error)
	RotateEncryptKey(ctx context.Context, uid, keyHash string) error
	StorageUsage(ctx context.Context, uid string) (int64, error)
}

type AccountHandler struct {
	Service AccountDataService
}

func (h *AccountHandler) GetEncryptKey(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value("uid").(string)
	if uid == "" {
		writeError(w, http.StatusForbidden, "unauthenticated")
		return
	}
	keyHash, err := h.Service.EncryptKey(r.Context(), uid)
	if err != nil {
		log.Printf("[account] encrypt key uid=%s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "failed to load encrypt key")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"key_hash": keyHash})
}

// RotateEncryptKey swaps in a new content-encryption key identifier.
// Rotating to the key already in use is rejected with 403; otherwise the
// account's encrypted content is deleted before the new identifier is
// stored.
func (h *AccountHandler) RotateEncryptKey(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value("uid").(string)
	if uid == "" {
		writeError(w, http.StatusForbidden, "unauthenticated")
		return
	}

	var req struct {
		KeyHash string `json:"key_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	req.KeyHash = strings.TrimSpace(req.KeyHash)
	if req.KeyHash == "" {
		writeError(w, http.StatusBadRequest, "key_hash is required")
		return
	}

	if err := h.Service.RotateEncryptKey(r.Context(), uid, req.KeyHash); err != nil {
		if errors.Is(err, models.ErrSameKey) {
			writeError(w, http.StatusForbidden, "key is already in use")
			return
		}
		log.Printf("[account] rotate key uid=%s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "failed to rotate encrypt key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) GetStorageUsage(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value("uid").(string)
	if uid == "" {
		writeError(w, http.StatusForbidden, "unauthenticated")
		return
	}
	usage, err := h.Service.StorageUsage(r.Context(), uid)
	if err != nil {
		log.Printf("[account] storage usage uid=%s: %v", uid, err)
		writeError(w, http.StatusInternalServerError, "failed to compute storage usage")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int64{"usage": usage})
}
