package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	androidpublisher "google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"nyxCloud/internal/models"
)

type PlayBillingConfig struct {
	PackageName        string
	ServiceAccountFile string
}

// PlayBillingService queries Google Play for the authoritative state of a
// subscription purchase.
type PlayBillingService struct {
	cfg PlayBillingConfig
	svc *androidpublisher.Service
}

func NewPlayBillingService(cfg PlayBillingConfig) (*PlayBillingService, error) {
	cfg.PackageName = strings.TrimSpace(cfg.PackageName)
	if cfg.PackageName == "" {
		return nil, errors.New("google play package name is empty")
	}
	if strings.TrimSpace(cfg.ServiceAccountFile) == "" {
		return nil, errors.New("google play service account file is empty")
	}

	ctx := context.Background()
	s, err := androidpublisher.NewService(ctx,
		option.WithCredentialsFile(cfg.ServiceAccountFile),
		option.WithScopes(androidpublisher.AndroidpublisherScope),
	)
	if err != nil {
		return nil, fmt.Errorf("androidpublisher.NewService: %w", err)
	}

	return &PlayBillingService{cfg: cfg, svc: s}, nil
}

// VerifySubscription fetches the subscription identified by (package, sku,
// token). A response the provider rejects maps to ErrVerificationFailed;
// transport failures are returned as-is so callers can tell a dead network
// from a dead subscription.
func (s *PlayBillingService) VerifySubscription(ctx context.Context, skuID, token string) (models.ProviderSubscription, error) {
	skuID = strings.TrimSpace(skuID)
	token = strings.TrimSpace(token)
	if skuID == "" || token == "" {
		return models.ProviderSubscription{}, fmt.Errorf("%w: sku_id and purchase_token are required", models.ErrVerificationFailed)
	}

	resp, err := s.svc.Purchases.Subscriptions.Get(s.cfg.PackageName, skuID, token).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return models.ProviderSubscription{}, fmt.Errorf("%w: google subscriptions.get: status %d", models.ErrVerificationFailed, apiErr.Code)
		}
		return models.ProviderSubscription{}, fmt.Errorf("google subscriptions.get: %w", err)
	}

	return models.ProviderSubscription{
		OrderID:          resp.OrderId,
		ExpiryTimeMillis: resp.ExpiryTimeMillis,
		AutoRenewing:     resp.AutoRenewing,
	}, nil
}
