package main

import (
	"log"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/auth"
	"github.com/redis/go-redis/v9"

	"nyxCloud/internal/config"
	"nyxCloud/internal/handlers"
	"nyxCloud/internal/repositories"
	"nyxCloud/internal/services"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger

	authClient *auth.Client

	reconcileService *services.ReconcileService

	subscriptionHandler *handlers.SubscriptionHandler
	accountHandler      *handlers.AccountHandler
}

func initializeApp(
	firestoreClient *firestore.Client,
	authClient *auth.Client,
	rdb *redis.Client,
	cfg config.Config,
	errorLog, infoLog *log.Logger,
) (*application, error) {
	// Repositories
	purchaseRepo := repositories.PurchaseRepository{Client: firestoreClient}
	accountRepo := repositories.AccountRepository{Client: firestoreClient}
	blobRepo := repositories.NewBlobRepository(cfg.Storage)

	// Services
	billingService, err := services.NewPlayBillingService(services.PlayBillingConfig{
		PackageName:        cfg.GooglePlay.PackageName,
		ServiceAccountFile: cfg.GooglePlay.ServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	reconcileService := &services.ReconcileService{
		Verifier:    billingService,
		Purchases:   &purchaseRepo,
		Accounts:    &accountRepo,
		Blobs:       blobRepo,
		PackageName: cfg.GooglePlay.PackageName,
		InfoLog:     infoLog,
		ErrorLog:    errorLog,
	}
	accountService := &services.AccountService{
		Accounts: &accountRepo,
		Blobs:    blobRepo,
		Cache:    rdb,
	}

	// Handlers
	subscriptionHandler := &handlers.SubscriptionHandler{Service: reconcileService}
	accountHandler := &handlers.AccountHandler{Service: accountService}

	return &application{
		errorLog:            errorLog,
		infoLog:             infoLog,
		authClient:          authClient,
		reconcileService:    reconcileService,
		subscriptionHandler: subscriptionHandler,
		accountHandler:      accountHandler,
	}, nil
}
