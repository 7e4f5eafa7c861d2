package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.firebaseAuth)

	mux := pat.New()

	// Subscriptions. The sweep normally runs on the in-process schedule;
	// the manual trigger costs one provider call per expired record, so it
	// requires a verified identity like everything else.
	mux.Post("/subscription", authMiddleware.ThenFunc(app.subscriptionHandler.SubmitSubscription))
	mux.Post("/subscription/verify", authMiddleware.ThenFunc(app.subscriptionHandler.VerifySubscription))
	mux.Post("/subscription/sweep", authMiddleware.ThenFunc(app.subscriptionHandler.RunSweep))

	// Account data
	mux.Get("/account/encrypt_key", authMiddleware.ThenFunc(app.accountHandler.GetEncryptKey))
	mux.Put("/account/encrypt_key", authMiddleware.ThenFunc(app.accountHandler.RotateEncryptKey))
	mux.Get("/account/storage_usage", authMiddleware.ThenFunc(app.accountHandler.GetStorageUsage))

	return mux
}
