package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nyxCloud/internal/models"
)

type stubReconciler struct {
	result    models.SubmitResult
	submitErr error
	sub       models.ProviderSubscription
	verifyErr error
	sweeps    int
	submits   int
}

func (s *stubReconciler) SubmitSubscription(_ context.Context, _, _, _ string, _ bool) (models.SubmitResult, error) {
	s.submits++
	return s.result, s.submitErr
}

func (s *stubReconciler) Verify(_ context.Context, _, _ string) (models.ProviderSubscription, error) {
	return s.sub, s.verifyErr
}

func (s *stubReconciler) Sweep(_ context.Context) error {
	s.sweeps++
	return nil
}

func submitRequest(uid, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/subscription", strings.NewReader(body))
	if uid != "" {
		r = r.WithContext(context.WithValue(r.Context(), "uid", uid))
	}
	return r
}

func TestSubmitSubscriptionStatusMapping(t *testing.T) {
	body := `{"sku_id":"premium","purchase_token":"tok-1"}`

	cases := []struct {
		name string
		stub *stubReconciler
		want int
	}{
		{"created", &stubReconciler{result: models.SubmitCreated}, http.StatusCreated},
		{"already bound", &stubReconciler{result: models.SubmitAlreadyBound}, http.StatusNoContent},
		{"reassigned", &stubReconciler{result: models.SubmitReassigned}, http.StatusNoContent},
		{"verification failed", &stubReconciler{submitErr: models.ErrVerificationFailed}, http.StatusUnauthorized},
		{"ownership conflict", &stubReconciler{submitErr: models.ErrOwnershipConflict}, http.StatusConflict},
		{"missing identity", &stubReconciler{submitErr: models.ErrMissingIdentity}, http.StatusBadRequest},
		{"internal", &stubReconciler{submitErr: context.DeadlineExceeded}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &SubscriptionHandler{Service: tc.stub}
			w := httptest.NewRecorder()
			h.SubmitSubscription(w, submitRequest("alice", body))
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestSubmitSubscriptionRequiresUID(t *testing.T) {
	stub := &stubReconciler{}
	h := &SubscriptionHandler{Service: stub}
	w := httptest.NewRecorder()
	h.SubmitSubscription(w, submitRequest("", `{"sku_id":"premium","purchase_token":"tok-1"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without verified identity, got %d", w.Code)
	}
	if stub.submits != 0 {
		t.Fatal("missing identity must not reach the service")
	}
	if !strings.Contains(w.Body.String(), "Required UID") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestSubmitSubscriptionRejectsBadBody(t *testing.T) {
	h := &SubscriptionHandler{Service: &stubReconciler{}}

	w := httptest.NewRecorder()
	h.SubmitSubscription(w, submitRequest("alice", "{not json"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on malformed body, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.SubmitSubscription(w, submitRequest("alice", `{"sku_id":"premium"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on missing token, got %d", w.Code)
	}
}

func TestVerifySubscription(t *testing.T) {
	stub := &stubReconciler{sub: models.ProviderSubscription{OrderID: "order-1", ExpiryTimeMillis: 42}}
	h := &SubscriptionHandler{Service: stub}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/subscription/verify", strings.NewReader(`{"sku_id":"premium","purchase_token":"tok-1"}`))
	h.VerifySubscription(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "order-1") {
		t.Fatalf("expected provider state in body, got %s", w.Body.String())
	}
}

func TestVerifySubscriptionFailure(t *testing.T) {
	stub := &stubReconciler{verifyErr: models.ErrVerificationFailed}
	h := &SubscriptionHandler{Service: stub}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/subscription/verify", strings.NewReader(`{"sku_id":"premium","purchase_token":"tok-1"}`))
	h.VerifySubscription(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRunSweep(t *testing.T) {
	stub := &stubReconciler{}
	h := &SubscriptionHandler{Service: stub}

	w := httptest.NewRecorder()
	h.RunSweep(w, httptest.NewRequest(http.MethodPost, "/subscription/sweep", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if stub.sweeps != 1 {
		t.Fatalf("expected one sweep, got %d", stub.sweeps)
	}
}
