package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamsim/storefront-api/internal/config"
	"github.com/roamsim/storefront-api/internal/email"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/internal/service/catalog"
	"github.com/roamsim/storefront-api/internal/upstream"
	"github.com/roamsim/storefront-api/pkg/auth"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
	"github.com/roamsim/storefront-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("checkout_test")

func newTestService(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bundles":[
			{"name":"7d-1gb","price":9.5,"duration":7},
			{"name":"30d-unlimited","price":29,"unlimited":true,"duration":30}
		]}`))
	}))
	t.Cleanup(srv.Close)

	log := logger.NewLogger(nil)
	client := upstream.NewClient(upstream.Config{Timeout: time.Second}, log, testMetrics)
	catalogSvc := catalog.NewService(client, config.UpstreamConfig{
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		BundleGroup: "Standard Fixed Unlimited Essential",
	}, log)
	mailer := email.NewService(email.Config{}, log)

	svc := NewService(
		NewMemorySessionStore(time.Hour),
		catalogSvc,
		mailer,
		config.CheckoutConfig{SessionTTL: time.Hour, RedirectDelay: 1500 * time.Millisecond},
		log,
		testMetrics,
	)
	return svc, srv
}

func userClaims(id string) *auth.Claims {
	return &auth.Claims{UserID: id, Email: id + "@example.com"}
}

func TestStartAnonymousBeginsAtChoosePlan(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Start(context.Background(), "belgium", "7d-1gb", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StepChoosePlan, session.Step)
	assert.False(t, session.Authenticated)
	require.NotNil(t, session.Bundle)
	assert.Equal(t, "7d-1gb", session.Bundle.Name)
}

func TestStartAuthenticatedSkipsToConfirmAndPay(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Start(context.Background(), "belgium", "7d-1gb", userClaims("u1"))
	require.NoError(t, err)
	assert.Equal(t, model.StepConfirmAndPay, session.Step)
	assert.Equal(t, "u1", session.UserID)
}

func TestStartUnknownBundleIsTerminal(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Start(context.Background(), "belgium", "no-such-plan", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.Code(err))
}

func TestStartCatalogueFailureIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	log := logger.NewLogger(nil)
	client := upstream.NewClient(upstream.Config{Timeout: time.Second}, log, testMetrics)
	catalogSvc := catalog.NewService(client, config.UpstreamConfig{
		BaseURL: srv.URL,
		Timeout: time.Second,
	}, log)

	svc := NewService(
		NewMemorySessionStore(time.Hour),
		catalogSvc,
		email.NewService(email.Config{}, log),
		config.CheckoutConfig{SessionTTL: time.Hour},
		log,
		testMetrics,
	)

	_, err := svc.Start(context.Background(), "belgium", "7d-1gb", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUpstream, apperrors.Code(err))
}

func TestAdvanceRequiresAuthToLeaveChoosePlan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, "belgium", "7d-1gb", nil)
	require.NoError(t, err)

	_, err = svc.Advance(ctx, session.ID, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.Code(err))
}

func TestAdvanceCannotSkipPaymentCapture(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	claims := userClaims("u1")

	session, err := svc.Start(ctx, "belgium", "7d-1gb", claims)
	require.NoError(t, err)
	require.Equal(t, model.StepConfirmAndPay, session.Step)

	_, err = svc.Advance(ctx, session.ID, claims)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.Code(err))
}

func TestGetLoginAdvancesChoosePlanSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, "belgium", "7d-1gb", nil)
	require.NoError(t, err)

	got, err := svc.Get(ctx, session.ID, userClaims("u1"))
	require.NoError(t, err)
	assert.Equal(t, model.StepConfirmAndPay, got.Step)
	assert.True(t, got.Authenticated)
	assert.Equal(t, "u1", got.UserID)
}

func TestGetLogoutResetsUnpaidSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, "belgium", "7d-1gb", userClaims("u1"))
	require.NoError(t, err)
	require.Equal(t, model.StepConfirmAndPay, session.Step)

	got, err := svc.Get(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StepChoosePlan, got.Step)
	assert.False(t, got.Authenticated)
	assert.Empty(t, got.UserID)
}

func TestPaidSessionNeverLeavesActivateAndUse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	claims := userClaims("u1")

	session, err := svc.Start(ctx, "belgium", "7d-1gb", claims)
	require.NoError(t, err)

	paid, delay, err := svc.CompleteCapture(ctx, session.ID, "u1@example.com", claims)
	require.NoError(t, err)
	assert.Equal(t, model.StepActivateAndUse, paid.Step)
	assert.Equal(t, 1500*time.Millisecond, delay)

	// Logging out after payment must not demote the session.
	got, err := svc.Get(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StepActivateAndUse, got.Step)

	again, err := svc.Advance(ctx, session.ID, claims)
	require.NoError(t, err)
	assert.Equal(t, model.StepActivateAndUse, again.Step)
}

func TestApplyCouponValidatesShape(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	claims := userClaims("u1")

	session, err := svc.Start(ctx, "belgium", "7d-1gb", claims)
	require.NoError(t, err)

	for _, code := range []string{"", "ab", "lowercase", "HAS SPACE", "WAY_TOO_LONG_FOR_A_COUPON_CODE_FIELD"} {
		_, err := svc.ApplyCoupon(ctx, session.ID, code, claims)
		require.Error(t, err, "code %q", code)
		assert.Equal(t, apperrors.ErrValidation, apperrors.Code(err), "code %q", code)
	}

	got, err := svc.ApplyCoupon(ctx, session.ID, "SUMMER-10", claims)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER-10", got.CouponCode)
}

func TestApplyCouponRejectedAfterCapture(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	claims := userClaims("u1")

	session, err := svc.Start(ctx, "belgium", "7d-1gb", claims)
	require.NoError(t, err)
	_, _, err = svc.CompleteCapture(ctx, session.ID, "", claims)
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, session.ID, "LATE-10", claims)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.Code(err))
}

func TestAttachOrderRecordsGatewayOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	claims := userClaims("u1")

	session, err := svc.Start(ctx, "belgium", "7d-1gb", claims)
	require.NoError(t, err)

	got, err := svc.AttachOrder(ctx, session.ID, "PAYPAL-ORDER-1", claims)
	require.NoError(t, err)
	assert.Equal(t, "PAYPAL-ORDER-1", got.OrderID)
}

func TestGetUnknownSessionIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.Code(err))
}
