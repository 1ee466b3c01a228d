package checkout

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/roamsim/storefront-api/internal/config"
	"github.com/roamsim/storefront-api/internal/email"
	"github.com/roamsim/storefront-api/internal/model"
	"github.com/roamsim/storefront-api/internal/service/catalog"
	"github.com/roamsim/storefront-api/pkg/auth"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
	"github.com/roamsim/storefront-api/pkg/metrics"
)

var couponPattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// Service sequences the three-step checkout flow:
// ChoosePlan(1) → ConfirmAndPay(2) → ActivateAndUse(3).
// Steps only move forward under normal flow; an auth-state change forces
// a recomputation, except that a paid session never leaves step 3.
type Service struct {
	store   SessionStore
	catalog *catalog.Service
	mailer  email.Service
	cfg     config.CheckoutConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	store SessionStore,
	catalogSvc *catalog.Service,
	mailer email.Service,
	cfg config.CheckoutConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:   store,
		catalog: catalogSvc,
		mailer:  mailer,
		cfg:     cfg,
		logger:  log,
		metrics: m,
	}
}

// initialStep derives the starting step from auth state at session
// creation: authenticated buyers skip plan confirmation sign-in.
func initialStep(claims *auth.Claims) model.CheckoutStep {
	if claims != nil {
		return model.StepConfirmAndPay
	}
	return model.StepChoosePlan
}

// Start creates a session for a bundle on a country page. A failed
// bundle lookup is terminal for the checkout page: the caller renders an
// error state with a manual back action, no automatic retry. A catalogue
// fetch failure is not the same as an unknown bundle and keeps its own
// error code.
func (s *Service) Start(ctx context.Context, slug, bundleName string, claims *auth.Claims) (*model.CheckoutSession, error) {
	offers, err := s.catalog.BundlesForCountry(ctx, slug)
	if err != nil {
		return nil, err
	}
	var bundle *model.BundleOffer
	for i := range offers {
		if offers[i].Name == bundleName {
			bundle = &offers[i]
			break
		}
	}
	if bundle == nil {
		return nil, apperrors.NotFound("bundle", nil)
	}

	now := time.Now()
	session := &model.CheckoutSession{
		ID:          uuid.New().String(),
		Step:        initialStep(claims),
		CountrySlug: slug,
		Bundle:      bundle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if claims != nil {
		session.UserID = claims.UserID
		session.Authenticated = true
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get loads a session and reconciles its step with the current auth
// state. Logging out drops an unpaid session back to step 1; logging in
// advances a step-1 session to step 2. Step 3 is terminal either way.
func (s *Service) Get(ctx context.Context, id string, claims *auth.Claims) (*model.CheckoutSession, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.reconcileAuth(session, claims) {
		if err := s.store.Save(ctx, session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *Service) reconcileAuth(session *model.CheckoutSession, claims *auth.Claims) bool {
	if session.Step == model.StepActivateAndUse {
		return false
	}
	authed := claims != nil
	if authed == session.Authenticated {
		return false
	}

	session.Authenticated = authed
	if authed {
		session.UserID = claims.UserID
		if session.Step == model.StepChoosePlan {
			session.Step = model.StepConfirmAndPay
		}
	} else {
		session.UserID = ""
		session.Step = model.StepChoosePlan
	}
	session.UpdatedAt = time.Now()
	return true
}

// Advance moves a session one step forward. Moving into step 2 requires
// authentication; moving into step 3 happens through CompleteCapture
// only.
func (s *Service) Advance(ctx context.Context, id string, claims *auth.Claims) (*model.CheckoutSession, error) {
	session, err := s.Get(ctx, id, claims)
	if err != nil {
		return nil, err
	}

	switch session.Step {
	case model.StepChoosePlan:
		if claims == nil {
			return nil, apperrors.Unauthorized(nil)
		}
		session.Step = model.StepConfirmAndPay
	case model.StepConfirmAndPay:
		return nil, apperrors.BadRequest("payment capture is required to activate", nil)
	case model.StepActivateAndUse:
		return session, nil
	}

	session.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ApplyCoupon records a coupon code on the session. Codes are validated
// by shape only; pricing authority stays with the gateway order.
func (s *Service) ApplyCoupon(ctx context.Context, id, code string, claims *auth.Claims) (*model.CheckoutSession, error) {
	if !couponPattern.MatchString(code) {
		return nil, apperrors.Validation("invalid coupon code")
	}
	session, err := s.Get(ctx, id, claims)
	if err != nil {
		return nil, err
	}
	if session.Step == model.StepActivateAndUse {
		return nil, apperrors.BadRequest("order already completed", nil)
	}
	session.CouponCode = code
	session.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// AttachOrder records the gateway order id created for this session.
func (s *Service) AttachOrder(ctx context.Context, id, orderID string, claims *auth.Claims) (*model.CheckoutSession, error) {
	session, err := s.Get(ctx, id, claims)
	if err != nil {
		return nil, err
	}
	session.OrderID = orderID
	session.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CompleteCapture marks the session paid and activated, and sends the
// confirmation email best-effort. Returns the dashboard redirect delay
// the client should apply.
func (s *Service) CompleteCapture(ctx context.Context, id string, payerEmail string, claims *auth.Claims) (*model.CheckoutSession, time.Duration, error) {
	session, err := s.Get(ctx, id, claims)
	if err != nil {
		return nil, 0, err
	}

	session.Step = model.StepActivateAndUse
	session.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, session); err != nil {
		return nil, 0, err
	}
	s.metrics.OrdersCaptured.Inc()

	if payerEmail != "" && session.Bundle != nil {
		if err := s.mailer.SendOrderConfirmation(ctx, payerEmail, session); err != nil {
			s.metrics.EmailsFailed.Inc()
			s.logger.Warn("confirmation email failed", "session_id", session.ID, "error", err.Error())
		} else {
			s.metrics.EmailsSent.Inc()
		}
	}

	return session, s.cfg.RedirectDelay, nil
}
