package services

import (
	"context"

	"go.uber.org/zap"

	"shortreels-web/clients"
	"shortreels-web/models"
	"shortreels-web/repository"
)

const (
	checkoutName        = "ShortReels AI"
	checkoutDescription = "Watermark Removal"
	checkoutThemeColor  = "#6366F1"
)

// CheckoutResult carries the identifiers the hosted widget hands back on a
// completed payment.
type CheckoutResult struct {
	PaymentID string
	OrderID   string
	Signature string
}

// CheckoutListener is the inversion-of-control boundary towards the hosted
// checkout widget. Controllers adapt the widget's event payloads onto it so
// the payment state machine never sees widget-specific shapes.
type CheckoutListener interface {
	OnCompleted(ctx context.Context, sess *models.Session, result CheckoutResult) *ServiceError
	OnDismissed(ctx context.Context, sess *models.Session)
	OnFailed(ctx context.Context, sess *models.Session, reason string)
}

// PaymentService owns the payment leg:
// idle -> creating_order -> awaiting_checkout -> verifying -> unlocked,
// with every error path returning to idle while the view stays on preview.
type PaymentService struct {
	backend     clients.VideoBackend
	origin      string
	sessions    repository.SessionRepository
	logger      *zap.Logger
	amount      int // minor units, server-owned
	currency    string
	callbackURL string
}

func NewPaymentService(backend clients.VideoBackend, origin string, sessions repository.SessionRepository, amount int, currency, callbackURL string, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		backend:     backend,
		origin:      origin,
		sessions:    sessions,
		logger:      logger,
		amount:      amount,
		currency:    currency,
		callbackURL: callbackURL,
	}
}

// Initiate creates a payment order for the session's generation request and
// returns the options the page uses to open the checkout widget.
func (p *PaymentService) Initiate(ctx context.Context, sess *models.Session) (*models.CheckoutOptions, *ServiceError) {
	if sess.RequestID == "" {
		return nil, &ServiceError{StatusCode: 409, Message: "No video request found"}
	}
	if sess.View != models.ViewPreview {
		return nil, &ServiceError{StatusCode: 409, Message: "No preview available to unlock"}
	}

	sess.PaymentPhase = models.PhaseCreatingOrder
	if err := p.sessions.Save(ctx, sess); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to save session"}
	}

	order, err := p.backend.CreateOrder(ctx, clients.OrderRequest{
		Amount:    p.amount,
		Currency:  p.currency,
		RequestID: sess.RequestID,
	})
	if err != nil {
		p.logger.Error("order creation failed", zap.String("request_id", sess.RequestID), zap.Error(err))
		p.toIdle(ctx, sess, models.NotifyError, "Failed to create payment order")
		return nil, &ServiceError{StatusCode: 502, Message: "Failed to create payment order"}
	}

	sess.PaymentPhase = models.PhaseAwaitingCheckout
	if err := p.sessions.Save(ctx, sess); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to save session"}
	}

	p.logger.Info("payment order created",
		zap.String("request_id", sess.RequestID),
		zap.String("order_id", order.OrderID),
		zap.Int("amount", order.Amount),
	)

	return &models.CheckoutOptions{
		Key:         order.RazorpayKey,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        checkoutName,
		Description: checkoutDescription,
		OrderID:     order.OrderID,
		ThemeColor:  checkoutThemeColor,
		CallbackURL: p.callbackURL,
	}, nil
}

// OnCompleted verifies a payment completed through the in-page widget.
func (p *PaymentService) OnCompleted(ctx context.Context, sess *models.Session, result CheckoutResult) *ServiceError {
	if sess.RequestID == "" {
		return &ServiceError{StatusCode: 409, Message: "No video request found"}
	}
	return p.verify(ctx, sess, clients.VerifyRequest{
		PaymentID: result.PaymentID,
		OrderID:   result.OrderID,
		Signature: result.Signature,
		RequestID: sess.RequestID,
	}, "Payment successful!")
}

// OnDismissed handles the user closing the checkout modal. No backend call
// is made for a user-initiated dismissal.
func (p *PaymentService) OnDismissed(ctx context.Context, sess *models.Session) {
	sess.Notify(models.NotifyWarning, "Payment cancelled")
	p.toIdlePhase(ctx, sess)
}

// OnFailed handles the widget's payment.failed event.
func (p *PaymentService) OnFailed(ctx context.Context, sess *models.Session, reason string) {
	if reason == "" {
		reason = "Payment failed"
	} else {
		reason = "Payment failed: " + reason
	}
	sess.Notify(models.NotifyError, reason)
	p.toIdlePhase(ctx, sess)
}

// VerifyAfterRedirect completes a payment where the checkout provider
// redirected the full page instead of invoking the in-page handler. The
// request identifier is adopted into the session; on success the session
// lands directly on the paid view.
func (p *PaymentService) VerifyAfterRedirect(ctx context.Context, sess *models.Session, requestID, paymentID, orderID, signature string) *ServiceError {
	sess.RequestID = requestID
	return p.verify(ctx, sess, clients.VerifyRequest{
		PaymentID:    paymentID,
		OrderID:      orderID,
		Signature:    signature,
		RequestID:    requestID,
		FromRedirect: true,
	}, "Payment successful! Video unlocked")
}

// verify posts the verification payload. The backend is the sole authority
// on signature validity.
func (p *PaymentService) verify(ctx context.Context, sess *models.Session, req clients.VerifyRequest, successMessage string) *ServiceError {
	sess.PaymentPhase = models.PhaseVerifying
	if err := p.sessions.Save(ctx, sess); err != nil {
		return &ServiceError{StatusCode: 500, Message: "Failed to save session"}
	}

	resp, err := p.backend.VerifyPayment(ctx, req)
	if err != nil {
		p.logger.Error("payment verification failed", zap.String("request_id", req.RequestID), zap.Error(err))
		p.toIdle(ctx, sess, models.NotifyError, "Payment verification failed")
		return &ServiceError{StatusCode: 502, Message: "Payment verification failed"}
	}

	if !resp.Success || resp.PaidVideoURL == "" {
		msg := resp.Error
		if msg == "" {
			msg = "Payment verification failed"
		}
		p.toIdle(ctx, sess, models.NotifyError, msg)
		return &ServiceError{StatusCode: 402, Message: msg}
	}

	paidURL, err := ResolveMediaURL(p.origin, resp.PaidVideoURL)
	if err != nil {
		p.toIdle(ctx, sess, models.NotifyError, "Failed to load paid video")
		return &ServiceError{StatusCode: 502, Message: "Failed to load paid video"}
	}

	sess.PaidVideoURL = paidURL
	sess.PaymentPhase = models.PhaseUnlocked
	if err := sess.TransitionTo(models.ViewPaid); err != nil {
		return &ServiceError{StatusCode: 409, Message: err.Error()}
	}
	sess.Notify(models.NotifySuccess, successMessage)

	if err := p.sessions.Save(ctx, sess); err != nil {
		return &ServiceError{StatusCode: 500, Message: "Failed to save session"}
	}

	p.logger.Info("payment verified",
		zap.String("request_id", req.RequestID),
		zap.String("order_id", req.OrderID),
	)
	return nil
}

// toIdle resets the payment phase with a notification; the view is left
// where it was so the payment can be retried.
func (p *PaymentService) toIdle(ctx context.Context, sess *models.Session, level models.NotificationLevel, message string) {
	sess.Notify(level, message)
	p.toIdlePhase(ctx, sess)
}

func (p *PaymentService) toIdlePhase(ctx context.Context, sess *models.Session) {
	sess.PaymentPhase = models.PhaseIdle
	if err := p.sessions.Save(ctx, sess); err != nil {
		p.logger.Error("failed to save session", zap.Error(err))
	}
}
