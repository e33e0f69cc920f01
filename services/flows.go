package services

import (
	"context"

	"shortreels-web/models"
)

// GenerationFlow is the generation surface controllers depend on.
type GenerationFlow interface {
	Start(ctx context.Context, sess *models.Session, text string) *ServiceError
	Cancel(ctx context.Context, sess *models.Session) *ServiceError
	CheckExisting(ctx context.Context, sess *models.Session, requestID string)
}

// PaymentFlow is the payment surface controllers depend on. It embeds the
// checkout listener so widget events and direct operations share one seam.
type PaymentFlow interface {
	CheckoutListener
	Initiate(ctx context.Context, sess *models.Session) (*models.CheckoutOptions, *ServiceError)
	VerifyAfterRedirect(ctx context.Context, sess *models.Session, requestID, paymentID, orderID, signature string) *ServiceError
}

var (
	_ GenerationFlow = (*GenerationService)(nil)
	_ PaymentFlow    = (*PaymentService)(nil)
)
