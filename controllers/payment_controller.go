package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shortreels-web/services"
)

// PaymentController adapts the HTTP surface (and the widget-shaped event
// payloads) onto the payment flow's checkout listener boundary.
type PaymentController struct {
	app      *AppController
	payments services.PaymentFlow
	logger   *zap.Logger
}

func NewPaymentController(app *AppController, payments services.PaymentFlow, logger *zap.Logger) *PaymentController {
	return &PaymentController{
		app:      app,
		payments: payments,
		logger:   logger,
	}
}

// Initiate creates the order and hands back checkout options for the widget.
func (p *PaymentController) Initiate(c *gin.Context) {
	sess, ok := p.app.session(c)
	if !ok {
		return
	}

	opts, svcErr := p.payments.Initiate(c.Request.Context(), sess)
	if svcErr != nil {
		p.app.respondError(c, sess, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout": opts})
}

type checkoutCallbackRequest struct {
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// Callback is the widget's in-page completion handler.
func (p *PaymentController) Callback(c *gin.Context) {
	var req checkoutCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, ok := p.app.session(c)
	if !ok {
		return
	}

	result := services.CheckoutResult{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
	}
	if svcErr := p.payments.OnCompleted(c.Request.Context(), sess, result); svcErr != nil {
		p.app.respondError(c, sess, svcErr)
		return
	}
	p.app.respondState(c, sess, false)
}

// Dismissed is the widget's modal.ondismiss event: the user closed the
// checkout without paying.
func (p *PaymentController) Dismissed(c *gin.Context) {
	sess, ok := p.app.session(c)
	if !ok {
		return
	}

	p.payments.OnDismissed(c.Request.Context(), sess)
	p.app.respondState(c, sess, false)
}

type checkoutFailedRequest struct {
	Error struct {
		Description string `json:"description"`
	} `json:"error"`
}

// Failed is the widget's payment.failed event.
func (p *PaymentController) Failed(c *gin.Context) {
	var req checkoutFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, ok := p.app.session(c)
	if !ok {
		return
	}

	p.payments.OnFailed(c.Request.Context(), sess, req.Error.Description)
	p.app.respondState(c, sess, false)
}
