package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shortreels-web/models"
	"shortreels-web/repository"
	"shortreels-web/services"
)

// SessionCookie names the cookie correlating a browser with its session.
const SessionCookie = "sr_session"

type AppController struct {
	sessions   repository.SessionRepository
	generation services.GenerationFlow
	payments   services.PaymentFlow
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewAppController(sessions repository.SessionRepository, generation services.GenerationFlow, payments services.PaymentFlow, sessionTTL time.Duration, logger *zap.Logger) *AppController {
	return &AppController{
		sessions:   sessions,
		generation: generation,
		payments:   payments,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

func (a *AppController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Bootstrap re-derives session state on page load. Payment redirect
// parameters, when present, are consumed exactly once: the response tells
// the page to scrub them from the visible URL so a reload cannot replay the
// verification.
func (a *AppController) Bootstrap(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	requestID := c.Query("request_id")
	paymentID := c.Query("payment_id")
	orderID := c.Query("order_id")
	signature := c.Query("razorpay_signature")

	scrub := false
	switch {
	case requestID != "" && paymentID != "" && orderID != "" && signature != "":
		scrub = true
		// A reload with the parameters still in the URL must not replay the
		// verification once the session is already unlocked.
		if sess.PaymentPhase == models.PhaseUnlocked {
			break
		}
		if svcErr := a.payments.VerifyAfterRedirect(ctx, sess, requestID, paymentID, orderID, signature); svcErr != nil {
			a.logger.Warn("redirect verification failed", zap.String("request_id", requestID), zap.String("reason", svcErr.Message))
		}
	case requestID != "":
		scrub = true
		a.generation.CheckExisting(ctx, sess, requestID)
	}

	a.respondState(c, sess, scrub)
}

// Session reports the current view and drains pending notifications.
func (a *AppController) Session(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}
	a.respondState(c, sess, false)
}

type validateRequest struct {
	Text string `json:"text"`
}

// Validate returns the word-count verdict for the counter display. It has no
// side effects on the session.
func (a *AppController) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	words := services.CountWords(req.Text)
	c.JSON(http.StatusOK, gin.H{
		"words": words,
		"valid": words >= services.MinWords && words <= services.MaxWords,
	})
}

type generateRequest struct {
	Text string `json:"text" binding:"required,videotext"`
}

func (a *AppController) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text must be between 5 and 50 words"})
		return
	}

	sess, ok := a.session(c)
	if !ok {
		return
	}

	if svcErr := a.generation.Start(c.Request.Context(), sess, req.Text); svcErr != nil {
		a.respondError(c, sess, svcErr)
		return
	}
	a.respondState(c, sess, false)
}

func (a *AppController) Cancel(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}

	if svcErr := a.generation.Cancel(c.Request.Context(), sess); svcErr != nil {
		a.respondError(c, sess, svcErr)
		return
	}
	a.respondState(c, sess, false)
}

type mediaResultRequest struct {
	OK bool `json:"ok"`
}

// MediaResult records the outcome of a video element load. A failed load
// surfaces a notification but never changes the view: the URL itself was
// received, so payment can still proceed.
func (a *AppController) MediaResult(c *gin.Context) {
	var req mediaResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, ok := a.session(c)
	if !ok {
		return
	}

	if !req.OK {
		sess.Notify(models.NotifyError, "Failed to load video")
		if err := a.sessions.Save(c.Request.Context(), sess); err != nil {
			a.logger.Error("failed to save session", zap.Error(err))
		}
	}
	c.Status(http.StatusNoContent)
}

// Download returns the save-as spec for the paid video. Pure derivation, no
// network call is made here or by the page beyond fetching the URL itself.
func (a *AppController) Download(c *gin.Context) {
	sess, ok := a.session(c)
	if !ok {
		return
	}

	spec, svcErr := services.DownloadFor(sess)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, spec)
}

// session loads the session identified by the cookie, creating a fresh one
// when the cookie is missing or stale. Returns false after writing an error
// response.
func (a *AppController) session(c *gin.Context) (*models.Session, bool) {
	ctx := c.Request.Context()

	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		sess, err := a.sessions.Get(ctx, id)
		if err != nil {
			a.logger.Error("session lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
			return nil, false
		}
		if sess != nil {
			return sess, true
		}
	}

	sess := models.NewSession()
	if err := a.sessions.Save(ctx, sess); err != nil {
		a.logger.Error("session create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return nil, false
	}
	c.SetCookie(SessionCookie, sess.ID, int(a.sessionTTL.Seconds()), "/", "", false, true)
	return sess, true
}

// respondState renders the authoritative session state. Notifications are
// drained on every read; draining mutates the session, so it is saved back.
func (a *AppController) respondState(c *gin.Context, sess *models.Session, scrub bool) {
	notifications := sess.DrainNotifications()
	if err := a.sessions.Save(c.Request.Context(), sess); err != nil {
		a.logger.Error("failed to save session", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     sess.ID,
		"view":           sess.View,
		"payment_phase":  sess.PaymentPhase,
		"request_id":     sess.RequestID,
		"preview_url":    sess.PreviewURL,
		"paid_video_url": sess.PaidVideoURL,
		"notifications":  notifications,
		"scrub_url":      scrub,
	})
}

func (a *AppController) respondError(c *gin.Context, sess *models.Session, svcErr *services.ServiceError) {
	notifications := sess.DrainNotifications()
	if err := a.sessions.Save(c.Request.Context(), sess); err != nil {
		a.logger.Error("failed to save session", zap.Error(err))
	}

	c.JSON(svcErr.StatusCode, gin.H{
		"error":         svcErr.Message,
		"view":          sess.View,
		"payment_phase": sess.PaymentPhase,
		"notifications": notifications,
	})
}
