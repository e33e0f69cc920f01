package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"shortreels-web/clients"
	"shortreels-web/models"
	"shortreels-web/repository"
)

// GenerationService drives the Input -> Generating -> Preview leg of the
// flow: one cancellable backend call per session, with stale results from
// cancelled or superseded requests discarded.
type GenerationService struct {
	backend  clients.VideoBackend
	origin   string // backend origin, for resolving relative media URLs
	sessions repository.SessionRepository
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]*inflightGeneration // session ID -> active call
}

type inflightGeneration struct {
	epoch  int
	cancel context.CancelFunc
}

func NewGenerationService(backend clients.VideoBackend, origin string, sessions repository.SessionRepository, logger *zap.Logger) *GenerationService {
	return &GenerationService{
		backend:  backend,
		origin:   origin,
		sessions: sessions,
		logger:   logger,
		inflight: make(map[string]*inflightGeneration),
	}
}

// Start issues the generation call for the session. It blocks until the
// backend responds, the call is cancelled, or the client goes away.
func (g *GenerationService) Start(ctx context.Context, sess *models.Session, text string) *ServiceError {
	if !ValidText(text) {
		return &ServiceError{StatusCode: 400, Message: "Text must be between 5 and 50 words"}
	}
	if err := sess.TransitionTo(models.ViewGenerating); err != nil {
		return &ServiceError{StatusCode: 409, Message: "A video is already being generated or previewed"}
	}

	// Bump the epoch before going out to the network. Cancel bumps it again,
	// which is what makes a late response detectable.
	sess.Generation++
	epoch := sess.Generation
	if err := g.sessions.Save(ctx, sess); err != nil {
		return &ServiceError{StatusCode: 500, Message: "Failed to save session"}
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g.track(sess.ID, epoch, cancel)
	defer g.untrack(sess.ID, epoch)

	resp, err := g.backend.GenerateVideo(genCtx, text)

	// The cancel endpoint mutates the session concurrently; reload and check
	// whether this call is still the current one before applying any effect.
	current, loadErr := g.sessions.Get(ctx, sess.ID)
	if loadErr == nil && current == nil {
		// Session expired while the call was in flight. The result has no
		// home; revert quietly.
		g.logger.Debug("discarding generation result for expired session", zap.String("session_id", sess.ID))
		sess.RequestID = ""
		sess.PreviewURL = ""
		_ = sess.TransitionTo(models.ViewInput)
		return nil
	}
	if loadErr == nil && current != nil && current.Generation != epoch {
		g.logger.Debug("discarding stale generation result",
			zap.String("session_id", sess.ID),
			zap.Int("epoch", epoch),
			zap.Int("current", current.Generation),
		)
		*sess = *current
		return nil
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Aborted mid-flight without going through Cancel (client gone).
			// Revert quietly; cancellation is not an error.
			g.revertToInput(ctx, sess)
			return nil
		}
		g.logger.Error("generation request failed", zap.String("session_id", sess.ID), zap.Error(err))
		return g.fail(ctx, sess, "Video generation failed")
	}
	if resp.VideoURL == "" {
		g.logger.Error("generation response missing video_url", zap.String("session_id", sess.ID))
		return g.fail(ctx, sess, "No video URL in response")
	}

	previewURL, err := PreviewURL(g.origin, resp.VideoURL, time.Now())
	if err != nil {
		return g.fail(ctx, sess, "Failed to load video preview")
	}

	sess.RequestID = resp.RequestID
	sess.PreviewURL = previewURL
	sess.PaymentPhase = models.PhaseIdle
	if err := sess.TransitionTo(models.ViewPreview); err != nil {
		return g.fail(ctx, sess, "Video generation failed")
	}
	sess.Notify(models.NotifySuccess, "Video generated successfully!")

	if err := g.sessions.Save(ctx, sess); err != nil {
		return &ServiceError{StatusCode: 500, Message: "Failed to save session"}
	}

	g.logger.Info("generation completed",
		zap.String("session_id", sess.ID),
		zap.String("request_id", resp.RequestID),
	)
	return nil
}

// Cancel aborts the in-flight generation call and reverts the session to the
// input view. Notifying the backend is best effort: a failure there is
// logged and never surfaced, cancellation always proceeds locally. Calling
// without an active request is a no-op beyond the UI reset.
func (g *GenerationService) Cancel(ctx context.Context, sess *models.Session) *ServiceError {
	if sess.RequestID != "" {
		if err := g.backend.CancelGeneration(ctx, sess.RequestID); err != nil {
			g.logger.Warn("backend cancel notification failed",
				zap.String("request_id", sess.RequestID),
				zap.Error(err),
			)
		}
	}

	g.mu.Lock()
	if inf, ok := g.inflight[sess.ID]; ok {
		inf.cancel()
		delete(g.inflight, sess.ID)
	}
	g.mu.Unlock()

	// Invalidate any response still in flight for this session.
	sess.Generation++
	sess.RequestID = ""
	sess.PreviewURL = ""
	sess.PaymentPhase = models.PhaseIdle
	if err := sess.TransitionTo(models.ViewInput); err != nil {
		return &ServiceError{StatusCode: 409, Message: err.Error()}
	}
	sess.Notify(models.NotifyWarning, "Generation cancelled")

	if err := g.sessions.Save(ctx, sess); err != nil {
		return &ServiceError{StatusCode: 500, Message: "Failed to save session"}
	}
	return nil
}

// CheckExisting restores the preview view for a request that already
// completed, e.g. after a page reload. It polls the status once and never
// issues a new generation call. Errors are logged, not surfaced: the session
// simply stays on the input view.
func (g *GenerationService) CheckExisting(ctx context.Context, sess *models.Session, requestID string) {
	status, err := g.backend.RequestStatus(ctx, requestID)
	if err != nil {
		g.logger.Warn("status check failed", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	if models.GenerationStatus(status.Status) != models.GenerationCompleted || status.VideoURL == "" {
		return
	}

	previewURL, err := PreviewURL(g.origin, status.VideoURL, time.Now())
	if err != nil {
		return
	}

	sess.RequestID = requestID
	sess.PreviewURL = previewURL
	if err := sess.TransitionTo(models.ViewPreview); err != nil {
		g.logger.Warn("cannot restore preview", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}

	if err := g.sessions.Save(ctx, sess); err != nil {
		g.logger.Error("failed to save restored session", zap.Error(err))
	}
}

// fail reverts the session to input with an error notification.
func (g *GenerationService) fail(ctx context.Context, sess *models.Session, message string) *ServiceError {
	sess.Notify(models.NotifyError, message)
	g.revertToInput(ctx, sess)
	return &ServiceError{StatusCode: 502, Message: message}
}

func (g *GenerationService) revertToInput(ctx context.Context, sess *models.Session) {
	sess.RequestID = ""
	sess.PreviewURL = ""
	if err := sess.TransitionTo(models.ViewInput); err == nil {
		if err := g.sessions.Save(ctx, sess); err != nil {
			g.logger.Error("failed to save session", zap.Error(err))
		}
	}
}

func (g *GenerationService) track(sessionID string, epoch int, cancel context.CancelFunc) {
	g.mu.Lock()
	g.inflight[sessionID] = &inflightGeneration{epoch: epoch, cancel: cancel}
	g.mu.Unlock()
}

func (g *GenerationService) untrack(sessionID string, epoch int) {
	g.mu.Lock()
	if inf, ok := g.inflight[sessionID]; ok && inf.epoch == epoch {
		delete(g.inflight, sessionID)
	}
	g.mu.Unlock()
}
