package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"shortreels-web/controllers"
	"shortreels-web/models"
	"shortreels-web/repository"
	"shortreels-web/routes"
	"shortreels-web/services"
)

// ---- mock flows ----

type mockGenerationFlow struct {
	startCalls  int
	startErr    *services.ServiceError
	startFn     func(sess *models.Session)
	cancelCalls int
	cancelFn    func(sess *models.Session)
	checkCalls  int
	checkID     string
	checkFn     func(sess *models.Session)
}

func (m *mockGenerationFlow) Start(_ context.Context, sess *models.Session, text string) *services.ServiceError {
	m.startCalls++
	if m.startFn != nil {
		m.startFn(sess)
	}
	return m.startErr
}

func (m *mockGenerationFlow) Cancel(_ context.Context, sess *models.Session) *services.ServiceError {
	m.cancelCalls++
	if m.cancelFn != nil {
		m.cancelFn(sess)
	}
	return nil
}

func (m *mockGenerationFlow) CheckExisting(_ context.Context, sess *models.Session, requestID string) {
	m.checkCalls++
	m.checkID = requestID
	if m.checkFn != nil {
		m.checkFn(sess)
	}
}

type mockPaymentFlow struct {
	initOpts       *models.CheckoutOptions
	initErr        *services.ServiceError
	initCalls      int
	completedCalls int
	completedRes   services.CheckoutResult
	completedErr   *services.ServiceError
	dismissedCalls int
	failedCalls    int
	failedReason   string
	redirectCalls  int
	redirectArgs   []string
	redirectErr    *services.ServiceError
	redirectFn     func(sess *models.Session)
}

func (m *mockPaymentFlow) Initiate(_ context.Context, sess *models.Session) (*models.CheckoutOptions, *services.ServiceError) {
	m.initCalls++
	return m.initOpts, m.initErr
}

func (m *mockPaymentFlow) OnCompleted(_ context.Context, sess *models.Session, result services.CheckoutResult) *services.ServiceError {
	m.completedCalls++
	m.completedRes = result
	return m.completedErr
}

func (m *mockPaymentFlow) OnDismissed(_ context.Context, sess *models.Session) {
	m.dismissedCalls++
}

func (m *mockPaymentFlow) OnFailed(_ context.Context, sess *models.Session, reason string) {
	m.failedCalls++
	m.failedReason = reason
}

func (m *mockPaymentFlow) VerifyAfterRedirect(_ context.Context, sess *models.Session, requestID, paymentID, orderID, signature string) *services.ServiceError {
	m.redirectCalls++
	m.redirectArgs = []string{requestID, paymentID, orderID, signature}
	if m.redirectFn != nil {
		m.redirectFn(sess)
	}
	return m.redirectErr
}

// ---- helpers ----

func setupRouter(repo repository.SessionRepository, gen *mockGenerationFlow, pay *mockPaymentFlow) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = services.RegisterValidators(v)
	}

	r := gin.New()
	app := controllers.NewAppController(repo, gen, pay, time.Hour, zap.NewNop())
	payCtl := controllers.NewPaymentController(app, pay, zap.NewNop())
	routes.RegisterRoutes(r, app, payCtl)
	return r
}

func seedSession(t *testing.T, repo repository.SessionRepository, mutate func(*models.Session)) *models.Session {
	t.Helper()
	sess := models.NewSession()
	if mutate != nil {
		mutate(sess)
	}
	if err := repo.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
	return sess
}

func sessionRequest(method, target string, body []byte, sessionID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: controllers.SessionCookie, Value: sessionID})
	}
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return resp
}

// ---- tests ----

func TestBootstrap_NoParams_FreshInputSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{}
	pay := &mockPaymentFlow{}
	r := setupRouter(repo, gen, pay)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodGet, "/api/bootstrap", nil, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "input", resp["view"])
	assert.Equal(t, false, resp["scrub_url"])
	assert.Equal(t, 0, gen.checkCalls)
	assert.Equal(t, 0, pay.redirectCalls)

	// A session cookie is issued on first contact.
	cookies := w.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == controllers.SessionCookie && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBootstrap_RedirectRecovery(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{}
	pay := &mockPaymentFlow{
		redirectFn: func(sess *models.Session) {
			sess.RequestID = "r1"
			sess.PaidVideoURL = "http://backend.test/v/r1-paid.mp4"
			sess.View = models.ViewPaid
			sess.PaymentPhase = models.PhaseUnlocked
		},
	}
	r := setupRouter(repo, gen, pay)

	w := httptest.NewRecorder()
	target := "/api/bootstrap?request_id=r1&payment_id=p1&order_id=o1&razorpay_signature=sig1"
	r.ServeHTTP(w, sessionRequest(http.MethodGet, target, nil, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	// Exactly one verification with the URL parameters.
	assert.Equal(t, 1, pay.redirectCalls)
	assert.Equal(t, []string{"r1", "p1", "o1", "sig1"}, pay.redirectArgs)
	assert.Equal(t, 0, gen.checkCalls)

	resp := decodeBody(t, w)
	assert.Equal(t, "paid", resp["view"])
	assert.Equal(t, true, resp["scrub_url"])
}

func TestBootstrap_UnlockedSession_DoesNotReverify(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{}
	pay := &mockPaymentFlow{}
	r := setupRouter(repo, gen, pay)
	sess := seedSession(t, repo, func(s *models.Session) {
		s.View = models.ViewPaid
		s.PaymentPhase = models.PhaseUnlocked
		s.RequestID = "r1"
		s.PaidVideoURL = "http://backend.test/v/r1-paid.mp4"
	})

	// A reload that still carries the redirect parameters must not replay
	// the verification; the page is still told to scrub the URL.
	w := httptest.NewRecorder()
	target := "/api/bootstrap?request_id=r1&payment_id=p1&order_id=o1&razorpay_signature=sig1"
	r.ServeHTTP(w, sessionRequest(http.MethodGet, target, nil, sess.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, pay.redirectCalls)
	assert.Equal(t, 0, gen.checkCalls)

	resp := decodeBody(t, w)
	assert.Equal(t, "paid", resp["view"])
	assert.Equal(t, true, resp["scrub_url"])
}

func TestBootstrap_StatusRecovery(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{
		checkFn: func(sess *models.Session) {
			sess.RequestID = "r1"
			sess.PreviewURL = "http://backend.test/v/r1.mp4?t=1"
			sess.View = models.ViewPreview
		},
	}
	pay := &mockPaymentFlow{}
	r := setupRouter(repo, gen, pay)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodGet, "/api/bootstrap?request_id=r1", nil, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, gen.checkCalls)
	assert.Equal(t, "r1", gen.checkID)
	assert.Equal(t, 0, gen.startCalls)
	assert.Equal(t, 0, pay.redirectCalls)

	resp := decodeBody(t, w)
	assert.Equal(t, "preview", resp["view"])
	assert.Equal(t, true, resp["scrub_url"])
}

func TestValidate(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	r := setupRouter(repo, &mockGenerationFlow{}, &mockPaymentFlow{})

	body, _ := json.Marshal(map[string]string{"text": "one two three four five"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodPost, "/api/validate", body, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, float64(5), resp["words"])
	assert.Equal(t, true, resp["valid"])
}

func TestValidate_TooShort(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	r := setupRouter(repo, &mockGenerationFlow{}, &mockPaymentFlow{})

	body, _ := json.Marshal(map[string]string{"text": "  too short  "})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodPost, "/api/validate", body, ""))

	resp := decodeBody(t, w)
	assert.Equal(t, float64(2), resp["words"])
	assert.Equal(t, false, resp["valid"])
}

func TestGenerate_InvalidWordCount_NoServiceCall(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{}
	r := setupRouter(repo, gen, &mockPaymentFlow{})

	body, _ := json.Marshal(map[string]string{"text": "way too short"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodPost, "/api/generate", body, ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, gen.startCalls)
}

func TestGenerate_Success(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{
		startFn: func(sess *models.Session) {
			sess.RequestID = "r1"
			sess.PreviewURL = "http://backend.test/v/r1.mp4?t=1"
			sess.View = models.ViewPreview
			sess.Notify(models.NotifySuccess, "Video generated successfully!")
		},
	}
	r := setupRouter(repo, gen, &mockPaymentFlow{})
	sess := seedSession(t, repo, nil)

	body, _ := json.Marshal(map[string]string{"text": "a tiny robot learns to dance in the rain"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodPost, "/api/generate", body, sess.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, gen.startCalls)

	resp := decodeBody(t, w)
	assert.Equal(t, "preview", resp["view"])
	notifications, ok := resp["notifications"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, notifications, 1)
}

func TestGenerate_ServiceError(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{
		startErr: &services.ServiceError{StatusCode: 502, Message: "Video generation failed"},
	}
	r := setupRouter(repo, gen, &mockPaymentFlow{})
	sess := seedSession(t, repo, nil)

	body, _ := json.Marshal(map[string]string{"text": "a tiny robot learns to dance in the rain"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodPost, "/api/generate", body, sess.ID))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCancel(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	gen := &mockGenerationFlow{
		cancelFn: func(sess *models.Session) {
			sess.View = models.ViewInput
			sess.Notify(models.NotifyWarning, "Generation cancelled")
		},
	}
	r := setupRouter(repo, gen, &mockPaymentFlow{})
	sess := seedSession(t, repo, func(s *models.Session) {
		s.View = models.ViewGenerating
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodPost, "/api/cancel", nil, sess.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, gen.cancelCalls)

	resp := decodeBody(t, w)
	assert.Equal(t, "input", resp["view"])
}

func TestMediaResult_Failure_QueuesNotification(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	r := setupRouter(repo, &mockGenerationFlow{}, &mockPaymentFlow{})
	sess := seedSession(t, repo, func(s *models.Session) {
		s.View = models.ViewPreview
	})

	body, _ := json.Marshal(map[string]bool{"ok": false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodPost, "/api/media/result", body, sess.ID))
	assert.Equal(t, http.StatusNoContent, w.Code)

	// The failed load surfaces a notification on the next session read but
	// the view is unchanged: payment can still proceed.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodGet, "/api/session", nil, sess.ID))
	resp := decodeBody(t, w)
	assert.Equal(t, "preview", resp["view"])
	notifications, _ := resp["notifications"].([]interface{})
	assert.Len(t, notifications, 1)
}

func TestSession_DrainsNotificationsOnce(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	r := setupRouter(repo, &mockGenerationFlow{}, &mockPaymentFlow{})
	sess := seedSession(t, repo, func(s *models.Session) {
		s.Notify(models.NotifySuccess, "Video generated successfully!")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodGet, "/api/session", nil, sess.ID))
	resp := decodeBody(t, w)
	notifications, _ := resp["notifications"].([]interface{})
	assert.Len(t, notifications, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodGet, "/api/session", nil, sess.ID))
	resp = decodeBody(t, w)
	assert.Empty(t, resp["notifications"])
}

func TestDownload(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	r := setupRouter(repo, &mockGenerationFlow{}, &mockPaymentFlow{})
	sess := seedSession(t, repo, func(s *models.Session) {
		s.View = models.ViewPaid
		s.RequestID = "r1"
		s.PaidVideoURL = "http://backend.test/v/r1-paid.mp4"
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodGet, "/api/download", nil, sess.ID))

	assert.Equal(t, http.StatusOK, w.Code)
	var spec models.DownloadSpec
	_ = json.Unmarshal(w.Body.Bytes(), &spec)
	assert.Equal(t, "shortreels-r1.mp4", spec.Filename)
	assert.Equal(t, "http://backend.test/v/r1-paid.mp4", spec.URL)
}

func TestDownload_WithoutPaidVideo(t *testing.T) {
	repo := repository.NewMemorySessionRepository()
	r := setupRouter(repo, &mockGenerationFlow{}, &mockPaymentFlow{})
	sess := seedSession(t, repo, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, sessionRequest(http.MethodGet, "/api/download", nil, sess.ID))

	assert.Equal(t, http.StatusConflict, w.Code)
}
