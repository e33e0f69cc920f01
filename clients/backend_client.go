package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VideoBackend is the surface of the generation API this service consumes.
type VideoBackend interface {
	GenerateVideo(ctx context.Context, text string) (*GenerateResponse, error)
	RequestStatus(ctx context.Context, requestID string) (*StatusResponse, error)
	CancelGeneration(ctx context.Context, requestID string) error
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)
	VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}

type GenerateResponse struct {
	RequestID string `json:"request_id"`
	VideoURL  string `json:"video_url"`
}

type StatusResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
}

type OrderRequest struct {
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
	RequestID string `json:"request_id"`
}

type OrderResponse struct {
	OrderID     string `json:"order_id"`
	RazorpayKey string `json:"razorpay_key"`
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
}

// VerifyRequest carries the checkout provider identifiers plus the request
// correlation. FromRedirect selects the field names the redirect flow uses
// (payment_id/order_id instead of the razorpay_* pair).
type VerifyRequest struct {
	PaymentID    string
	OrderID      string
	Signature    string
	RequestID    string
	FromRedirect bool
}

type VerifyResponse struct {
	Success      bool   `json:"success"`
	PaidVideoURL string `json:"paid_video_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BackendClient talks to the video generation backend over HTTP.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend origin, used to resolve relative media URLs.
func (b *BackendClient) BaseURL() string {
	return b.baseURL
}

func (b *BackendClient) GenerateVideo(ctx context.Context, text string) (*GenerateResponse, error) {
	var out GenerateResponse
	if err := b.postJSON(ctx, "/generate-video", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BackendClient) RequestStatus(ctx context.Context, requestID string) (*StatusResponse, error) {
	var out StatusResponse
	if err := b.getJSON(ctx, "/request-status/"+requestID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BackendClient) CancelGeneration(ctx context.Context, requestID string) error {
	return b.postJSON(ctx, "/cancel-generation", map[string]string{"request_id": requestID}, nil)
}

func (b *BackendClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	if err := b.postJSON(ctx, "/create-order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BackendClient) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	payload := map[string]string{
		"razorpay_signature": req.Signature,
		"request_id":         req.RequestID,
	}
	if req.FromRedirect {
		payload["payment_id"] = req.PaymentID
		payload["order_id"] = req.OrderID
	} else {
		payload["razorpay_payment_id"] = req.PaymentID
		payload["razorpay_order_id"] = req.OrderID
	}

	var out VerifyResponse
	if err := b.postJSON(ctx, "/verify-payment", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BackendClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func (b *BackendClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func decodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend error: status=%d body=%s", resp.StatusCode, string(body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
