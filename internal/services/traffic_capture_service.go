package services

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"calmchat/internal/logger"
)

const maskedValue = "***[MASKED]***"

// Exchange is one captured HTTP round trip to a provider.
type Exchange struct {
	Provider     string              `json:"provider"`
	Method       string              `json:"method"`
	URL          string              `json:"url"`
	RequestHead  map[string][]string `json:"request_headers,omitempty"`
	RequestBody  interface{}         `json:"request_body,omitempty"`
	StatusCode   int                 `json:"status_code,omitempty"`
	ResponseBody interface{}         `json:"response_body,omitempty"`
	Error        string              `json:"error,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	DurationMS   int64               `json:"duration_ms"`
}

// TrafficCaptureService records the most recent HTTP exchange made by the
// provider clients so it can be inspected after a failed reply.
// Credentials in headers are masked before they are stored.
type TrafficCaptureService struct {
	initialized bool
	base        http.RoundTripper

	mutex sync.RWMutex
	last  *Exchange
}

// NewTrafficCaptureService creates a capture service over http.DefaultTransport.
func NewTrafficCaptureService() *TrafficCaptureService {
	return &TrafficCaptureService{
		initialized: false,
		base:        http.DefaultTransport,
	}
}

// Name returns the service name "traffic_capture" for registration.
func (d *TrafficCaptureService) Name() string {
	return "traffic_capture"
}

// Initialize sets up the TrafficCaptureService for operation.
func (d *TrafficCaptureService) Initialize() error {
	logger.ServiceOperation("traffic_capture", "initialize", "starting")
	d.mutex.Lock()
	d.last = nil
	d.mutex.Unlock()
	d.initialized = true
	logger.ServiceOperation("traffic_capture", "initialize", "completed")
	return nil
}

// SetBaseTransport replaces the transport that actually sends requests.
func (d *TrafficCaptureService) SetBaseTransport(base http.RoundTripper) {
	d.base = base
}

// HTTPClient returns an HTTP client whose requests are captured under
// provider.
func (d *TrafficCaptureService) HTTPClient(provider string) *http.Client {
	return &http.Client{Transport: &captureTransport{base: d.base, service: d, provider: provider}}
}

// LastExchange returns a copy of the most recent exchange, if any.
func (d *TrafficCaptureService) LastExchange() (Exchange, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if d.last == nil {
		return Exchange{}, false
	}
	return *d.last, true
}

// LastExchangeJSON returns the most recent exchange as indented JSON.
func (d *TrafficCaptureService) LastExchangeJSON() (string, bool) {
	exchange, ok := d.LastExchange()
	if !ok {
		return "", false
	}
	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal captured exchange", "error", err)
		return "", false
	}
	return string(data), true
}

// Clear drops the captured exchange.
func (d *TrafficCaptureService) Clear() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.last = nil
}

func (d *TrafficCaptureService) store(exchange *Exchange) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.last = exchange
}

type captureTransport struct {
	base     http.RoundTripper
	service  *TrafficCaptureService
	provider string
}

// RoundTrip sends req through the base transport and records both sides.
func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	exchange := &Exchange{
		Provider:    t.provider,
		Method:      req.Method,
		URL:         sanitizeURL(req),
		RequestHead: sanitizeHeaders(req.Header),
		StartedAt:   time.Now(),
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		exchange.RequestBody = decodeBody(body)
	}

	resp, err := t.base.RoundTrip(req)
	exchange.DurationMS = time.Since(exchange.StartedAt).Milliseconds()

	if err != nil {
		exchange.Error = err.Error()
		t.service.store(exchange)
		return resp, err
	}

	exchange.StatusCode = resp.StatusCode
	if resp.Body != nil {
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			exchange.Error = readErr.Error()
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		exchange.ResponseBody = decodeBody(body)
	}

	t.service.store(exchange)
	logger.Debug("Captured provider exchange", "provider", t.provider, "status", exchange.StatusCode, "duration_ms", exchange.DurationMS)
	return resp, nil
}

// decodeBody keeps JSON bodies structured and everything else as text.
func decodeBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		return decoded
	}
	return string(body)
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "authorization") ||
		strings.Contains(lower, "api-key") ||
		strings.Contains(lower, "token") ||
		lower == "key"
}

func sanitizeHeaders(headers http.Header) map[string][]string {
	sanitized := make(map[string][]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			sanitized[name] = []string{maskedValue}
			continue
		}
		sanitized[name] = append([]string(nil), values...)
	}
	return sanitized
}

// sanitizeURL masks credentials passed as query parameters.
func sanitizeURL(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	query := u.Query()
	for name := range query {
		if isSensitive(name) {
			query.Set(name, maskedValue)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}
