package hydroportal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/norlandrhagen/snowintel/internal/adapter/cachestore"
	"github.com/norlandrhagen/snowintel/internal/observability"
)

// DefaultCacheTTL is how long a cached response is served.
const DefaultCacheTTL = 60 * time.Second

// CachingTransport is an http.RoundTripper that serves repeated requests from
// a cachestore.Store. The key covers method, URL, SOAPAction and body, so the
// WSDL and each distinct operation call are cached separately. Only 200
// responses are stored.
type CachingTransport struct {
	next    http.RoundTripper
	store   cachestore.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// cachedResponse is the stored form of a response.
type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// NewCachingTransport decorates next (http.DefaultTransport when nil).
func NewCachingTransport(next http.RoundTripper, store cachestore.Store, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *CachingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingTransport{
		next:    next,
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return t.next.RoundTrip(req)
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
	}
	key := requestSignature(req, body)
	ctx := req.Context()

	raw, ok, err := t.store.Get(ctx, key)
	switch {
	case err != nil:
		t.metrics.CacheLookups.WithLabelValues("error").Inc()
		t.logger.Warn("response cache read failed", "error", err)
	case ok:
		var cached cachedResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			t.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return cached.response(req), nil
		}
		t.metrics.CacheLookups.WithLabelValues("error").Inc()
		t.logger.Warn("response cache entry unreadable", "key", key)
	default:
		t.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	out := req.Clone(ctx)
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		out.ContentLength = int64(len(body))
	}

	resp, err := t.next.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	resp.ContentLength = int64(len(respBody))

	encoded, err := json.Marshal(cachedResponse{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	})
	if err == nil {
		err = t.store.Set(ctx, key, encoded, t.ttl)
	}
	if err != nil {
		t.logger.Warn("response cache write failed", "error", err)
	}
	return resp, nil
}

func (c cachedResponse) response(req *http.Request) *http.Response {
	header := make(http.Header)
	if c.ContentType != "" {
		header.Set("Content-Type", c.ContentType)
	}
	header.Set("Content-Length", strconv.Itoa(len(c.Body)))
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

// requestSignature hashes everything that distinguishes one SOAP call from
// another.
func requestSignature(req *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(req.Method))
	h.Write([]byte{0})
	h.Write([]byte(req.URL.String()))
	h.Write([]byte{0})
	h.Write([]byte(req.Header.Get("SOAPAction")))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
