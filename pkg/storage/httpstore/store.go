// Package httpstore implements a read-only storage.Store over HTTP(S).
//
// Keys are resolved relative to the base URL of the store.
package httpstore

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oneconcern/envboot/pkg/storage"
	"github.com/oneconcern/envboot/pkg/storage/status"
	"go.uber.org/zap"
)

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "envboot"

// Option is a functor to pass optional parameters to the http store
type Option func(*httpStore)

// HTTPClient sets the client used to issue requests. Defaults to http.DefaultClient.
func HTTPClient(client *http.Client) Option {
	return func(h *httpStore) {
		if client != nil {
			h.client = client
		}
	}
}

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(h *httpStore) {
		if logger != nil {
			h.l = logger
		}
	}
}

// UserAgent overrides the User-Agent header
func UserAgent(ua string) Option {
	return func(h *httpStore) {
		h.userAgent = ua
	}
}

type httpStore struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	l         *zap.Logger
}

// New builds a read-only store rooted at base, which must be an absolute http or https URL
func New(base string, opts ...Option) (storage.Store, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, status.ErrInvalidResource.Wrap(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, status.ErrInvalidResource.Wrapf("unsupported scheme %q in %q", u.Scheme, base)
	}
	if u.Host == "" {
		return nil, status.ErrInvalidResource.Wrapf("missing host in %q", base)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	h := &httpStore{
		base:      u,
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
		l:         zap.NewNop(),
	}
	for _, apply := range opts {
		apply(h)
	}
	return h, nil
}

func (h *httpStore) String() string {
	return h.base.String()
}

func (h *httpStore) resolve(key string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(key, "/"))
	if err != nil {
		return "", status.ErrInvalidResource.Wrap(err)
	}
	return h.base.ResolveReference(ref).String(), nil
}

func (h *httpStore) do(ctx context.Context, method, key string) (*http.Response, error) {
	target, err := h.resolve(key)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, status.ErrInvalidResource.Wrap(err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	h.l.Debug("http request", zap.String("method", method), zap.String("url", target))
	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, status.ErrUnreachable.Wrap(err)
	}
	if err := toSentinelErrors(resp); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (h *httpStore) Has(ctx context.Context, key string) (bool, error) {
	resp, err := h.do(ctx, http.MethodHead, key)
	if err != nil {
		if storage.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	_ = resp.Body.Close()
	return true, nil
}

// Size returns the Content-Length advertised by the server, or -1 when unknown
func (h *httpStore) Size(ctx context.Context, key string) (int64, error) {
	resp, err := h.do(ctx, http.MethodHead, key)
	if err != nil {
		return -1, err
	}
	_ = resp.Body.Close()
	return resp.ContentLength, nil
}

func (h *httpStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := h.do(ctx, http.MethodGet, key)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (h *httpStore) Put(context.Context, string, io.Reader) error {
	return status.ErrNotSupported.Wrapf("put on read-only store %s", h)
}

func (h *httpStore) Delete(context.Context, string) error {
	return status.ErrNotSupported.Wrapf("delete on read-only store %s", h)
}

func (h *httpStore) Keys(context.Context) ([]string, error) {
	return nil, status.ErrNotSupported.Wrapf("listing keys on %s", h)
}
