package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/refresh"
	"github.com/rs/zerolog"
)

const maxErrorBody = 1 << 20

type Options struct {
	BaseURL string            // e.g. "http://localhost:8000/api/v1"
	Timeout time.Duration     // whole call including any refresh and replay; 0 means none
	Base    http.RoundTripper // defaults to http.DefaultTransport
	Logger  zerolog.Logger
}

// Client issues JSON calls against the remote auth API through the token
// aware Transport.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	transport   *Transport
	coordinator *refresh.Coordinator
	logger      zerolog.Logger
}

func New(store *token.Store, opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  opts.Logger.With().Str("component", "apiclient").Logger(),
	}
	c.coordinator = refresh.NewCoordinator(store, refresh.ExchangerFunc(c.exchangeRefreshToken), opts.Logger)
	c.transport = NewTransport(opts.Base, store, c.coordinator, opts.Logger)
	c.httpClient = &http.Client{Transport: c.transport, Timeout: opts.Timeout}
	return c
}

// HTTPClient returns the client whose every call goes through the Transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) Transport() *Transport {
	return c.transport
}

func (c *Client) Coordinator() *refresh.Coordinator {
	return c.coordinator
}

// URL joins path (e.g. PathMe) and query onto the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do sends body (JSON encoded when non-nil) and decodes a 2xx response into
// out when non-nil. Non-2xx responses return *Error; transport failures wrap
// ErrTransient.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[Client Do] encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), reader)
	if err != nil {
		return fmt.Errorf("[Client Do] build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("[Client PostForm] build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Detail:     ParseDetail(data),
			Body:       data,
		}
		if resp.Request != nil {
			apiErr.RequestID = resp.Request.Header.Get(headerRequestID)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("[Client] decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// exchangeRefreshToken is the network half of a refresh: POST /auth/refresh?refresh_token=.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (token.Pair, error) {
	var tr TokenResponse
	query := url.Values{"refresh_token": {refreshToken}}
	if err := c.Do(ctx, http.MethodPost, PathRefresh, query, nil, &tr); err != nil {
		return token.Pair{}, err
	}
	return tr.Pair(), nil
}
