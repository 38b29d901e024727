package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

const defaultTimeout = 10 * time.Second

var (
	ErrMissingContact = apperr.New(apperr.InvalidInput, "no contact on file")
)

type HTTPConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// HTTPNotifier posts to the notification gateway's
// POST {base}/contact/{contact}/message/{message} endpoint.
type HTTPNotifier struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewHTTPNotifier(cfg HTTPConfig) (*HTTPNotifier, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("notify: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPNotifier{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

func (n *HTTPNotifier) Notify(ctx context.Context, contact, message string) error {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ErrMissingContact
	}

	endpoint := fmt.Sprintf("%s/contact/%s/message/%s", n.baseURL, url.PathEscape(contact), url.PathEscape(message))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "build notification request", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.Unavailable, "notification API timeout", err)
		}
		return apperr.Wrap(apperr.Unavailable, "notification API unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode == http.StatusOK:
		n.logger.Debug("notification sent", "contact", maskContact(contact))
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperr.New(apperr.Unavailable, fmt.Sprintf("notification API returned status %d", resp.StatusCode))
	default:
		return apperr.New(apperr.Internal, fmt.Sprintf("notification API returned status %d", resp.StatusCode))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// maskContact keeps the last four characters for log correlation.
func maskContact(contact string) string {
	if len(contact) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(contact)-4) + contact[len(contact)-4:]
}
