package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-portal/internal/domain/contact"
	"github.com/khoahotran/profile-portal/pkg/apperror"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

type httpSender struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	logger     logger.Logger
}

// NewHTTPSender posts contact messages to contactURL. A nil client means
// http.DefaultClient.
func NewHTTPSender(contactURL string, timeout time.Duration, httpClient *http.Client, log logger.Logger) contact.Sender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &httpSender{url: contactURL, timeout: timeout, httpClient: httpClient, logger: log}
}

func (s *httpSender) Send(ctx context.Context, msg contact.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		return apperror.NewInternal("failed to marshal contact message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return apperror.NewInvalidInput("invalid contact URL "+s.url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return apperror.NewCancelled(err)
		}
		return apperror.NewNetwork(s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("Contact submission rejected upstream", zap.Int("status_code", resp.StatusCode))
		appErr := apperror.NewHTTPStatus(s.url, resp.StatusCode)
		appErr.Message = "Unable to send. Please try again shortly."
		return appErr
	}
	return nil
}
