package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// NotificationService pushes OTP messages to an HTTP webhook (an SMS or
// mail relay). Form fields: channel, destination, message.
type NotificationService struct {
	webhookURL string
	token      string
	client     *http.Client
	log        *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(webhookURL, token string, log *zap.Logger) *NotificationService {
	return &NotificationService{
		webhookURL: webhookURL,
		token:      token,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log.Named("notification.service"),
	}
}

// IsEnabled checks if a webhook is configured
func (s *NotificationService) IsEnabled() bool {
	return s.webhookURL != ""
}

// Send implements OTPSender
func (s *NotificationService) Send(ctx context.Context, channel, destination, code string) error {
	message := fmt.Sprintf("Your UnionPass verification code is %s. It expires in a few minutes.", code)
	return s.push(ctx, channel, destination, message)
}

func (s *NotificationService) push(ctx context.Context, channel, destination, message string) error {
	if !s.IsEnabled() {
		return fmt.Errorf("notification webhook not configured")
	}

	data := url.Values{}
	data.Set("channel", channel)
	data.Set("destination", destination)
	data.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBufferString(data.Encode()))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	s.log.Debug("notification sent", zap.String("channel", channel), zap.Int("status", resp.StatusCode))
	return nil
}

var _ OTPSender = (*NotificationService)(nil)
