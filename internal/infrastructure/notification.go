package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

const notifyTimeout = 5 * time.Second

// NotificationService sends desktop notifications about fetch outcomes
type NotificationService struct {
	config *domain.NotificationConfig
	runner CommandRunner
	logger *zap.Logger
}

// NewNotificationService creates a new notification service; a nil runner uses ExecRunner
func NewNotificationService(config *domain.NotificationConfig, runner CommandRunner, logger *zap.Logger) *NotificationService {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var binary string
	var args []string
	switch n.config.Method {
	case "osascript":
		binary, args = "osascript", []string{"-e", osascriptNotification(title, message, n.config.Sound)}
	case "notify-send":
		binary, args = "notify-send", []string{title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if _, stderr, err := n.runner.Run(ctx, binary, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.String("stderr", strings.TrimSpace(string(stderr))),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// osascriptNotification builds the AppleScript for a notification
func osascriptNotification(title, message string, sound bool) string {
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
	if sound {
		script += ` sound name "Glass"`
	}
	return script
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// NotifyFetchCompleted sends notification when a fetch succeeds
func (n *NotificationService) NotifyFetchCompleted(url string, platform domain.Platform) {
	title := "Fetch Completed"
	message := fmt.Sprintf("Success: %s (%s)", truncateString(url, 30), platform.DisplayName())
	n.Send(title, message)
}

// NotifyFetchFailed sends notification when a fetch fails
func (n *NotificationService) NotifyFetchFailed(url string, platform domain.Platform, err error) {
	title := "Fetch Failed"
	message := fmt.Sprintf("Failed: %s (%s)", truncateString(url, 30), platform.DisplayName())
	if re := domain.AsRetrievalError(platform, err); re != nil {
		message += ": " + truncateString(re.Message, 60)
	}
	n.Send(title, message)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
