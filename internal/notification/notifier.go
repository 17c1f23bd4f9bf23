// Package notification delivers operational alerts (dataset reload applied,
// reload failed, detection feed silent) to external channels.
package notification

import (
	"context"
	"log/slog"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one operational event worth telling a human about.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Dataset string     `json:"dataset,omitempty"`
	Message string     `json:"message"`
}

// ReloadFailure describes a dataset reload that could not be applied. The
// overlay keeps serving the previous snapshot, so this is a warning, not an
// outage.
func ReloadFailure(dataset string, err error) Alert {
	return Alert{
		Level:   AlertWarning,
		Title:   "dataset reload failed",
		Dataset: dataset,
		Message: err.Error(),
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. Used when no webhook is
// configured and in development.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("alert",
		"level", string(alert.Level),
		"title", alert.Title,
		"dataset", alert.Dataset,
		"message", alert.Message,
	)
	return nil
}
