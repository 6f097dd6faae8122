// Package notify delivers chart-entry notifications to configured
// destinations, such as an artist's automation webhook.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapwave/zapwave/pkg/catalog"
)

// Notification describes a track newly entering the trending chart.
type Notification struct {
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	Position int           `json:"position"`
	Score    float64       `json:"score"`
	Track    catalog.Track `json:"track"`
}

// Notifier delivers notifications to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a notification manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
