package notifications

import "github.com/leadscout/leadscout/internal/models"

// Notifier pushes hot leads to the configured channels.
type Notifier interface {
	Configured() bool
	SendHotLeads(result *models.AIRankedResult) error
}
