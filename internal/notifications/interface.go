package notifications

import "github.com/corpustools/reddit-author-collector/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendRunReport(report *models.RunReport) error
}
