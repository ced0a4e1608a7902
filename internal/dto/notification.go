package dto

import "github.com/noah-isme/sma-results-api/internal/models"

// NotificationListResponse is one page of a user's inbox plus the unread badge count.
type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}
