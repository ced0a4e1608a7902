package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type memoryInbox struct {
	items      []models.Notification
	userID     string
	unreadOnly bool
	page, size int
	err        error
}

func (m *memoryInbox) ListByUser(ctx context.Context, userID string, unreadOnly bool, page, size int) ([]models.Notification, int, error) {
	m.userID, m.unreadOnly, m.page, m.size = userID, unreadOnly, page, size
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []models.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *memoryInbox) MarkRead(ctx context.Context, id, userID string) error {
	if m.err != nil {
		return m.err
	}
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].Read = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryInbox) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	updated := 0
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read {
			m.items[i].Read = true
			updated++
		}
	}
	return updated, nil
}

func (m *memoryInbox) UnreadCount(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func newInbox() *memoryInbox {
	return &memoryInbox{items: []models.Notification{
		{ID: "n-1", UserID: "user-1", Title: "Results Published"},
		{ID: "n-2", UserID: "user-1", Title: "Results Published", Read: true},
		{ID: "n-3", UserID: "user-2", Title: "Results Published"},
	}}
}

var studentActor = models.Actor{UserID: "user-1", Role: models.RoleStudent}

func TestNotificationListScopedToActor(t *testing.T) {
	inbox := newInbox()
	svc := NewNotificationService(inbox, nil)

	list, pagination, err := svc.List(context.Background(), studentActor, false, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, "user-1", inbox.userID)
	assert.Len(t, list.Notifications, 2)
	assert.Equal(t, 1, list.UnreadCount)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 20, TotalCount: 2}, *pagination)

	unread, _, err := svc.List(context.Background(), studentActor, true, 1, 10)
	require.NoError(t, err)
	require.Len(t, unread.Notifications, 1)
	assert.Equal(t, "n-1", unread.Notifications[0].ID)
}

func TestNotificationListEmptyInbox(t *testing.T) {
	svc := NewNotificationService(&memoryInbox{}, nil)

	list, _, err := svc.List(context.Background(), studentActor, false, 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, list.Notifications)
	assert.Zero(t, list.UnreadCount)
}

func TestNotificationMarkRead(t *testing.T) {
	inbox := newInbox()
	svc := NewNotificationService(inbox, nil)

	require.NoError(t, svc.MarkRead(context.Background(), "n-1", studentActor))
	count, _ := inbox.UnreadCount(context.Background(), "user-1")
	assert.Zero(t, count)

	err := svc.MarkRead(context.Background(), "n-3", studentActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.False(t, inbox.items[2].Read)

	assert.ErrorIs(t, svc.MarkRead(context.Background(), " ", studentActor), appErrors.ErrValidation)
}

func TestNotificationMarkAllReadLeavesOtherUsers(t *testing.T) {
	inbox := newInbox()
	svc := NewNotificationService(inbox, nil)

	updated, err := svc.MarkAllRead(context.Background(), studentActor)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.False(t, inbox.items[2].Read)
}

func TestNotificationRepositoryFailure(t *testing.T) {
	svc := NewNotificationService(&memoryInbox{err: errors.New("connection reset")}, nil)

	_, _, err := svc.List(context.Background(), studentActor, false, 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.ErrorIs(t, svc.MarkRead(context.Background(), "n-1", studentActor), appErrors.ErrInternal)
}
