package services

import (
	"errors"
	"testing"

	"notewiz-notes/notewiz/models"
	"notewiz-notes/notewiz/testutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	published []models.Notification
	err       error
}

func (m *mockPublisher) PublishNotification(n models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, n)
	return nil
}

// devices connects two notification-route handles for one user.
func devices(t *testing.T, registry *GroupRegistry, userID uuid.UUID) (*Connection, *Connection) {
	t.Helper()
	phone := NewConnection(userID, "Ada", NotificationsRoute, 16)
	laptop := NewConnection(userID, "Ada", NotificationsRoute, 16)
	require.True(t, registry.Join(UserGroupKey(userID), phone))
	require.True(t, registry.Join(UserGroupKey(userID), laptop))
	return phone, laptop
}

func TestCreateNotification_PushesToEveryDevice(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()

	registry := NewGroupRegistry(nil)
	service := NewNotificationService(NewNotificationFanout(registry), nil)
	userID := uuid.New()
	phone, laptop := devices(t, registry, userID)
	stranger := NewConnection(uuid.New(), "Eve", NotificationsRoute, 16)
	registry.Join(UserGroupKey(stranger.UserID), stranger)

	created, err := service.CreateNotification(db, models.Notification{
		UserID:  userID,
		Title:   "Shared with you",
		Message: "Bob shared a note",
		Type:    models.NoteSharedNotification,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	for _, device := range []*Connection{phone, laptop} {
		events := drain(t, device)
		require.Equal(t, []models.ServerEventKind{models.ReceiveNotificationEvent}, kinds(events))
		var got models.Notification
		require.NoError(t, events[0].DecodePayload(&got))
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Shared with you", got.Title)
	}
	assert.Empty(t, drain(t, stranger))
}

func TestCreateNotification_Validation(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()
	service := NewNotificationService(nil, nil)

	_, err := service.CreateNotification(db, models.Notification{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = service.CreateNotification(db, models.Notification{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	n, err := service.CreateNotification(db, models.Notification{UserID: uuid.New(), Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, models.GenericNotification, n.Type)
}

func TestCreateNotification_PrefersBroker(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()

	registry := NewGroupRegistry(nil)
	publisher := &mockPublisher{}
	service := NewNotificationService(NewNotificationFanout(registry), publisher)
	userID := uuid.New()
	phone, _ := devices(t, registry, userID)

	_, err := service.CreateNotification(db, models.Notification{UserID: userID, Title: "via broker"})
	require.NoError(t, err)
	assert.Len(t, publisher.published, 1)
	assert.Empty(t, drain(t, phone))

	publisher.err = errors.New("nats down")
	_, err = service.CreateNotification(db, models.Notification{UserID: userID, Title: "direct"})
	require.NoError(t, err)
	assert.Equal(t, []models.ServerEventKind{models.ReceiveNotificationEvent}, kinds(drain(t, phone)))
}

func TestMarkAsRead_SyncsOtherDevices(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()

	registry := NewGroupRegistry(nil)
	service := NewNotificationService(NewNotificationFanout(registry), nil)
	userID := uuid.New()
	phone, laptop := devices(t, registry, userID)
	otherPhone, _ := devices(t, registry, uuid.New())

	n, err := service.CreateNotification(db, models.Notification{UserID: userID, Title: "Reminder"})
	require.NoError(t, err)
	drain(t, phone)
	drain(t, laptop)
	assert.Empty(t, drain(t, otherPhone))

	read, err := service.MarkAsRead(db, userID.String(), n.ID.String(), phone)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	assert.Empty(t, drain(t, phone))
	events := drain(t, laptop)
	require.Equal(t, []models.ServerEventKind{models.NotificationReadEvent}, kinds(events))
	var payload models.NotificationReadPayload
	require.NoError(t, events[0].DecodePayload(&payload))
	assert.Equal(t, n.ID.String(), payload.NotificationID)
	assert.Empty(t, drain(t, otherPhone))

	unread, err := service.GetNotifications(db, userID.String(), true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// marking again changes nothing and pushes nothing
	_, err = service.MarkAsRead(db, userID.String(), n.ID.String(), laptop)
	require.NoError(t, err)
	assert.Empty(t, drain(t, phone))
}

func TestMarkAsRead_RejectsOtherUsersNotifications(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()
	service := NewNotificationService(nil, nil)

	n, err := service.CreateNotification(db, models.Notification{UserID: uuid.New(), Title: "private"})
	require.NoError(t, err)

	_, err = service.MarkAsRead(db, uuid.NewString(), n.ID.String(), nil)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	_, err = service.MarkAsRead(db, n.UserID.String(), "garbage", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkAllAsRead(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()

	registry := NewGroupRegistry(nil)
	service := NewNotificationService(NewNotificationFanout(registry), nil)
	userID := uuid.New()

	for _, title := range []string{"one", "two", "three"} {
		_, err := service.CreateNotification(db, models.Notification{UserID: userID, Title: title})
		require.NoError(t, err)
	}
	phone, _ := devices(t, registry, userID)

	count, err := service.MarkAllAsRead(db, userID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, drain(t, phone), 3)

	all, err := service.GetNotifications(db, userID.String(), false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, n := range all {
		assert.True(t, n.IsRead)
	}

	count, err = service.MarkAllAsRead(db, userID.String())
	require.NoError(t, err)
	assert.Zero(t, count)
}
