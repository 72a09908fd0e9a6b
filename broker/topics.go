package broker

// NotificationCreatedSubject carries every freshly persisted notification.
const NotificationCreatedSubject = "notifications.created"
