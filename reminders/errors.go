package reminders

import "errors"

var (
	ErrReminderMissing  = errors.New("task has no reminder time")
	ErrReminderAfterDue = errors.New("reminder must be before the due date")
	ErrReminderInPast   = errors.New("reminder time has already passed")
	ErrSchedulerClosed  = errors.New("reminder scheduler is closed")
)
