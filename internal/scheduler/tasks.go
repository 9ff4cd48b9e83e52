package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBookingReminder = "booking.reminder"

const TaskDailyReport = "report.daily"

// BookingReminderPayload identifies the link a reminder nudges the lead about.
// Sequence distinguishes the gentle follow-up from the final expiry warning.
type BookingReminderPayload struct {
	ContactKey string `json:"contactKey"`
	BookingID  string `json:"bookingId"`
	Sequence   int    `json:"sequence"`
}

func NewBookingReminderTask(payload BookingReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingReminder, data), nil
}

func ParseBookingReminderPayload(task *asynq.Task) (BookingReminderPayload, error) {
	var payload BookingReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BookingReminderPayload{}, err
	}
	return payload, nil
}

func NewDailyReportTask() *asynq.Task {
	return asynq.NewTask(TaskDailyReport, nil)
}
