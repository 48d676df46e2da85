package model

import (
	"time"

	"github.com/google/uuid"
)

type AbsenceStatus string

const (
	AbsenceStatusUnrescheduled AbsenceStatus = "unrescheduled"
	AbsenceStatusRescheduled   AbsenceStatus = "rescheduled"
)

func (s AbsenceStatus) Valid() bool {
	return s == AbsenceStatusUnrescheduled || s == AbsenceStatusRescheduled
}

// AbsenceRequest records a reported absence for a slot. Exactly one is
// created per MarkAbsent call; a later reschedule of the same slot flips it
// to rescheduled.
type AbsenceRequest struct {
	ID               uuid.UUID     `json:"id"`
	LessonSlotID     uuid.UUID     `json:"lesson_slot_id"`
	Reason           string        `json:"reason"`
	RequestTimestamp time.Time     `json:"request_timestamp"`
	Status           AbsenceStatus `json:"status"`
	AdminNotes       *string       `json:"admin_notes"`
}
