package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotType string

const (
	SlotTypeRegular        SlotType = "regular"
	SlotTypeFixedInterview SlotType = "fixed_interview"
	SlotTypeMakeup         SlotType = "makeup"
	SlotTypeAdditional     SlotType = "additional"
)

func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeRegular, SlotTypeFixedInterview, SlotTypeMakeup, SlotTypeAdditional:
		return true
	}
	return false
}

type SlotStatus string

const (
	SlotStatusAsScheduled       SlotStatus = "as_scheduled"
	SlotStatusCompleted         SlotStatus = "completed"
	SlotStatusAbsent            SlotStatus = "absent"
	SlotStatusRescheduledSource SlotStatus = "rescheduled_source"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusAsScheduled, SlotStatusCompleted, SlotStatusAbsent, SlotStatusRescheduledSource:
		return true
	}
	return false
}

type LessonSlot struct {
	ID             uuid.UUID  `json:"id"`
	StudentID      uuid.UUID  `json:"student_id"`
	TeacherID      *uuid.UUID `json:"teacher_id"` // nil until a teacher is assigned
	SlotType       SlotType   `json:"slot_type"`
	Date           DateOnly   `json:"date"`
	StartTime      TimeOfDay  `json:"start_time"`
	EndTime        TimeOfDay  `json:"end_time"`
	MeetingLink    *string    `json:"meeting_link"`
	Status         SlotStatus `json:"status"`
	OriginalSlotID *uuid.UUID `json:"original_slot_id"` // set only on makeup slots
	Notes          *string    `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OverlapsRange reports whether the slot's [start,end) window overlaps the
// given half-open window.
func (s *LessonSlot) OverlapsRange(start, end TimeOfDay) bool {
	return RangesOverlap(s.StartTime, s.EndTime, start, end)
}

// SlotDetail is the read-side row: a slot joined with the teacher's display
// name and summaries of linked requests.
type SlotDetail struct {
	LessonSlot
	TeacherName       *string                  `json:"teacher_name,omitempty"`
	Absence           *AbsenceRequest          `json:"absence,omitempty"`
	AdditionalRequest *AdditionalLessonRequest `json:"additional_request,omitempty"`
}
