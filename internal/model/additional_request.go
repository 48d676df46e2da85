package model

import (
	"time"

	"github.com/google/uuid"
)

type AdditionalRequestStatus string

const (
	AdditionalRequestStatusPending  AdditionalRequestStatus = "pending"
	AdditionalRequestStatusApproved AdditionalRequestStatus = "approved"
	AdditionalRequestStatusRejected AdditionalRequestStatus = "rejected"
)

func (s AdditionalRequestStatus) Valid() bool {
	switch s {
	case AdditionalRequestStatusPending, AdditionalRequestStatusApproved, AdditionalRequestStatusRejected:
		return true
	}
	return false
}

// AdditionalLessonRequest is a student's request for an extra lesson.
// Approval creates an additional-type LessonSlot and links it here.
type AdditionalLessonRequest struct {
	ID                 uuid.UUID               `json:"id"`
	StudentID          uuid.UUID               `json:"student_id"`
	TeacherID          *uuid.UUID              `json:"teacher_id"`
	LessonSlotID       *uuid.UUID              `json:"lesson_slot_id"` // set once approved
	RequestedDate      DateOnly                `json:"requested_date"`
	RequestedStartTime TimeOfDay               `json:"requested_start_time"`
	RequestedEndTime   TimeOfDay               `json:"requested_end_time"`
	Status             AdditionalRequestStatus `json:"status"`
	AdminNotes         *string                 `json:"admin_notes"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}
