// Package store defines the persistence contract for lesson slots, absence
// requests and additional-lesson requests. Implementations hold no business
// logic; all state transitions live in the service layer.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOverlap is returned when a write would leave two as-scheduled
	// slots for one teacher overlapping on the same date.
	ErrOverlap = errors.New("overlapping slot for teacher")
	// ErrStatusChanged is returned by conditional transitions when the row
	// exists but its status no longer permits the transition.
	ErrStatusChanged = errors.New("status no longer permits transition")
)

// Get* methods return (nil, nil) when the row does not exist; Update* and
// Delete* return ErrNotFound when nothing was affected.
type SlotStore interface {
	CreateSlot(ctx context.Context, slot *model.LessonSlot) error
	GetSlot(ctx context.Context, id uuid.UUID) (*model.LessonSlot, error)
	UpdateSlot(ctx context.Context, slot *model.LessonSlot) error
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	// UpdateSlotStatus sets the slot's status only while its current status
	// is one of from, in a single conditional write. Returns ErrStatusChanged
	// when the slot exists but its status is not in from, so two concurrent
	// callers can never both apply the same transition.
	UpdateSlotStatus(ctx context.Context, id uuid.UUID, to model.SlotStatus, from ...model.SlotStatus) error

	// ListTeacherSlots returns the teacher's slots on a date with the given
	// status, ordered by start time.
	ListTeacherSlots(ctx context.Context, teacherID uuid.UUID, date model.DateOnly, status model.SlotStatus) ([]*model.LessonSlot, error)

	// ListStudentSlotDetails returns a student's slots within [from, to]
	// inclusive, joined with teacher names and linked request summaries,
	// ordered by date then start time.
	ListStudentSlotDetails(ctx context.Context, studentID uuid.UUID, from, to model.DateOnly) ([]*model.SlotDetail, error)
}

type AbsenceStore interface {
	CreateAbsence(ctx context.Context, req *model.AbsenceRequest) error
	GetAbsenceBySlot(ctx context.Context, slotID uuid.UUID) (*model.AbsenceRequest, error)
	UpdateAbsence(ctx context.Context, req *model.AbsenceRequest) error
	DeleteAbsencesBySlot(ctx context.Context, slotID uuid.UUID) (int64, error)
}

type AdditionalRequestStore interface {
	CreateAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error
	GetAdditionalRequest(ctx context.Context, id uuid.UUID) (*model.AdditionalLessonRequest, error)
	UpdateAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error
	DeleteAdditionalRequestsBySlot(ctx context.Context, slotID uuid.UUID) (int64, error)

	// ResolveAdditionalRequest writes the request's resolution (status,
	// assigned teacher, slot link, notes) only while the stored row is still
	// pending. Returns ErrStatusChanged when it was already resolved.
	ResolveAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error
}

// Store is the full persistence surface. Atomic runs fn against a store
// bound to one transaction: every write inside commits together or not at
// all, and a reader never observes a partial reschedule.
type Store interface {
	SlotStore
	AbsenceStore
	AdditionalRequestStore

	Atomic(ctx context.Context, fn func(Store) error) error
}
