package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/itsuki2003/todaibansou-admin/internal/apperr"
	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/notify"
	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

// ScheduleQueryService is the read side: range queries for the calendar
// screens, plus the change-notification feed the UI refreshes on. Reads
// are retried on storage failure; retrying a read is always safe.
type ScheduleQueryService struct {
	store  store.SlotStore
	broker *notify.Broker
	logger *zap.Logger
}

func NewScheduleQueryService(st store.SlotStore, broker *notify.Broker, logger *zap.Logger) *ScheduleQueryService {
	return &ScheduleQueryService{store: st, broker: broker, logger: logger}
}

const readRetries = 2

func (s *ScheduleQueryService) backoff() retry.Backoff {
	return retry.WithMaxRetries(readRetries, retry.NewFibonacci(50*time.Millisecond))
}

// GetSlotsForStudentRange returns the student's slots within [from, to],
// joined with teacher names and linked request summaries, ordered by date
// then start time. An empty range is an empty list, never an error.
func (s *ScheduleQueryService) GetSlotsForStudentRange(ctx context.Context, studentID uuid.UUID, from, to model.DateOnly) ([]*model.SlotDetail, error) {
	var details []*model.SlotDetail

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		details, err = s.store.ListStudentSlotDetails(ctx, studentID, from, to)
		if err != nil {
			s.logger.Warn("Student range read failed, retrying",
				zap.String("student_id", studentID.String()),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("get slots for student range", err)
	}

	if details == nil {
		details = []*model.SlotDetail{}
	}
	return details, nil
}

// GetSlotsForTeacherDate returns the teacher's as-scheduled slots on a
// date, ordered by start time. The timetable screen renders this directly.
func (s *ScheduleQueryService) GetSlotsForTeacherDate(ctx context.Context, teacherID uuid.UUID, date model.DateOnly) ([]*model.LessonSlot, error) {
	var slots []*model.LessonSlot

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		slots, err = s.store.ListTeacherSlots(ctx, teacherID, date, model.SlotStatusAsScheduled)
		if err != nil {
			s.logger.Warn("Teacher day read failed, retrying",
				zap.String("teacher_id", teacherID.String()),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("get slots for teacher date", err)
	}

	if slots == nil {
		slots = []*model.LessonSlot{}
	}
	return slots, nil
}

// Subscribe registers interest in changes to any of the scheduling tables.
// Delivery is at-least-once and carries only the table name; consumers
// re-fetch. Unsubscribing twice is safe.
func (s *ScheduleQueryService) Subscribe() *notify.Subscription {
	return s.broker.Subscribe()
}
