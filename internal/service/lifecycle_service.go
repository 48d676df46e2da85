package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itsuki2003/todaibansou-admin/internal/apperr"
	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/notify"
	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

// SlotLifecycleManager owns every write to lesson slots, absence requests
// and additional-lesson requests, and enforces the slot state machine:
//
//	as_scheduled --MarkAbsent-->    absent
//	as_scheduled --Reschedule-->    rescheduled_source (spawns a makeup slot)
//	as_scheduled --MarkCompleted--> completed
//
// Reschedule also accepts an absent source, since the admins usually
// reschedule a slot after the absence was reported.
type SlotLifecycleManager struct {
	store   store.Store
	checker *ConflictChecker
	broker  *notify.Broker
	logger  *zap.Logger
}

func NewSlotLifecycleManager(st store.Store, checker *ConflictChecker, broker *notify.Broker, logger *zap.Logger) *SlotLifecycleManager {
	return &SlotLifecycleManager{
		store:   st,
		checker: checker,
		broker:  broker,
		logger:  logger,
	}
}

type CreateSlotInput struct {
	StudentID   uuid.UUID
	TeacherID   *uuid.UUID
	SlotType    model.SlotType
	Date        model.DateOnly
	StartTime   model.TimeOfDay
	EndTime     model.TimeOfDay
	MeetingLink *string
	Notes       *string
}

type RescheduleInput struct {
	Date        model.DateOnly
	StartTime   model.TimeOfDay
	EndTime     model.TimeOfDay
	TeacherID   *uuid.UUID // defaults to the original slot's teacher
	MeetingLink *string    // inherited from the original unless set
	Notes       *string
}

// UpdateSlotInput patches mutable fields; nil means "leave unchanged".
// Status is never patched here, only through the lifecycle transitions.
type UpdateSlotInput struct {
	TeacherID   *uuid.UUID
	SlotType    *model.SlotType
	Date        *model.DateOnly
	StartTime   *model.TimeOfDay
	EndTime     *model.TimeOfDay
	MeetingLink *string
	Notes       *string
}

func validateTimeRange(start, end model.TimeOfDay) error {
	if !start.Before(end) {
		return apperr.Validation("end_time", "must be after start_time")
	}
	return nil
}

func validateMeetingLink(link *string) error {
	if link == nil {
		return nil
	}
	u, err := url.ParseRequestURI(*link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.Validation("meeting_link", "must be a well-formed http(s) URL")
	}
	return nil
}

// overlapError turns a storage overlap refusal into a ConflictError,
// identifying the colliding slot when the advisory checker can still see it.
func (m *SlotLifecycleManager) overlapError(ctx context.Context, teacherID *uuid.UUID, date model.DateOnly, start, end model.TimeOfDay, excludeSlotID *uuid.UUID) error {
	conflict := &apperr.ConflictError{Date: date.String()}
	if teacherID == nil {
		return conflict
	}

	conflict.TeacherID = teacherID.String()
	if hit, err := m.checker.CheckConflict(ctx, *teacherID, date, start, end, excludeSlotID); err == nil && hit != nil {
		conflict.ConflictSlotID = hit.ID.String()
	}
	return conflict
}

// Create persists a new as-scheduled slot. Double-booking is not checked
// here; callers invoke ConflictChecker first when they want the advisory
// warning, and the storage guard refuses a genuinely overlapping commit.
func (m *SlotLifecycleManager) Create(ctx context.Context, input CreateSlotInput) (*model.LessonSlot, error) {
	if input.StudentID == uuid.Nil {
		return nil, apperr.Validation("student_id", "is required")
	}
	if !input.SlotType.Valid() {
		return nil, apperr.Validation("slot_type", fmt.Sprintf("unknown value %q", input.SlotType))
	}
	if input.Date.IsZero() {
		return nil, apperr.Validation("date", "is required")
	}
	if err := validateTimeRange(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}
	if err := validateMeetingLink(input.MeetingLink); err != nil {
		return nil, err
	}

	slot := &model.LessonSlot{
		StudentID:   input.StudentID,
		TeacherID:   input.TeacherID,
		SlotType:    input.SlotType,
		Date:        input.Date,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		MeetingLink: input.MeetingLink,
		Status:      model.SlotStatusAsScheduled,
		Notes:       input.Notes,
	}

	if err := m.store.CreateSlot(ctx, slot); err != nil {
		if errors.Is(err, store.ErrOverlap) {
			return nil, m.overlapError(ctx, input.TeacherID, input.Date, input.StartTime, input.EndTime, nil)
		}
		return nil, apperr.Persistence("create slot", err)
	}

	m.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("student_id", slot.StudentID.String()),
		zap.String("slot_type", string(slot.SlotType)),
		zap.String("date", slot.Date.String()),
	)

	m.broker.Publish(notify.TableLessonSlots)
	return slot, nil
}

// slotStateError reports why a conditional transition was refused: the
// slot either disappeared or changed status since the caller last saw it.
func (m *SlotLifecycleManager) slotStateError(ctx context.Context, op string, slotID uuid.UUID) error {
	slot, err := m.store.GetSlot(ctx, slotID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if slot == nil {
		return apperr.NotFound("slot", slotID.String())
	}
	return apperr.InvalidState(op, "slot "+slotID.String(), string(slot.Status))
}

func (m *SlotLifecycleManager) requestStateError(ctx context.Context, op string, requestID uuid.UUID) error {
	req, err := m.store.GetAdditionalRequest(ctx, requestID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if req == nil {
		return apperr.NotFound("additional request", requestID.String())
	}
	return apperr.InvalidState(op, "request "+requestID.String(), string(req.Status))
}

// MarkAbsent transitions an as-scheduled slot to absent and records exactly
// one unrescheduled absence request for it. The status check rides on the
// write itself, so two concurrent calls cannot both record an absence.
func (m *SlotLifecycleManager) MarkAbsent(ctx context.Context, slotID uuid.UUID, reason string) (*model.AbsenceRequest, error) {
	if reason == "" {
		return nil, apperr.Validation("reason", "is required")
	}

	absence := &model.AbsenceRequest{
		LessonSlotID: slotID,
		Reason:       reason,
		Status:       model.AbsenceStatusUnrescheduled,
	}

	err := m.store.Atomic(ctx, func(tx store.Store) error {
		if err := tx.UpdateSlotStatus(ctx, slotID, model.SlotStatusAbsent, model.SlotStatusAsScheduled); err != nil {
			return fmt.Errorf("update slot status: %w", err)
		}
		if err := tx.CreateAbsence(ctx, absence); err != nil {
			return fmt.Errorf("create absence: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrStatusChanged) {
			return nil, m.slotStateError(ctx, "mark absent", slotID)
		}
		return nil, apperr.Persistence("mark absent", err)
	}

	m.logger.Info("Slot marked absent",
		zap.String("slot_id", slotID.String()),
		zap.String("absence_id", absence.ID.String()),
	)

	m.broker.Publish(notify.TableLessonSlots)
	m.broker.Publish(notify.TableAbsenceRequests)
	return absence, nil
}

// MarkCompleted transitions an as-scheduled slot to completed.
func (m *SlotLifecycleManager) MarkCompleted(ctx context.Context, slotID uuid.UUID) error {
	err := m.store.UpdateSlotStatus(ctx, slotID, model.SlotStatusCompleted, model.SlotStatusAsScheduled)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrStatusChanged) {
			return m.slotStateError(ctx, "mark completed", slotID)
		}
		return apperr.Persistence("mark completed", err)
	}

	m.logger.Info("Slot marked completed", zap.String("slot_id", slotID.String()))

	m.broker.Publish(notify.TableLessonSlots)
	return nil
}

// Reschedule retires the original slot and spawns its makeup slot as one
// atomic unit: the original becomes rescheduled_source, a makeup slot is
// inserted pointing back at it, and a linked absence request (if any) flips
// to rescheduled. No reader ever observes a partial reschedule.
func (m *SlotLifecycleManager) Reschedule(ctx context.Context, originalSlotID uuid.UUID, input RescheduleInput) (*model.LessonSlot, error) {
	if input.Date.IsZero() {
		return nil, apperr.Validation("date", "is required")
	}
	if err := validateTimeRange(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}
	if err := validateMeetingLink(input.MeetingLink); err != nil {
		return nil, err
	}

	original, err := m.store.GetSlot(ctx, originalSlotID)
	if err != nil {
		return nil, apperr.Persistence("reschedule", err)
	}
	if original == nil {
		return nil, apperr.NotFound("slot", originalSlotID.String())
	}
	if original.Status != model.SlotStatusAsScheduled && original.Status != model.SlotStatusAbsent {
		return nil, apperr.InvalidState("reschedule", "slot "+originalSlotID.String(), string(original.Status))
	}

	teacherID := original.TeacherID
	if input.TeacherID != nil {
		teacherID = input.TeacherID
	}
	meetingLink := original.MeetingLink
	if input.MeetingLink != nil {
		meetingLink = input.MeetingLink
	}

	makeup := &model.LessonSlot{
		StudentID:      original.StudentID,
		TeacherID:      teacherID,
		SlotType:       model.SlotTypeMakeup,
		Date:           input.Date,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		MeetingLink:    meetingLink,
		Status:         model.SlotStatusAsScheduled,
		OriginalSlotID: &originalSlotID,
		Notes:          input.Notes,
	}

	err = m.store.Atomic(ctx, func(tx store.Store) error {
		// conditional: refuses a source already retired by a concurrent call
		if err := tx.UpdateSlotStatus(ctx, originalSlotID, model.SlotStatusRescheduledSource,
			model.SlotStatusAsScheduled, model.SlotStatusAbsent); err != nil {
			return fmt.Errorf("retire original slot: %w", err)
		}

		if err := tx.CreateSlot(ctx, makeup); err != nil {
			return fmt.Errorf("create makeup slot: %w", err)
		}

		absence, err := tx.GetAbsenceBySlot(ctx, originalSlotID)
		if err != nil {
			return fmt.Errorf("get absence: %w", err)
		}
		if absence != nil {
			note := fmt.Sprintf("Makeup lesson on %s %s-%s", input.Date, input.StartTime, input.EndTime)
			absence.Status = model.AbsenceStatusRescheduled
			absence.AdminNotes = &note
			if err := tx.UpdateAbsence(ctx, absence); err != nil {
				return fmt.Errorf("update absence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOverlap):
			return nil, m.overlapError(ctx, teacherID, input.Date, input.StartTime, input.EndTime, nil)
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrStatusChanged):
			return nil, m.slotStateError(ctx, "reschedule", originalSlotID)
		default:
			return nil, apperr.Persistence("reschedule", err)
		}
	}

	m.logger.Info("Slot rescheduled",
		zap.String("original_slot_id", originalSlotID.String()),
		zap.String("makeup_slot_id", makeup.ID.String()),
		zap.String("date", input.Date.String()),
	)

	m.broker.Publish(notify.TableLessonSlots)
	m.broker.Publish(notify.TableAbsenceRequests)
	return makeup, nil
}

// Update patches a slot's mutable fields. Status is left untouched; the
// same time-ordering and URL rules as Create apply to the patched result.
func (m *SlotLifecycleManager) Update(ctx context.Context, slotID uuid.UUID, input UpdateSlotInput) (*model.LessonSlot, error) {
	slot, err := m.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, apperr.Persistence("update slot", err)
	}
	if slot == nil {
		return nil, apperr.NotFound("slot", slotID.String())
	}

	if input.TeacherID != nil {
		slot.TeacherID = input.TeacherID
	}
	if input.SlotType != nil {
		if !input.SlotType.Valid() {
			return nil, apperr.Validation("slot_type", fmt.Sprintf("unknown value %q", *input.SlotType))
		}
		slot.SlotType = *input.SlotType
	}
	if input.Date != nil {
		slot.Date = *input.Date
	}
	if input.StartTime != nil {
		slot.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		slot.EndTime = *input.EndTime
	}
	if input.MeetingLink != nil {
		slot.MeetingLink = input.MeetingLink
	}
	if input.Notes != nil {
		slot.Notes = input.Notes
	}

	if err := validateTimeRange(slot.StartTime, slot.EndTime); err != nil {
		return nil, err
	}
	if err := validateMeetingLink(slot.MeetingLink); err != nil {
		return nil, err
	}

	if err := m.store.UpdateSlot(ctx, slot); err != nil {
		if errors.Is(err, store.ErrOverlap) {
			return nil, m.overlapError(ctx, slot.TeacherID, slot.Date, slot.StartTime, slot.EndTime, &slotID)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("slot", slotID.String())
		}
		return nil, apperr.Persistence("update slot", err)
	}

	m.logger.Info("Slot updated", zap.String("slot_id", slotID.String()))

	m.broker.Publish(notify.TableLessonSlots)
	return slot, nil
}

// Delete removes a slot together with every absence request and
// additional-lesson request referencing it, in one atomic unit so no
// dangling references survive.
func (m *SlotLifecycleManager) Delete(ctx context.Context, slotID uuid.UUID) error {
	slot, err := m.store.GetSlot(ctx, slotID)
	if err != nil {
		return apperr.Persistence("delete slot", err)
	}
	if slot == nil {
		return apperr.NotFound("slot", slotID.String())
	}

	err = m.store.Atomic(ctx, func(tx store.Store) error {
		if _, err := tx.DeleteAbsencesBySlot(ctx, slotID); err != nil {
			return fmt.Errorf("delete absences: %w", err)
		}
		if _, err := tx.DeleteAdditionalRequestsBySlot(ctx, slotID); err != nil {
			return fmt.Errorf("delete additional requests: %w", err)
		}
		if err := tx.DeleteSlot(ctx, slotID); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("slot", slotID.String())
		}
		return apperr.Persistence("delete slot", err)
	}

	m.logger.Info("Slot deleted", zap.String("slot_id", slotID.String()))

	m.broker.Publish(notify.TableLessonSlots)
	m.broker.Publish(notify.TableAbsenceRequests)
	m.broker.Publish(notify.TableAdditionalRequests)
	return nil
}

// ApproveAdditionalRequest accepts a pending additional-lesson request:
// the additional-type slot is created at the requested window and the
// request is linked to it, atomically.
func (m *SlotLifecycleManager) ApproveAdditionalRequest(ctx context.Context, requestID uuid.UUID, teacherID *uuid.UUID, meetingLink *string) (*model.LessonSlot, error) {
	if err := validateMeetingLink(meetingLink); err != nil {
		return nil, err
	}

	req, err := m.store.GetAdditionalRequest(ctx, requestID)
	if err != nil {
		return nil, apperr.Persistence("approve additional request", err)
	}
	if req == nil {
		return nil, apperr.NotFound("additional request", requestID.String())
	}
	if req.Status != model.AdditionalRequestStatusPending {
		return nil, apperr.InvalidState("approve additional request", "request "+requestID.String(), string(req.Status))
	}

	assigned := req.TeacherID
	if teacherID != nil {
		assigned = teacherID
	}

	slot := &model.LessonSlot{
		StudentID:   req.StudentID,
		TeacherID:   assigned,
		SlotType:    model.SlotTypeAdditional,
		Date:        req.RequestedDate,
		StartTime:   req.RequestedStartTime,
		EndTime:     req.RequestedEndTime,
		MeetingLink: meetingLink,
		Status:      model.SlotStatusAsScheduled,
	}

	err = m.store.Atomic(ctx, func(tx store.Store) error {
		if err := tx.CreateSlot(ctx, slot); err != nil {
			return fmt.Errorf("create additional slot: %w", err)
		}

		req.Status = model.AdditionalRequestStatusApproved
		req.TeacherID = assigned
		req.LessonSlotID = &slot.ID
		if err := tx.ResolveAdditionalRequest(ctx, req); err != nil {
			return fmt.Errorf("resolve request: %w", err)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOverlap):
			return nil, m.overlapError(ctx, assigned, req.RequestedDate, req.RequestedStartTime, req.RequestedEndTime, nil)
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrStatusChanged):
			return nil, m.requestStateError(ctx, "approve additional request", requestID)
		default:
			return nil, apperr.Persistence("approve additional request", err)
		}
	}

	m.logger.Info("Additional request approved",
		zap.String("request_id", requestID.String()),
		zap.String("slot_id", slot.ID.String()),
	)

	m.broker.Publish(notify.TableLessonSlots)
	m.broker.Publish(notify.TableAdditionalRequests)
	return slot, nil
}

// RejectAdditionalRequest declines a pending additional-lesson request.
func (m *SlotLifecycleManager) RejectAdditionalRequest(ctx context.Context, requestID uuid.UUID, adminNotes *string) error {
	req, err := m.store.GetAdditionalRequest(ctx, requestID)
	if err != nil {
		return apperr.Persistence("reject additional request", err)
	}
	if req == nil {
		return apperr.NotFound("additional request", requestID.String())
	}
	if req.Status != model.AdditionalRequestStatusPending {
		return apperr.InvalidState("reject additional request", "request "+requestID.String(), string(req.Status))
	}

	req.Status = model.AdditionalRequestStatusRejected
	if adminNotes != nil {
		req.AdminNotes = adminNotes
	}
	if err := m.store.ResolveAdditionalRequest(ctx, req); err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrStatusChanged) {
			return m.requestStateError(ctx, "reject additional request", requestID)
		}
		return apperr.Persistence("reject additional request", err)
	}

	m.logger.Info("Additional request rejected", zap.String("request_id", requestID.String()))

	m.broker.Publish(notify.TableAdditionalRequests)
	return nil
}
