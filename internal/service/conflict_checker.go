package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/itsuki2003/todaibansou-admin/internal/apperr"
	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

// ConflictChecker detects double-bookings in a teacher's timetable. It is
// advisory: callers decide whether a hit blocks the write or is only shown
// as a warning. The storage exclusion guard is the hard backstop.
type ConflictChecker struct {
	store store.SlotStore
}

func NewConflictChecker(st store.SlotStore) *ConflictChecker {
	return &ConflictChecker{store: st}
}

// CheckConflict returns the first as-scheduled slot of the teacher on the
// date whose [start,end) window overlaps the proposed one, or nil when the
// window is clear. excludeSlotID skips a slot being edited so it does not
// collide with itself. Pure read, no side effects.
func (c *ConflictChecker) CheckConflict(ctx context.Context, teacherID uuid.UUID, date model.DateOnly, start, end model.TimeOfDay, excludeSlotID *uuid.UUID) (*model.LessonSlot, error) {
	slots, err := c.store.ListTeacherSlots(ctx, teacherID, date, model.SlotStatusAsScheduled)
	if err != nil {
		return nil, apperr.Persistence("check conflict", err)
	}

	for _, slot := range slots {
		if excludeSlotID != nil && slot.ID == *excludeSlotID {
			continue
		}
		if slot.OverlapsRange(start, end) {
			return slot, nil
		}
	}
	return nil, nil
}
