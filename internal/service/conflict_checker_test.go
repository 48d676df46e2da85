package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
)

func TestCheckConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacherID := uuid.New()
	date := mustDate(t, "2024-05-01")

	existing, err := env.lifecycle.Create(ctx, CreateSlotInput{
		StudentID: uuid.New(),
		TeacherID: &teacherID,
		SlotType:  model.SlotTypeRegular,
		Date:      date,
		StartTime: mustTime(t, "10:00"),
		EndTime:   mustTime(t, "11:00"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	hit, err := env.checker.CheckConflict(ctx, teacherID, date, mustTime(t, "10:30"), mustTime(t, "11:30"), nil)
	if err != nil {
		t.Fatalf("CheckConflict failed: %v", err)
	}
	if hit == nil || hit.ID != existing.ID {
		t.Errorf("expected the overlapping slot, got %v", hit)
	}

	// touching boundaries do not overlap
	hit, err = env.checker.CheckConflict(ctx, teacherID, date, mustTime(t, "11:00"), mustTime(t, "12:00"), nil)
	if err != nil {
		t.Fatalf("CheckConflict failed: %v", err)
	}
	if hit != nil {
		t.Errorf("expected no conflict for touching window, got slot %s", hit.ID)
	}
}

func TestCheckConflictExcludesSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacherID := uuid.New()
	date := mustDate(t, "2024-05-01")

	slot, err := env.lifecycle.Create(ctx, CreateSlotInput{
		StudentID: uuid.New(),
		TeacherID: &teacherID,
		SlotType:  model.SlotTypeRegular,
		Date:      date,
		StartTime: mustTime(t, "10:00"),
		EndTime:   mustTime(t, "11:00"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// re-checking an edited slot against its own window
	hit, err := env.checker.CheckConflict(ctx, teacherID, date, mustTime(t, "10:00"), mustTime(t, "11:00"), &slot.ID)
	if err != nil {
		t.Fatalf("CheckConflict failed: %v", err)
	}
	if hit != nil {
		t.Errorf("slot conflicts with itself, got %s", hit.ID)
	}
}

func TestCheckConflictIgnoresInactiveSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacherID := uuid.New()
	date := mustDate(t, "2024-05-01")

	slot, err := env.lifecycle.Create(ctx, CreateSlotInput{
		StudentID: uuid.New(),
		TeacherID: &teacherID,
		SlotType:  model.SlotTypeRegular,
		Date:      date,
		StartTime: mustTime(t, "10:00"),
		EndTime:   mustTime(t, "11:00"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// a retired source slot is excluded from conflict checks
	if _, err := env.lifecycle.Reschedule(ctx, slot.ID, RescheduleInput{
		Date:      mustDate(t, "2024-05-08"),
		StartTime: mustTime(t, "10:00"),
		EndTime:   mustTime(t, "11:00"),
	}); err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	hit, err := env.checker.CheckConflict(ctx, teacherID, date, mustTime(t, "10:00"), mustTime(t, "11:00"), nil)
	if err != nil {
		t.Fatalf("CheckConflict failed: %v", err)
	}
	if hit != nil {
		t.Errorf("rescheduled source still reported as conflict: %s", hit.ID)
	}
}
