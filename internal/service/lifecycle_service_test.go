package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itsuki2003/todaibansou-admin/internal/apperr"
	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/notify"
	"github.com/itsuki2003/todaibansou-admin/internal/store/memory"
)

type testEnv struct {
	store     *memory.Store
	lifecycle *SlotLifecycleManager
	queries   *ScheduleQueryService
	checker   *ConflictChecker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	broker := notify.NewBroker()
	logger := zap.NewNop()
	checker := NewConflictChecker(st)

	return &testEnv{
		store:     st,
		lifecycle: NewSlotLifecycleManager(st, checker, broker, logger),
		queries:   NewScheduleQueryService(st, broker, logger),
		checker:   checker,
	}
}

func mustDate(t *testing.T, s string) model.DateOnly {
	t.Helper()
	d, err := model.ParseDateOnly(s)
	if err != nil {
		t.Fatalf("ParseDateOnly(%q): %v", s, err)
	}
	return d
}

func mustTime(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	v, err := model.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return v
}

func createInput(t *testing.T) CreateSlotInput {
	t.Helper()
	teacherID := uuid.New()
	return CreateSlotInput{
		StudentID: uuid.New(),
		TeacherID: &teacherID,
		SlotType:  model.SlotTypeRegular,
		Date:      mustDate(t, "2024-06-03"),
		StartTime: mustTime(t, "16:00"),
		EndTime:   mustTime(t, "17:00"),
	}
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)

	slot, err := env.lifecycle.Create(context.Background(), createInput(t))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if slot.ID == uuid.Nil {
		t.Error("expected slot ID to be assigned")
	}
	if slot.Status != model.SlotStatusAsScheduled {
		t.Errorf("status = %q, want %q", slot.Status, model.SlotStatusAsScheduled)
	}

	stored, err := env.store.GetSlot(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("GetSlot failed: %v", err)
	}
	if stored == nil {
		t.Fatal("slot was not persisted")
	}
	if !stored.StartTime.Before(stored.EndTime) {
		t.Error("persisted slot violates end > start")
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	badLink := "not a url"

	tests := []struct {
		name   string
		mutate func(*CreateSlotInput)
	}{
		{name: "missing student", mutate: func(in *CreateSlotInput) { in.StudentID = uuid.Nil }},
		{name: "unknown slot type", mutate: func(in *CreateSlotInput) { in.SlotType = "seminar" }},
		{name: "zero date", mutate: func(in *CreateSlotInput) { in.Date = model.DateOnly{} }},
		{name: "end before start", mutate: func(in *CreateSlotInput) {
			in.StartTime = mustTime(t, "17:00")
			in.EndTime = mustTime(t, "16:00")
		}},
		{name: "end equals start", mutate: func(in *CreateSlotInput) {
			in.EndTime = in.StartTime
		}},
		{name: "malformed meeting link", mutate: func(in *CreateSlotInput) { in.MeetingLink = &badLink }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := createInput(t)
			tt.mutate(&input)

			_, err := env.lifecycle.Create(context.Background(), input)
			if !apperr.IsValidation(err) {
				t.Errorf("Create error = %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateAcceptsHTTPSMeetingLink(t *testing.T) {
	env := newTestEnv(t)

	link := "https://meet.example.com/room/abc"
	input := createInput(t)
	input.MeetingLink = &link

	if _, err := env.lifecycle.Create(context.Background(), input); err != nil {
		t.Fatalf("Create with valid link failed: %v", err)
	}
}

func TestCreateOverlapRefusedByStorage(t *testing.T) {
	env := newTestEnv(t)

	input := createInput(t)
	if _, err := env.lifecycle.Create(context.Background(), input); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// same teacher, same date, overlapping window, no advisory check run
	second := input
	second.StudentID = uuid.New()
	second.StartTime = mustTime(t, "16:30")
	second.EndTime = mustTime(t, "17:30")

	_, err := env.lifecycle.Create(context.Background(), second)
	if !apperr.IsConflict(err) {
		t.Fatalf("Create error = %v, want ConflictError", err)
	}
}

func TestCreateTouchingWindowsAllowed(t *testing.T) {
	env := newTestEnv(t)

	input := createInput(t)
	if _, err := env.lifecycle.Create(context.Background(), input); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	second := input
	second.StudentID = uuid.New()
	second.StartTime = mustTime(t, "17:00")
	second.EndTime = mustTime(t, "18:00")

	if _, err := env.lifecycle.Create(context.Background(), second); err != nil {
		t.Fatalf("back-to-back Create failed: %v", err)
	}
}

func TestMarkAbsent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, err := env.lifecycle.Create(ctx, createInput(t))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	absence, err := env.lifecycle.MarkAbsent(ctx, slot.ID, "fever")
	if err != nil {
		t.Fatalf("MarkAbsent failed: %v", err)
	}

	if absence.Status != model.AbsenceStatusUnrescheduled {
		t.Errorf("absence status = %q, want %q", absence.Status, model.AbsenceStatusUnrescheduled)
	}
	if absence.Reason != "fever" {
		t.Errorf("absence reason = %q, want %q", absence.Reason, "fever")
	}

	updated, _ := env.store.GetSlot(ctx, slot.ID)
	if updated.Status != model.SlotStatusAbsent {
		t.Errorf("slot status = %q, want %q", updated.Status, model.SlotStatusAbsent)
	}
}

func TestMarkAbsentTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, err := env.lifecycle.Create(ctx, createInput(t))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := env.lifecycle.MarkAbsent(ctx, slot.ID, "fever"); err != nil {
		t.Fatalf("first MarkAbsent failed: %v", err)
	}

	_, err = env.lifecycle.MarkAbsent(ctx, slot.ID, "fever again")
	if !apperr.IsInvalidState(err) {
		t.Fatalf("second MarkAbsent error = %v, want InvalidStateError", err)
	}

	// exactly one absence request exists
	absence, err := env.store.GetAbsenceBySlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetAbsenceBySlot failed: %v", err)
	}
	if absence == nil {
		t.Fatal("expected the first absence request to survive")
	}
	if absence.Reason != "fever" {
		t.Errorf("absence reason = %q, want the first call's reason", absence.Reason)
	}
}

func TestMarkAbsentErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.lifecycle.MarkAbsent(ctx, uuid.New(), "fever"); !apperr.IsNotFound(err) {
		t.Errorf("MarkAbsent on missing slot error = %v, want NotFoundError", err)
	}

	slot, _ := env.lifecycle.Create(ctx, createInput(t))
	if _, err := env.lifecycle.MarkAbsent(ctx, slot.ID, ""); !apperr.IsValidation(err) {
		t.Errorf("MarkAbsent with empty reason error = %v, want ValidationError", err)
	}
}

func TestRescheduleLinkage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := createInput(t)
	original, err := env.lifecycle.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := env.lifecycle.MarkAbsent(ctx, original.ID, "fever"); err != nil {
		t.Fatalf("MarkAbsent failed: %v", err)
	}

	makeup, err := env.lifecycle.Reschedule(ctx, original.ID, RescheduleInput{
		Date:      mustDate(t, "2024-06-05"),
		StartTime: mustTime(t, "16:00"),
		EndTime:   mustTime(t, "17:00"),
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	retired, _ := env.store.GetSlot(ctx, original.ID)
	if retired.Status != model.SlotStatusRescheduledSource {
		t.Errorf("original status = %q, want %q", retired.Status, model.SlotStatusRescheduledSource)
	}

	if makeup.SlotType != model.SlotTypeMakeup {
		t.Errorf("makeup slot type = %q, want %q", makeup.SlotType, model.SlotTypeMakeup)
	}
	if makeup.Status != model.SlotStatusAsScheduled {
		t.Errorf("makeup status = %q, want %q", makeup.Status, model.SlotStatusAsScheduled)
	}
	if makeup.OriginalSlotID == nil || *makeup.OriginalSlotID != original.ID {
		t.Error("makeup slot does not reference the original")
	}
	if makeup.TeacherID == nil || *makeup.TeacherID != *input.TeacherID {
		t.Error("makeup slot did not inherit the original teacher")
	}

	absence, _ := env.store.GetAbsenceBySlot(ctx, original.ID)
	if absence.Status != model.AbsenceStatusRescheduled {
		t.Errorf("absence status = %q, want %q", absence.Status, model.AbsenceStatusRescheduled)
	}
	if absence.AdminNotes == nil {
		t.Error("expected admin notes describing the makeup slot")
	}
}

func TestRescheduleWithoutAbsence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original, err := env.lifecycle.Create(ctx, createInput(t))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// a plain calendar move: as-scheduled source, no absence reported
	makeup, err := env.lifecycle.Reschedule(ctx, original.ID, RescheduleInput{
		Date:      mustDate(t, "2024-06-10"),
		StartTime: mustTime(t, "10:00"),
		EndTime:   mustTime(t, "11:00"),
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if makeup.OriginalSlotID == nil || *makeup.OriginalSlotID != original.ID {
		t.Error("makeup slot does not reference the original")
	}
}

func TestRescheduleOverrides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link := "https://meet.example.com/original"
	input := createInput(t)
	input.MeetingLink = &link

	original, err := env.lifecycle.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newTeacher := uuid.New()
	newLink := "https://meet.example.com/new"
	makeup, err := env.lifecycle.Reschedule(ctx, original.ID, RescheduleInput{
		Date:        mustDate(t, "2024-06-05"),
		StartTime:   mustTime(t, "09:00"),
		EndTime:     mustTime(t, "10:00"),
		TeacherID:   &newTeacher,
		MeetingLink: &newLink,
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	if makeup.TeacherID == nil || *makeup.TeacherID != newTeacher {
		t.Error("teacher override not applied")
	}
	if makeup.MeetingLink == nil || *makeup.MeetingLink != newLink {
		t.Error("meeting link override not applied")
	}
}

func TestRescheduleInheritsMeetingLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link := "https://meet.example.com/original"
	input := createInput(t)
	input.MeetingLink = &link

	original, _ := env.lifecycle.Create(ctx, input)
	makeup, err := env.lifecycle.Reschedule(ctx, original.ID, RescheduleInput{
		Date:      mustDate(t, "2024-06-05"),
		StartTime: mustTime(t, "09:00"),
		EndTime:   mustTime(t, "10:00"),
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if makeup.MeetingLink == nil || *makeup.MeetingLink != link {
		t.Error("meeting link was not inherited")
	}
}

func TestRescheduleErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	valid := RescheduleInput{
		Date:      mustDate(t, "2024-06-05"),
		StartTime: mustTime(t, "16:00"),
		EndTime:   mustTime(t, "17:00"),
	}

	if _, err := env.lifecycle.Reschedule(ctx, uuid.New(), valid); !apperr.IsNotFound(err) {
		t.Errorf("Reschedule of missing slot error = %v, want NotFoundError", err)
	}

	slot, _ := env.lifecycle.Create(ctx, createInput(t))

	bad := valid
	bad.StartTime = mustTime(t, "17:00")
	bad.EndTime = mustTime(t, "16:00")
	if _, err := env.lifecycle.Reschedule(ctx, slot.ID, bad); !apperr.IsValidation(err) {
		t.Errorf("Reschedule with bad range error = %v, want ValidationError", err)
	}

	if err := env.lifecycle.MarkCompleted(ctx, slot.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if _, err := env.lifecycle.Reschedule(ctx, slot.ID, valid); !apperr.IsInvalidState(err) {
		t.Errorf("Reschedule of completed slot error = %v, want InvalidStateError", err)
	}
}

// staleReadStore serves slot reads from a snapshot, mimicking a concurrent
// caller whose precondition check raced ahead of another writer's commit.
// Writes and Atomic still go through the live store.
type staleReadStore struct {
	*memory.Store
	slots map[uuid.UUID]model.LessonSlot
}

func (s *staleReadStore) GetSlot(ctx context.Context, id uuid.UUID) (*model.LessonSlot, error) {
	if slot, ok := s.slots[id]; ok {
		cp := slot
		return &cp, nil
	}
	return s.Store.GetSlot(ctx, id)
}

func TestRescheduleRefusedWhenSourceRetiredConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := createInput(t)
	original, err := env.lifecycle.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// a second admin session still holds the as-scheduled view of the slot
	stale := &staleReadStore{
		Store: env.store,
		slots: map[uuid.UUID]model.LessonSlot{original.ID: *original},
	}
	racing := NewSlotLifecycleManager(stale, NewConflictChecker(stale), notify.NewBroker(), zap.NewNop())

	if _, err := env.lifecycle.Reschedule(ctx, original.ID, RescheduleInput{
		Date:      mustDate(t, "2024-06-05"),
		StartTime: mustTime(t, "16:00"),
		EndTime:   mustTime(t, "17:00"),
	}); err != nil {
		t.Fatalf("first Reschedule failed: %v", err)
	}

	// non-overlapping window, so only the in-transaction status guard can
	// refuse this
	_, err = racing.Reschedule(ctx, original.ID, RescheduleInput{
		Date:      mustDate(t, "2024-06-06"),
		StartTime: mustTime(t, "10:00"),
		EndTime:   mustTime(t, "11:00"),
	})
	if !apperr.IsInvalidState(err) {
		t.Fatalf("racing Reschedule error = %v, want InvalidStateError", err)
	}

	details, err := env.store.ListStudentSlotDetails(ctx, input.StudentID, mustDate(t, "2024-06-01"), mustDate(t, "2024-06-30"))
	if err != nil {
		t.Fatalf("ListStudentSlotDetails failed: %v", err)
	}
	makeups := 0
	for _, d := range details {
		if d.OriginalSlotID != nil && *d.OriginalSlotID == original.ID {
			makeups++
		}
	}
	if makeups != 1 {
		t.Errorf("makeup slots linked to original = %d, want exactly 1", makeups)
	}
}

func TestMarkAbsentRefusedWhenStatusChangedConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, err := env.lifecycle.Create(ctx, createInput(t))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stale := &staleReadStore{
		Store: env.store,
		slots: map[uuid.UUID]model.LessonSlot{slot.ID: *slot},
	}
	racing := NewSlotLifecycleManager(stale, NewConflictChecker(stale), notify.NewBroker(), zap.NewNop())

	if _, err := env.lifecycle.MarkAbsent(ctx, slot.ID, "fever"); err != nil {
		t.Fatalf("first MarkAbsent failed: %v", err)
	}

	if _, err := racing.MarkAbsent(ctx, slot.ID, "fever reported twice"); !apperr.IsInvalidState(err) {
		t.Fatalf("racing MarkAbsent error = %v, want InvalidStateError", err)
	}

	absence, err := env.store.GetAbsenceBySlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetAbsenceBySlot failed: %v", err)
	}
	if absence == nil || absence.Reason != "fever" {
		t.Error("expected exactly the first absence request to survive")
	}
}

func TestRescheduleTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original, _ := env.lifecycle.Create(ctx, createInput(t))

	input := RescheduleInput{
		Date:      mustDate(t, "2024-06-05"),
		StartTime: mustTime(t, "16:00"),
		EndTime:   mustTime(t, "17:00"),
	}
	if _, err := env.lifecycle.Reschedule(ctx, original.ID, input); err != nil {
		t.Fatalf("first Reschedule failed: %v", err)
	}

	input.Date = mustDate(t, "2024-06-06")
	if _, err := env.lifecycle.Reschedule(ctx, original.ID, input); !apperr.IsInvalidState(err) {
		t.Errorf("second Reschedule error = %v, want InvalidStateError", err)
	}
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, _ := env.lifecycle.Create(ctx, createInput(t))

	newDate := mustDate(t, "2024-06-04")
	newStart := mustTime(t, "18:00")
	newEnd := mustTime(t, "19:00")
	notes := "moved one day later"

	updated, err := env.lifecycle.Update(ctx, slot.ID, UpdateSlotInput{
		Date:      &newDate,
		StartTime: &newStart,
		EndTime:   &newEnd,
		Notes:     &notes,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if !updated.Date.Equal(newDate) {
		t.Errorf("date = %s, want %s", updated.Date, newDate)
	}
	if updated.Status != model.SlotStatusAsScheduled {
		t.Error("Update must not change status")
	}
	if updated.Notes == nil || *updated.Notes != notes {
		t.Error("notes patch not applied")
	}
}

func TestUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, _ := env.lifecycle.Create(ctx, createInput(t))

	// patch that flips the ordering of the resulting window
	badEnd := mustTime(t, "15:00")
	if _, err := env.lifecycle.Update(ctx, slot.ID, UpdateSlotInput{EndTime: &badEnd}); !apperr.IsValidation(err) {
		t.Errorf("Update error = %v, want ValidationError", err)
	}

	badLink := "::not a url::"
	if _, err := env.lifecycle.Update(ctx, slot.ID, UpdateSlotInput{MeetingLink: &badLink}); !apperr.IsValidation(err) {
		t.Errorf("Update error = %v, want ValidationError", err)
	}

	if _, err := env.lifecycle.Update(ctx, uuid.New(), UpdateSlotInput{}); !apperr.IsNotFound(err) {
		t.Errorf("Update of missing slot error = %v, want NotFoundError", err)
	}
}

func TestMarkCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, _ := env.lifecycle.Create(ctx, createInput(t))

	if err := env.lifecycle.MarkCompleted(ctx, slot.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	stored, _ := env.store.GetSlot(ctx, slot.ID)
	if stored.Status != model.SlotStatusCompleted {
		t.Errorf("status = %q, want %q", stored.Status, model.SlotStatusCompleted)
	}

	if err := env.lifecycle.MarkCompleted(ctx, slot.ID); !apperr.IsInvalidState(err) {
		t.Errorf("second MarkCompleted error = %v, want InvalidStateError", err)
	}
}

func TestDeleteCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, _ := env.lifecycle.Create(ctx, createInput(t))
	if _, err := env.lifecycle.MarkAbsent(ctx, slot.ID, "fever"); err != nil {
		t.Fatalf("MarkAbsent failed: %v", err)
	}

	req := &model.AdditionalLessonRequest{
		StudentID:          slot.StudentID,
		LessonSlotID:       &slot.ID,
		RequestedDate:      slot.Date,
		RequestedStartTime: slot.StartTime,
		RequestedEndTime:   slot.EndTime,
		Status:             model.AdditionalRequestStatusApproved,
	}
	if err := env.store.CreateAdditionalRequest(ctx, req); err != nil {
		t.Fatalf("CreateAdditionalRequest failed: %v", err)
	}

	if err := env.lifecycle.Delete(ctx, slot.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got, _ := env.store.GetSlot(ctx, slot.ID); got != nil {
		t.Error("slot still retrievable after delete")
	}
	if got, _ := env.store.GetAbsenceBySlot(ctx, slot.ID); got != nil {
		t.Error("absence request still retrievable after delete")
	}
	if got, _ := env.store.GetAdditionalRequest(ctx, req.ID); got != nil {
		t.Error("additional request still retrievable after delete")
	}
}

func TestDeleteMissing(t *testing.T) {
	env := newTestEnv(t)

	if err := env.lifecycle.Delete(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("Delete error = %v, want NotFoundError", err)
	}
}

func TestApproveAdditionalRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := &model.AdditionalLessonRequest{
		StudentID:          uuid.New(),
		RequestedDate:      mustDate(t, "2024-06-07"),
		RequestedStartTime: mustTime(t, "18:00"),
		RequestedEndTime:   mustTime(t, "19:00"),
		Status:             model.AdditionalRequestStatusPending,
	}
	if err := env.store.CreateAdditionalRequest(ctx, req); err != nil {
		t.Fatalf("CreateAdditionalRequest failed: %v", err)
	}

	teacherID := uuid.New()
	slot, err := env.lifecycle.ApproveAdditionalRequest(ctx, req.ID, &teacherID, nil)
	if err != nil {
		t.Fatalf("ApproveAdditionalRequest failed: %v", err)
	}

	if slot.SlotType != model.SlotTypeAdditional {
		t.Errorf("slot type = %q, want %q", slot.SlotType, model.SlotTypeAdditional)
	}
	if slot.Status != model.SlotStatusAsScheduled {
		t.Errorf("slot status = %q, want %q", slot.Status, model.SlotStatusAsScheduled)
	}

	stored, _ := env.store.GetAdditionalRequest(ctx, req.ID)
	if stored.Status != model.AdditionalRequestStatusApproved {
		t.Errorf("request status = %q, want %q", stored.Status, model.AdditionalRequestStatusApproved)
	}
	if stored.LessonSlotID == nil || *stored.LessonSlotID != slot.ID {
		t.Error("request is not linked to the created slot")
	}

	if _, err := env.lifecycle.ApproveAdditionalRequest(ctx, req.ID, nil, nil); !apperr.IsInvalidState(err) {
		t.Errorf("second approval error = %v, want InvalidStateError", err)
	}
}

func TestRejectAdditionalRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := &model.AdditionalLessonRequest{
		StudentID:          uuid.New(),
		RequestedDate:      mustDate(t, "2024-06-07"),
		RequestedStartTime: mustTime(t, "18:00"),
		RequestedEndTime:   mustTime(t, "19:00"),
		Status:             model.AdditionalRequestStatusPending,
	}
	if err := env.store.CreateAdditionalRequest(ctx, req); err != nil {
		t.Fatalf("CreateAdditionalRequest failed: %v", err)
	}

	notes := "no teacher available that week"
	if err := env.lifecycle.RejectAdditionalRequest(ctx, req.ID, &notes); err != nil {
		t.Fatalf("RejectAdditionalRequest failed: %v", err)
	}

	stored, _ := env.store.GetAdditionalRequest(ctx, req.ID)
	if stored.Status != model.AdditionalRequestStatusRejected {
		t.Errorf("request status = %q, want %q", stored.Status, model.AdditionalRequestStatusRejected)
	}
	if stored.AdminNotes == nil || *stored.AdminNotes != notes {
		t.Error("admin notes were not recorded")
	}

	if err := env.lifecycle.RejectAdditionalRequest(ctx, uuid.New(), nil); !apperr.IsNotFound(err) {
		t.Errorf("reject of missing request error = %v, want NotFoundError", err)
	}
}

// TestAbsentLifecycleScenario walks the full absence-and-reschedule path an
// admin takes when a student reports sick.
func TestAbsentLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacherID := uuid.New()
	studentID := uuid.New()

	slot, err := env.lifecycle.Create(ctx, CreateSlotInput{
		StudentID: studentID,
		TeacherID: &teacherID,
		SlotType:  model.SlotTypeRegular,
		Date:      mustDate(t, "2024-06-03"),
		StartTime: mustTime(t, "16:00"),
		EndTime:   mustTime(t, "17:00"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if slot.Status != model.SlotStatusAsScheduled {
		t.Fatalf("status = %q, want as_scheduled", slot.Status)
	}

	absence, err := env.lifecycle.MarkAbsent(ctx, slot.ID, "fever")
	if err != nil {
		t.Fatalf("MarkAbsent failed: %v", err)
	}
	if absence.Status != model.AbsenceStatusUnrescheduled {
		t.Fatalf("absence status = %q, want unrescheduled", absence.Status)
	}

	makeup, err := env.lifecycle.Reschedule(ctx, slot.ID, RescheduleInput{
		Date:      mustDate(t, "2024-06-05"),
		StartTime: mustTime(t, "16:00"),
		EndTime:   mustTime(t, "17:00"),
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	original, _ := env.store.GetSlot(ctx, slot.ID)
	if original.Status != model.SlotStatusRescheduledSource {
		t.Errorf("original status = %q, want rescheduled_source", original.Status)
	}
	if makeup.SlotType != model.SlotTypeMakeup || makeup.Status != model.SlotStatusAsScheduled {
		t.Errorf("makeup = %q/%q, want makeup/as_scheduled", makeup.SlotType, makeup.Status)
	}
	if makeup.OriginalSlotID == nil || *makeup.OriginalSlotID != slot.ID {
		t.Error("makeup does not link back to the original")
	}

	finalAbsence, _ := env.store.GetAbsenceBySlot(ctx, slot.ID)
	if finalAbsence.Status != model.AbsenceStatusRescheduled {
		t.Errorf("absence status = %q, want rescheduled", finalAbsence.Status)
	}
}
