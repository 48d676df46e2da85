// Package memory is an in-process store.Store used by tests and local
// development. It mirrors the Postgres schema rules, including the
// exclusion guard against overlapping as-scheduled slots.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

type tables struct {
	slots        map[uuid.UUID]*model.LessonSlot
	absences     map[uuid.UUID]*model.AbsenceRequest
	additional   map[uuid.UUID]*model.AdditionalLessonRequest
	teacherNames map[uuid.UUID]string
}

func newTables() *tables {
	return &tables{
		slots:        make(map[uuid.UUID]*model.LessonSlot),
		absences:     make(map[uuid.UUID]*model.AbsenceRequest),
		additional:   make(map[uuid.UUID]*model.AdditionalLessonRequest),
		teacherNames: make(map[uuid.UUID]string),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for id, s := range t.slots {
		cp := *s
		c.slots[id] = &cp
	}
	for id, a := range t.absences {
		cp := *a
		c.absences[id] = &cp
	}
	for id, r := range t.additional {
		cp := *r
		c.additional[id] = &cp
	}
	for id, n := range t.teacherNames {
		c.teacherNames[id] = n
	}
	return c
}

type Store struct {
	mu   *sync.Mutex
	data *tables
	inTx bool
}

func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newTables()}
}

// SeedTeacher registers a teacher display name for read-side joins.
// Teacher CRUD itself belongs to the admin screens, not this engine.
func (s *Store) SeedTeacher(id uuid.UUID, name string) {
	s.lock()
	defer s.unlock()
	s.data.teacherNames[id] = name
}

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

// Atomic serializes the whole unit under the store mutex and restores a
// snapshot of every table when fn fails, so no partial reschedule or
// cascade is ever visible.
func (s *Store) Atomic(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		return fn(s) // already inside a unit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}

	if err := fn(tx); err != nil {
		s.data = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) findOverlap(slot *model.LessonSlot) bool {
	if slot.Status != model.SlotStatusAsScheduled || slot.TeacherID == nil {
		return false
	}
	for _, other := range s.data.slots {
		if other.ID == slot.ID ||
			other.Status != model.SlotStatusAsScheduled ||
			other.TeacherID == nil ||
			*other.TeacherID != *slot.TeacherID ||
			!other.Date.Equal(slot.Date) {
			continue
		}
		if other.OverlapsRange(slot.StartTime, slot.EndTime) {
			return true
		}
	}
	return false
}

func (s *Store) CreateSlot(ctx context.Context, slot *model.LessonSlot) error {
	s.lock()
	defer s.unlock()

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	if s.findOverlap(slot) {
		return store.ErrOverlap
	}

	now := time.Now()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	cp := *slot
	s.data.slots[slot.ID] = &cp
	return nil
}

func (s *Store) GetSlot(ctx context.Context, id uuid.UUID) (*model.LessonSlot, error) {
	s.lock()
	defer s.unlock()

	slot, ok := s.data.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (s *Store) UpdateSlot(ctx context.Context, slot *model.LessonSlot) error {
	s.lock()
	defer s.unlock()

	existing, ok := s.data.slots[slot.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.findOverlap(slot) {
		return store.ErrOverlap
	}

	slot.CreatedAt = existing.CreatedAt
	slot.UpdatedAt = time.Now()

	cp := *slot
	s.data.slots[slot.ID] = &cp
	return nil
}

func (s *Store) UpdateSlotStatus(ctx context.Context, id uuid.UUID, to model.SlotStatus, from ...model.SlotStatus) error {
	s.lock()
	defer s.unlock()

	slot, ok := s.data.slots[id]
	if !ok {
		return store.ErrNotFound
	}

	permitted := false
	for _, status := range from {
		if slot.Status == status {
			permitted = true
			break
		}
	}
	if !permitted {
		return store.ErrStatusChanged
	}

	slot.Status = to
	slot.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.slots[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.slots, id)
	return nil
}

func (s *Store) ListTeacherSlots(ctx context.Context, teacherID uuid.UUID, date model.DateOnly, status model.SlotStatus) ([]*model.LessonSlot, error) {
	s.lock()
	defer s.unlock()

	var slots []*model.LessonSlot
	for _, slot := range s.data.slots {
		if slot.TeacherID == nil || *slot.TeacherID != teacherID {
			continue
		}
		if !slot.Date.Equal(date) || slot.Status != status {
			continue
		}
		cp := *slot
		slots = append(slots, &cp)
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})
	return slots, nil
}

func (s *Store) ListStudentSlotDetails(ctx context.Context, studentID uuid.UUID, from, to model.DateOnly) ([]*model.SlotDetail, error) {
	s.lock()
	defer s.unlock()

	var details []*model.SlotDetail
	for _, slot := range s.data.slots {
		if slot.StudentID != studentID {
			continue
		}
		if slot.Date.Before(from) || slot.Date.After(to) {
			continue
		}

		d := &model.SlotDetail{LessonSlot: *slot}
		if slot.TeacherID != nil {
			if name, ok := s.data.teacherNames[*slot.TeacherID]; ok {
				d.TeacherName = &name
			}
		}
		// latest row wins, matching the SQL read path
		for _, a := range s.data.absences {
			if a.LessonSlotID != slot.ID {
				continue
			}
			if d.Absence == nil || a.RequestTimestamp.After(d.Absence.RequestTimestamp) {
				cp := *a
				d.Absence = &cp
			}
		}
		for _, r := range s.data.additional {
			if r.LessonSlotID == nil || *r.LessonSlotID != slot.ID {
				continue
			}
			if d.AdditionalRequest == nil || r.CreatedAt.After(d.AdditionalRequest.CreatedAt) {
				cp := *r
				d.AdditionalRequest = &cp
			}
		}
		details = append(details, d)
	}

	sort.Slice(details, func(i, j int) bool {
		if !details[i].Date.Equal(details[j].Date) {
			return details[i].Date.Before(details[j].Date)
		}
		return details[i].StartTime < details[j].StartTime
	})
	return details, nil
}

func (s *Store) CreateAbsence(ctx context.Context, req *model.AbsenceRequest) error {
	s.lock()
	defer s.unlock()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.RequestTimestamp.IsZero() {
		req.RequestTimestamp = time.Now()
	}

	cp := *req
	s.data.absences[req.ID] = &cp
	return nil
}

func (s *Store) GetAbsenceBySlot(ctx context.Context, slotID uuid.UUID) (*model.AbsenceRequest, error) {
	s.lock()
	defer s.unlock()

	var latest *model.AbsenceRequest
	for _, a := range s.data.absences {
		if a.LessonSlotID != slotID {
			continue
		}
		if latest == nil || a.RequestTimestamp.After(latest.RequestTimestamp) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) UpdateAbsence(ctx context.Context, req *model.AbsenceRequest) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.absences[req.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *req
	s.data.absences[req.ID] = &cp
	return nil
}

func (s *Store) DeleteAbsencesBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	s.lock()
	defer s.unlock()

	var n int64
	for id, a := range s.data.absences {
		if a.LessonSlotID == slotID {
			delete(s.data.absences, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error {
	s.lock()
	defer s.unlock()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	cp := *req
	s.data.additional[req.ID] = &cp
	return nil
}

func (s *Store) GetAdditionalRequest(ctx context.Context, id uuid.UUID) (*model.AdditionalLessonRequest, error) {
	s.lock()
	defer s.unlock()

	req, ok := s.data.additional[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (s *Store) UpdateAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.data.additional[req.ID]; !ok {
		return store.ErrNotFound
	}
	req.UpdatedAt = time.Now()

	cp := *req
	s.data.additional[req.ID] = &cp
	return nil
}

func (s *Store) ResolveAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error {
	s.lock()
	defer s.unlock()

	existing, ok := s.data.additional[req.ID]
	if !ok {
		return store.ErrNotFound
	}
	if existing.Status != model.AdditionalRequestStatusPending {
		return store.ErrStatusChanged
	}

	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now()

	cp := *req
	s.data.additional[req.ID] = &cp
	return nil
}

func (s *Store) DeleteAdditionalRequestsBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	s.lock()
	defer s.unlock()

	var n int64
	for id, r := range s.data.additional {
		if r.LessonSlotID != nil && *r.LessonSlotID == slotID {
			delete(s.data.additional, id)
			n++
		}
	}
	return n, nil
}
