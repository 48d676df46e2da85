package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

const slotColumns = `
	id, student_id, teacher_id, slot_type,
	to_char(date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'),
	to_char(end_time, 'HH24:MI'),
	meeting_link, status, original_slot_id, notes, created_at, updated_at
`

func scanSlot(row pgx.Row) (*model.LessonSlot, error) {
	var (
		slot             model.LessonSlot
		date, start, end string
	)

	err := row.Scan(
		&slot.ID,
		&slot.StudentID,
		&slot.TeacherID,
		&slot.SlotType,
		&date,
		&start,
		&end,
		&slot.MeetingLink,
		&slot.Status,
		&slot.OriginalSlotID,
		&slot.Notes,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if slot.Date, err = model.ParseDateOnly(date); err != nil {
		return nil, fmt.Errorf("scan slot date: %w", err)
	}
	if slot.StartTime, err = model.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("scan slot start time: %w", err)
	}
	if slot.EndTime, err = model.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("scan slot end time: %w", err)
	}
	return &slot, nil
}

func (s *Store) CreateSlot(ctx context.Context, slot *model.LessonSlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}

	query := `
		INSERT INTO lesson_slots
			(id, student_id, teacher_id, slot_type, date, start_time, end_time,
			 meeting_link, status, original_slot_id, notes)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7::time, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := s.q.QueryRow(
		ctx, query,
		slot.ID,
		slot.StudentID,
		slot.TeacherID,
		slot.SlotType,
		slot.Date.String(),
		slot.StartTime.String(),
		slot.EndTime.String(),
		slot.MeetingLink,
		slot.Status,
		slot.OriginalSlotID,
		slot.Notes,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return mapWriteError("create slot", err)
	}
	return nil
}

func (s *Store) GetSlot(ctx context.Context, id uuid.UUID) (*model.LessonSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM lesson_slots WHERE id = $1`

	slot, err := scanSlot(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}
	return slot, nil
}

func (s *Store) UpdateSlot(ctx context.Context, slot *model.LessonSlot) error {
	query := `
		UPDATE lesson_slots
		SET teacher_id = $1, slot_type = $2, date = $3::date,
		    start_time = $4::time, end_time = $5::time, meeting_link = $6,
		    status = $7, original_slot_id = $8, notes = $9, updated_at = now()
		WHERE id = $10
	`

	result, err := s.q.Exec(
		ctx, query,
		slot.TeacherID,
		slot.SlotType,
		slot.Date.String(),
		slot.StartTime.String(),
		slot.EndTime.String(),
		slot.MeetingLink,
		slot.Status,
		slot.OriginalSlotID,
		slot.Notes,
		slot.ID,
	)
	if err != nil {
		return mapWriteError("update slot", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateSlotStatus is a single conditional write, so concurrent lifecycle
// transitions race on the database row instead of on a stale read.
func (s *Store) UpdateSlotStatus(ctx context.Context, id uuid.UUID, to model.SlotStatus, from ...model.SlotStatus) error {
	allowed := make([]string, len(from))
	for i, status := range from {
		allowed[i] = string(status)
	}

	query := `
		UPDATE lesson_slots
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`

	result, err := s.q.Exec(ctx, query, to, id, allowed)
	if err != nil {
		return mapWriteError("update slot status", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lesson_slots WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrStatusChanged
}

func (s *Store) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	result, err := s.q.Exec(ctx, `DELETE FROM lesson_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListTeacherSlots(ctx context.Context, teacherID uuid.UUID, date model.DateOnly, status model.SlotStatus) ([]*model.LessonSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM lesson_slots
		WHERE teacher_id = $1
		  AND date = $2::date
		  AND status = $3
		ORDER BY start_time
	`

	rows, err := s.q.Query(ctx, query, teacherID, date.String(), status)
	if err != nil {
		return nil, fmt.Errorf("list teacher slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.LessonSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan teacher slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teacher slots: %w", err)
	}
	return slots, nil
}
