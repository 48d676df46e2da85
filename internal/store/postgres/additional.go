package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

const additionalColumns = `
	id, student_id, teacher_id, lesson_slot_id,
	to_char(requested_date, 'YYYY-MM-DD'),
	to_char(requested_start_time, 'HH24:MI'),
	to_char(requested_end_time, 'HH24:MI'),
	status, admin_notes, created_at, updated_at
`

func scanAdditional(row pgx.Row) (*model.AdditionalLessonRequest, error) {
	var (
		req              model.AdditionalLessonRequest
		date, start, end string
	)

	err := row.Scan(
		&req.ID,
		&req.StudentID,
		&req.TeacherID,
		&req.LessonSlotID,
		&date,
		&start,
		&end,
		&req.Status,
		&req.AdminNotes,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.RequestedDate, err = model.ParseDateOnly(date); err != nil {
		return nil, fmt.Errorf("scan requested date: %w", err)
	}
	if req.RequestedStartTime, err = model.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("scan requested start time: %w", err)
	}
	if req.RequestedEndTime, err = model.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("scan requested end time: %w", err)
	}
	return &req, nil
}

func (s *Store) CreateAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	query := `
		INSERT INTO additional_lesson_requests
			(id, student_id, teacher_id, lesson_slot_id, requested_date,
			 requested_start_time, requested_end_time, status, admin_notes)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7::time, $8, $9)
		RETURNING created_at, updated_at
	`

	err := s.q.QueryRow(
		ctx, query,
		req.ID,
		req.StudentID,
		req.TeacherID,
		req.LessonSlotID,
		req.RequestedDate.String(),
		req.RequestedStartTime.String(),
		req.RequestedEndTime.String(),
		req.Status,
		req.AdminNotes,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create additional request: %w", err)
	}
	return nil
}

func (s *Store) GetAdditionalRequest(ctx context.Context, id uuid.UUID) (*model.AdditionalLessonRequest, error) {
	query := `SELECT ` + additionalColumns + ` FROM additional_lesson_requests WHERE id = $1`

	req, err := scanAdditional(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get additional request: %w", err)
	}
	return req, nil
}

func (s *Store) UpdateAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error {
	query := `
		UPDATE additional_lesson_requests
		SET teacher_id = $1, lesson_slot_id = $2, requested_date = $3::date,
		    requested_start_time = $4::time, requested_end_time = $5::time,
		    status = $6, admin_notes = $7, updated_at = now()
		WHERE id = $8
	`

	result, err := s.q.Exec(
		ctx, query,
		req.TeacherID,
		req.LessonSlotID,
		req.RequestedDate.String(),
		req.RequestedStartTime.String(),
		req.RequestedEndTime.String(),
		req.Status,
		req.AdminNotes,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("update additional request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ResolveAdditionalRequest conditions the write on the row still being
// pending, so approve and reject can never both land on one request.
func (s *Store) ResolveAdditionalRequest(ctx context.Context, req *model.AdditionalLessonRequest) error {
	query := `
		UPDATE additional_lesson_requests
		SET teacher_id = $1, lesson_slot_id = $2, status = $3, admin_notes = $4, updated_at = now()
		WHERE id = $5 AND status = 'pending'
	`

	result, err := s.q.Exec(
		ctx, query,
		req.TeacherID,
		req.LessonSlotID,
		req.Status,
		req.AdminNotes,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("resolve additional request: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = s.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM additional_lesson_requests WHERE id = $1)`, req.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("resolve additional request: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrStatusChanged
}

func (s *Store) DeleteAdditionalRequestsBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	result, err := s.q.Exec(ctx, `DELETE FROM additional_lesson_requests WHERE lesson_slot_id = $1`, slotID)
	if err != nil {
		return 0, fmt.Errorf("delete additional requests by slot: %w", err)
	}
	return result.RowsAffected(), nil
}
