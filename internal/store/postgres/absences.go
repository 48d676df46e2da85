package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

func (s *Store) CreateAbsence(ctx context.Context, req *model.AbsenceRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	query := `
		INSERT INTO absence_requests (id, lesson_slot_id, reason, status, admin_notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING request_timestamp
	`

	err := s.q.QueryRow(
		ctx, query,
		req.ID,
		req.LessonSlotID,
		req.Reason,
		req.Status,
		req.AdminNotes,
	).Scan(&req.RequestTimestamp)

	if err != nil {
		return fmt.Errorf("create absence request: %w", err)
	}
	return nil
}

func (s *Store) GetAbsenceBySlot(ctx context.Context, slotID uuid.UUID) (*model.AbsenceRequest, error) {
	query := `
		SELECT id, lesson_slot_id, reason, request_timestamp, status, admin_notes
		FROM absence_requests
		WHERE lesson_slot_id = $1
		ORDER BY request_timestamp DESC
		LIMIT 1
	`

	var req model.AbsenceRequest
	err := s.q.QueryRow(ctx, query, slotID).Scan(
		&req.ID,
		&req.LessonSlotID,
		&req.Reason,
		&req.RequestTimestamp,
		&req.Status,
		&req.AdminNotes,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get absence by slot: %w", err)
	}
	return &req, nil
}

func (s *Store) UpdateAbsence(ctx context.Context, req *model.AbsenceRequest) error {
	query := `
		UPDATE absence_requests
		SET reason = $1, status = $2, admin_notes = $3
		WHERE id = $4
	`

	result, err := s.q.Exec(ctx, query, req.Reason, req.Status, req.AdminNotes, req.ID)
	if err != nil {
		return fmt.Errorf("update absence request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAbsencesBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	result, err := s.q.Exec(ctx, `DELETE FROM absence_requests WHERE lesson_slot_id = $1`, slotID)
	if err != nil {
		return 0, fmt.Errorf("delete absences by slot: %w", err)
	}
	return result.RowsAffected(), nil
}
