package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
)

// ListStudentSlotDetails is the read-side query behind the student weekly
// calendar: slots joined with the teacher's display name and any linked
// absence or additional-lesson request.
func (s *Store) ListStudentSlotDetails(ctx context.Context, studentID uuid.UUID, from, to model.DateOnly) ([]*model.SlotDetail, error) {
	query := `
		SELECT
			ls.id, ls.student_id, ls.teacher_id, ls.slot_type,
			to_char(ls.date, 'YYYY-MM-DD'),
			to_char(ls.start_time, 'HH24:MI'),
			to_char(ls.end_time, 'HH24:MI'),
			ls.meeting_link, ls.status, ls.original_slot_id, ls.notes,
			ls.created_at, ls.updated_at,
			t.name,
			ar.id, ar.reason, ar.request_timestamp, ar.status, ar.admin_notes,
			alr.id, alr.student_id, alr.teacher_id,
			to_char(alr.requested_date, 'YYYY-MM-DD'),
			to_char(alr.requested_start_time, 'HH24:MI'),
			to_char(alr.requested_end_time, 'HH24:MI'),
			alr.status, alr.admin_notes, alr.created_at, alr.updated_at
		FROM lesson_slots ls
		LEFT JOIN teachers t ON t.id = ls.teacher_id
		LEFT JOIN LATERAL (
			SELECT id, reason, request_timestamp, status, admin_notes
			FROM absence_requests
			WHERE lesson_slot_id = ls.id
			ORDER BY request_timestamp DESC
			LIMIT 1
		) ar ON true
		LEFT JOIN LATERAL (
			SELECT id, student_id, teacher_id, requested_date,
			       requested_start_time, requested_end_time,
			       status, admin_notes, created_at, updated_at
			FROM additional_lesson_requests
			WHERE lesson_slot_id = ls.id
			ORDER BY created_at DESC
			LIMIT 1
		) alr ON true
		WHERE ls.student_id = $1
		  AND ls.date >= $2::date
		  AND ls.date <= $3::date
		ORDER BY ls.date, ls.start_time
	`

	rows, err := s.q.Query(ctx, query, studentID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list student slot details: %w", err)
	}
	defer rows.Close()

	var details []*model.SlotDetail
	for rows.Next() {
		var (
			d                model.SlotDetail
			date, start, end string

			arID        *uuid.UUID
			arReason    *string
			arTimestamp *time.Time
			arStatus    *string
			arNotes     *string

			alrID        *uuid.UUID
			alrStudentID *uuid.UUID
			alrTeacherID *uuid.UUID
			alrDate      *string
			alrStart     *string
			alrEnd       *string
			alrStatus    *string
			alrNotes     *string
			alrCreatedAt *time.Time
			alrUpdatedAt *time.Time
		)

		err := rows.Scan(
			&d.ID,
			&d.StudentID,
			&d.TeacherID,
			&d.SlotType,
			&date,
			&start,
			&end,
			&d.MeetingLink,
			&d.Status,
			&d.OriginalSlotID,
			&d.Notes,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.TeacherName,
			&arID, &arReason, &arTimestamp, &arStatus, &arNotes,
			&alrID, &alrStudentID, &alrTeacherID,
			&alrDate, &alrStart, &alrEnd,
			&alrStatus, &alrNotes, &alrCreatedAt, &alrUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot detail: %w", err)
		}

		if d.Date, err = model.ParseDateOnly(date); err != nil {
			return nil, fmt.Errorf("scan slot detail date: %w", err)
		}
		if d.StartTime, err = model.ParseTimeOfDay(start); err != nil {
			return nil, fmt.Errorf("scan slot detail start time: %w", err)
		}
		if d.EndTime, err = model.ParseTimeOfDay(end); err != nil {
			return nil, fmt.Errorf("scan slot detail end time: %w", err)
		}

		if arID != nil {
			d.Absence = &model.AbsenceRequest{
				ID:               *arID,
				LessonSlotID:     d.ID,
				Reason:           *arReason,
				RequestTimestamp: *arTimestamp,
				Status:           model.AbsenceStatus(*arStatus),
				AdminNotes:       arNotes,
			}
		}

		if alrID != nil {
			slotID := d.ID
			req := &model.AdditionalLessonRequest{
				ID:           *alrID,
				StudentID:    *alrStudentID,
				TeacherID:    alrTeacherID,
				LessonSlotID: &slotID,
				Status:       model.AdditionalRequestStatus(*alrStatus),
				AdminNotes:   alrNotes,
				CreatedAt:    *alrCreatedAt,
				UpdatedAt:    *alrUpdatedAt,
			}
			if req.RequestedDate, err = model.ParseDateOnly(*alrDate); err != nil {
				return nil, fmt.Errorf("scan additional request date: %w", err)
			}
			if req.RequestedStartTime, err = model.ParseTimeOfDay(*alrStart); err != nil {
				return nil, fmt.Errorf("scan additional request start time: %w", err)
			}
			if req.RequestedEndTime, err = model.ParseTimeOfDay(*alrEnd); err != nil {
				return nil, fmt.Errorf("scan additional request end time: %w", err)
			}
			d.AdditionalRequest = req
		}

		details = append(details, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot details: %w", err)
	}
	return details, nil
}
