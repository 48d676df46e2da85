package server

import (
	"github.com/google/uuid"

	"github.com/itsuki2003/todaibansou-admin/internal/apperr"
	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/service"
)

type createSlotRequest struct {
	StudentID   string  `json:"student_id" validate:"required,uuid"`
	TeacherID   *string `json:"teacher_id" validate:"omitempty,uuid"`
	SlotType    string  `json:"slot_type" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	MeetingLink *string `json:"meeting_link"`
	Notes       *string `json:"notes"`
}

func (r *createSlotRequest) toInput() (service.CreateSlotInput, error) {
	var input service.CreateSlotInput

	studentID, err := uuid.Parse(r.StudentID)
	if err != nil {
		return input, apperr.Validation("student_id", "must be a UUID")
	}
	input.StudentID = studentID

	if r.TeacherID != nil {
		teacherID, err := uuid.Parse(*r.TeacherID)
		if err != nil {
			return input, apperr.Validation("teacher_id", "must be a UUID")
		}
		input.TeacherID = &teacherID
	}

	input.SlotType = model.SlotType(r.SlotType)

	if input.Date, err = model.ParseDateOnly(r.Date); err != nil {
		return input, apperr.Validation("date", err.Error())
	}
	if input.StartTime, err = model.ParseTimeOfDay(r.StartTime); err != nil {
		return input, apperr.Validation("start_time", err.Error())
	}
	if input.EndTime, err = model.ParseTimeOfDay(r.EndTime); err != nil {
		return input, apperr.Validation("end_time", err.Error())
	}

	input.MeetingLink = r.MeetingLink
	input.Notes = r.Notes
	return input, nil
}

type markAbsentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type rescheduleRequest struct {
	Date        string  `json:"date" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	TeacherID   *string `json:"teacher_id" validate:"omitempty,uuid"`
	MeetingLink *string `json:"meeting_link"`
	Notes       *string `json:"notes"`
}

func (r *rescheduleRequest) toInput() (service.RescheduleInput, error) {
	var (
		input service.RescheduleInput
		err   error
	)

	if input.Date, err = model.ParseDateOnly(r.Date); err != nil {
		return input, apperr.Validation("date", err.Error())
	}
	if input.StartTime, err = model.ParseTimeOfDay(r.StartTime); err != nil {
		return input, apperr.Validation("start_time", err.Error())
	}
	if input.EndTime, err = model.ParseTimeOfDay(r.EndTime); err != nil {
		return input, apperr.Validation("end_time", err.Error())
	}

	if r.TeacherID != nil {
		teacherID, err := uuid.Parse(*r.TeacherID)
		if err != nil {
			return input, apperr.Validation("teacher_id", "must be a UUID")
		}
		input.TeacherID = &teacherID
	}

	input.MeetingLink = r.MeetingLink
	input.Notes = r.Notes
	return input, nil
}

type updateSlotRequest struct {
	TeacherID   *string `json:"teacher_id" validate:"omitempty,uuid"`
	SlotType    *string `json:"slot_type"`
	Date        *string `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	MeetingLink *string `json:"meeting_link"`
	Notes       *string `json:"notes"`
}

func (r *updateSlotRequest) toInput() (service.UpdateSlotInput, error) {
	var input service.UpdateSlotInput

	if r.TeacherID != nil {
		teacherID, err := uuid.Parse(*r.TeacherID)
		if err != nil {
			return input, apperr.Validation("teacher_id", "must be a UUID")
		}
		input.TeacherID = &teacherID
	}
	if r.SlotType != nil {
		slotType := model.SlotType(*r.SlotType)
		input.SlotType = &slotType
	}
	if r.Date != nil {
		date, err := model.ParseDateOnly(*r.Date)
		if err != nil {
			return input, apperr.Validation("date", err.Error())
		}
		input.Date = &date
	}
	if r.StartTime != nil {
		start, err := model.ParseTimeOfDay(*r.StartTime)
		if err != nil {
			return input, apperr.Validation("start_time", err.Error())
		}
		input.StartTime = &start
	}
	if r.EndTime != nil {
		end, err := model.ParseTimeOfDay(*r.EndTime)
		if err != nil {
			return input, apperr.Validation("end_time", err.Error())
		}
		input.EndTime = &end
	}

	input.MeetingLink = r.MeetingLink
	input.Notes = r.Notes
	return input, nil
}

type approveAdditionalRequest struct {
	TeacherID   *string `json:"teacher_id" validate:"omitempty,uuid"`
	MeetingLink *string `json:"meeting_link"`
}

type rejectAdditionalRequest struct {
	AdminNotes *string `json:"admin_notes"`
}
