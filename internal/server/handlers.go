package server

import (
	"bufio"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itsuki2003/todaibansou-admin/internal/model"
	"github.com/itsuki2003/todaibansou-admin/internal/notify"
	"github.com/itsuki2003/todaibansou-admin/internal/service"
)

type Handlers struct {
	lifecycle *service.SlotLifecycleManager
	queries   *service.ScheduleQueryService
	checker   *service.ConflictChecker
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewHandlers(lifecycle *service.SlotLifecycleManager, queries *service.ScheduleQueryService, checker *service.ConflictChecker, logger *zap.Logger) *Handlers {
	return &Handlers{
		lifecycle: lifecycle,
		queries:   queries,
		checker:   checker,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *Handlers) Register(app *fiber.App) {
	app.Post("/slots", h.createSlot)
	app.Patch("/slots/:id", h.updateSlot)
	app.Delete("/slots/:id", h.deleteSlot)
	app.Post("/slots/:id/absence", h.markAbsent)
	app.Post("/slots/:id/complete", h.markCompleted)
	app.Post("/slots/:id/reschedule", h.reschedule)

	app.Get("/students/:id/slots", h.studentSlots)
	app.Get("/teachers/:id/slots", h.teacherSlots)
	app.Get("/teachers/:id/conflict", h.checkConflict)

	app.Post("/additional-requests/:id/approve", h.approveAdditional)
	app.Post("/additional-requests/:id/reject", h.rejectAdditional)

	app.Get("/events", h.events)
}

func (h *Handlers) parseID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) createSlot(c *fiber.Ctx) error {
	var req createSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed JSON body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	input, err := req.toInput()
	if err != nil {
		return respondError(c, err)
	}

	slot, err := h.lifecycle.Create(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

func (h *Handlers) updateSlot(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid slot id")
	}

	var req updateSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed JSON body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	input, err := req.toInput()
	if err != nil {
		return respondError(c, err)
	}

	slot, err := h.lifecycle.Update(c.Context(), id, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(slot)
}

func (h *Handlers) deleteSlot(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid slot id")
	}

	if err := h.lifecycle.Delete(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) markAbsent(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid slot id")
	}

	var req markAbsentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed JSON body")
	}

	absence, err := h.lifecycle.MarkAbsent(c.Context(), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(absence)
}

func (h *Handlers) markCompleted(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid slot id")
	}

	if err := h.lifecycle.MarkCompleted(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) reschedule(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid slot id")
	}

	var req rescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed JSON body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	input, err := req.toInput()
	if err != nil {
		return respondError(c, err)
	}

	makeup, err := h.lifecycle.Reschedule(c.Context(), id, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(makeup)
}

func (h *Handlers) studentSlots(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid student id")
	}

	from, err := model.ParseDateOnly(c.Query("from"))
	if err != nil {
		return badRequest(c, "from: "+err.Error())
	}
	to, err := model.ParseDateOnly(c.Query("to"))
	if err != nil {
		return badRequest(c, "to: "+err.Error())
	}

	details, err := h.queries.GetSlotsForStudentRange(c.Context(), id, from, to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(details)
}

func (h *Handlers) teacherSlots(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid teacher id")
	}

	date, err := model.ParseDateOnly(c.Query("date"))
	if err != nil {
		return badRequest(c, "date: "+err.Error())
	}

	slots, err := h.queries.GetSlotsForTeacherDate(c.Context(), id, date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(slots)
}

// checkConflict is the advisory pre-check: the scheduling modals call it
// before saving and decide themselves whether a hit blocks or only warns.
func (h *Handlers) checkConflict(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid teacher id")
	}

	date, err := model.ParseDateOnly(c.Query("date"))
	if err != nil {
		return badRequest(c, "date: "+err.Error())
	}
	start, err := model.ParseTimeOfDay(c.Query("start"))
	if err != nil {
		return badRequest(c, "start: "+err.Error())
	}
	end, err := model.ParseTimeOfDay(c.Query("end"))
	if err != nil {
		return badRequest(c, "end: "+err.Error())
	}

	var excludeSlotID *uuid.UUID
	if exclude := c.Query("exclude"); exclude != "" {
		excludeID, err := uuid.Parse(exclude)
		if err != nil {
			return badRequest(c, "exclude: must be a UUID")
		}
		excludeSlotID = &excludeID
	}

	hit, err := h.checker.CheckConflict(c.Context(), id, date, start, end, excludeSlotID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"conflict": hit != nil,
		"slot":     hit,
	})
}

func (h *Handlers) approveAdditional(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var req approveAdditionalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed JSON body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	var teacherID *uuid.UUID
	if req.TeacherID != nil {
		parsed, err := uuid.Parse(*req.TeacherID)
		if err != nil {
			return badRequest(c, "teacher_id: must be a UUID")
		}
		teacherID = &parsed
	}

	slot, err := h.lifecycle.ApproveAdditionalRequest(c.Context(), id, teacherID, req.MeetingLink)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

func (h *Handlers) rejectAdditional(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var req rejectAdditionalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed JSON body")
	}

	if err := h.lifecycle.RejectAdditionalRequest(c.Context(), id, req.AdminNotes); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

const heartbeatInterval = 15 * time.Second

// streamEvents forwards change events to an open stream, interleaving SSE
// comment lines so a disconnected client is noticed between events instead
// of holding the subscription until the next mutation.
func streamEvents(w *bufio.Writer, events <-chan notify.Table, heartbeat <-chan time.Time) {
	for {
		select {
		case table, ok := <-events:
			if !ok {
				return
			}
			if _, err := w.WriteString("data: " + string(table) + "\n\n"); err != nil {
				return
			}
		case <-heartbeat:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// events streams change notifications as server-sent events. The payload
// is only the table name; clients re-fetch whatever they display.
func (h *Handlers) events(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	sub := h.queries.Subscribe()
	ticker := time.NewTicker(heartbeatInterval)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Unsubscribe()
		defer ticker.Stop()
		streamEvents(w, sub.C, ticker.C)
	})
	return nil
}
