package registration

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"coursely/internal/shared/utils/response"
)

type Controller struct {
	service   *Service
	validator *validator.Validate
}

func NewController(service *Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

func (c *Controller) respondErr(ctx *gin.Context, err error) {
	code := CodeOf(err)
	response.Error(ctx, code.HTTPStatus(), string(code), err.Error())
}

func (c *Controller) bindAndValidate(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.ValidationError(ctx, http.StatusBadRequest, string(CodeConfigurationInvalid), "Invalid request body", err.Error())
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.ValidationError(ctx, http.StatusBadRequest, string(CodeConfigurationInvalid), "Validation failed", err.Error())
		return false
	}
	return true
}

func (c *Controller) Apply(ctx *gin.Context) {
	var req ApplyRequestDTO
	if !c.bindAndValidate(ctx, &req) {
		return
	}

	result, err := c.service.Apply(ctx.Request.Context(), ApplyRequest{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		PreferredSeat: req.PreferredSeat,
		AutoRegister:  req.AutoRegister,
	})
	if err != nil {
		c.respondErr(ctx, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == OutcomeEnrolled {
		status = http.StatusCreated
	}
	response.JSON(ctx, status, string(result.Outcome), "Application processed", result)
}

func (c *Controller) ApplyAll(ctx *gin.Context) {
	var req ApplyAllRequestDTO
	if !c.bindAndValidate(ctx, &req) {
		return
	}

	items, err := c.service.ApplyAll(ctx.Request.Context(), req.StudentID, req.AutoRegister)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "Applied to all preferred courses", items)
}

func (c *Controller) BookSeat(ctx *gin.Context) {
	var req BookSeatRequestDTO
	if !c.bindAndValidate(ctx, &req) {
		return
	}

	result, err := c.service.BookSeat(ctx.Request.Context(), req.StudentID, req.CourseID, req.SeatLabel)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusCreated, string(result.Outcome), "Seat booked", result)
}

func (c *Controller) Drop(ctx *gin.Context) {
	var req DropRequestDTO
	if !c.bindAndValidate(ctx, &req) {
		return
	}

	result, err := c.service.Drop(ctx.Request.Context(), req.StudentID, req.CourseID)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	message := "Seat released"
	if !result.Dropped {
		message = "No active booking to release"
	}
	response.JSON(ctx, http.StatusOK, "success", message, result)
}

func (c *Controller) LeaveWaitlist(ctx *gin.Context) {
	removed, err := c.service.LeaveWaitlist(ctx.Request.Context(), ctx.Param("student_id"), ctx.Param("course_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	message := "Left waitlist"
	if !removed {
		message = "Student was not waitlisted"
	}
	response.JSON(ctx, http.StatusOK, "success", message, gin.H{"removed": removed})
}

func (c *Controller) OpenBooking(ctx *gin.Context) {
	var req OpenBookingRequestDTO
	if !c.bindAndValidate(ctx, &req) {
		return
	}

	cfg, err := c.service.OpenBooking(ctx.Request.Context(), ctx.Param("course_id"), req.Rows, req.SeatsPerRow)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "Booking opened", cfg)
}

func (c *Controller) CloseBooking(ctx *gin.Context) {
	cfg, err := c.service.CloseBooking(ctx.Request.Context(), ctx.Param("course_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "Booking closed", cfg)
}

func (c *Controller) StartCourse(ctx *gin.Context) {
	cfg, err := c.service.StartCourse(ctx.Request.Context(), ctx.Param("course_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "Course started", cfg)
}

func (c *Controller) CompleteCourse(ctx *gin.Context) {
	cfg, err := c.service.CompleteCourse(ctx.Request.Context(), ctx.Param("course_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "Course completed", cfg)
}

func (c *Controller) RunAllocation(ctx *gin.Context) {
	var req AllocationRequestDTO
	if !c.bindAndValidate(ctx, &req) {
		return
	}

	report, err := c.service.RunAllocation(ctx.Request.Context(), req.CourseIDs, req.Strategy)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "Allocation completed", report)
}

func (c *Controller) ListCourses(ctx *gin.Context) {
	items, err := c.service.ListCourses(ctx.Request.Context())
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "", gin.H{
		"courses": items,
		"total":   len(items),
	})
}

func (c *Controller) GetPreferences(ctx *gin.Context) {
	prefs, err := c.service.Preferences(ctx.Request.Context(), ctx.Param("student_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "", gin.H{
		"preferences": prefs,
		"total":       len(prefs),
	})
}

func (c *Controller) ReplacePreferences(ctx *gin.Context) {
	var req ReplacePreferencesRequestDTO
	if !c.bindAndValidate(ctx, &req) {
		return
	}

	inputs := make([]PreferenceInput, 0, len(req.Preferences))
	for _, p := range req.Preferences {
		inputs = append(inputs, PreferenceInput{
			CourseID:    p.CourseID,
			Priority:    p.Priority,
			MatchReason: p.MatchReason,
		})
	}
	prefs, err := c.service.ReplacePreferences(ctx.Request.Context(), req.StudentID, inputs)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "Preference list replaced", gin.H{
		"preferences": prefs,
		"total":       len(prefs),
	})
}

func (c *Controller) GetClassroom(ctx *gin.Context) {
	view, err := c.service.ClassroomState(ctx.Request.Context(), ctx.Param("course_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "", view)
}

func (c *Controller) GetCourseStatus(ctx *gin.Context) {
	view, err := c.service.CourseStatus(ctx.Request.Context(), ctx.Param("course_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "", view)
}

func (c *Controller) GetWaitlist(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}
	entries, err := c.service.WaitlistView(ctx.Request.Context(), ctx.Param("course_id"), limit)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "", gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

func (c *Controller) GetStudentStatus(ctx *gin.Context) {
	view, err := c.service.StudentStatus(ctx.Request.Context(), ctx.Param("student_id"))
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "", view)
}

func (c *Controller) GetHistory(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	events, err := c.service.History(ctx.Request.Context(), ctx.Param("course_id"), limit)
	if err != nil {
		c.respondErr(ctx, err)
		return
	}
	response.JSON(ctx, http.StatusOK, "success", "", gin.H{
		"events": events,
		"total":  len(events),
	})
}
