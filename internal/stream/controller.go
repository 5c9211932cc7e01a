package stream

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"coursely/internal/eventbus"
	"coursely/internal/shared/utils/response"
)

const heartbeatInterval = 15 * time.Second

// courseUpdateEvent is the SSE event name clients listen on; the concrete
// change type travels inside the frame body.
const courseUpdateEvent = "course:update"

type Controller struct {
	hub *Hub
}

func NewController(hub *Hub) *Controller {
	return &Controller{hub: hub}
}

// SubscribeRequestDTO registers a student on a course channel.
type SubscribeRequestDTO struct {
	StudentID string `json:"student_id" binding:"required"`
	CourseID  string `json:"course_id" binding:"required"`
}

func (c *Controller) Subscribe(ctx *gin.Context) {
	var req SubscribeRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ValidationError(ctx, http.StatusBadRequest, "CONFIGURATION_INVALID", "Invalid request body", err.Error())
		return
	}
	c.hub.Subscribe(req.StudentID, req.CourseID)
	response.JSON(ctx, http.StatusOK, "success", "Subscribed to course channel", gin.H{
		"student_id": req.StudentID,
		"channels":   c.hub.Interests(req.StudentID),
	})
}

func (c *Controller) Unsubscribe(ctx *gin.Context) {
	var req SubscribeRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ValidationError(ctx, http.StatusBadRequest, "CONFIGURATION_INVALID", "Invalid request body", err.Error())
		return
	}
	removed := c.hub.Unsubscribe(req.StudentID, req.CourseID)
	message := "Unsubscribed from course channel"
	if !removed {
		message = "Student was not subscribed"
	}
	response.JSON(ctx, http.StatusOK, "success", message, gin.H{
		"student_id": req.StudentID,
		"channels":   c.hub.Interests(req.StudentID),
	})
}

// StreamCourse serves the live event feed of one course over SSE.
func (c *Controller) StreamCourse(ctx *gin.Context) {
	events := c.hub.CourseEvents(ctx.Request.Context(), ctx.Param("course_id"))
	c.stream(ctx, events)
}

// StreamStudent serves the merged feed of every course the student follows.
func (c *Controller) StreamStudent(ctx *gin.Context) {
	studentID := ctx.Param("student_id")
	if len(c.hub.Interests(studentID)) == 0 {
		response.Error(ctx, http.StatusNotFound, "NOT_FOUND", "student has no channel subscriptions")
		return
	}
	events := c.hub.StudentEvents(ctx.Request.Context(), studentID)
	c.stream(ctx, events)
}

func (c *Controller) stream(ctx *gin.Context, events <-chan eventbus.Event) {
	setSSEHeaders(ctx)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			writeFrame(w, ev)
			return true
		case <-heartbeat.C:
			sse.Encode(w, sse.Event{
				Event: "heartbeat",
				Data:  gin.H{"timestamp": time.Now().UTC()},
			})
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}

// writeFrame emits one bus event as a course:update SSE frame.
func writeFrame(w io.Writer, ev eventbus.Event) error {
	return sse.Encode(w, sse.Event{
		Event: courseUpdateEvent,
		Data:  ev,
	})
}

func setSSEHeaders(ctx *gin.Context) {
	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")
	ctx.Writer.Header().Set("X-Accel-Buffering", "no")
}
