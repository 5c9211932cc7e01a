package stream

import (
	"github.com/gin-gonic/gin"
)

// SetupStreamRoutes configures the SSE streaming routes.
func SetupStreamRoutes(rg *gin.RouterGroup, controller *Controller) {
	stream := rg.Group("/stream")
	{
		stream.POST("/subscribe", controller.Subscribe)
		stream.POST("/unsubscribe", controller.Unsubscribe)

		stream.GET("/courses/:course_id", controller.StreamCourse)
		stream.GET("/students/:student_id", controller.StreamStudent)
	}
}
