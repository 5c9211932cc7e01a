package registration

import (
	"github.com/gin-gonic/gin"
)

// SetupRegistrationRoutes configures registration, booking lifecycle, and
// allocation routes following the same pattern as other modules. Paths
// mirror the published API table; course and student identifiers accept
// either the opaque ID or the human code.
func SetupRegistrationRoutes(rg *gin.RouterGroup, controller *Controller) {
	registration := rg.Group("/registration")
	{
		registration.GET("/courses", controller.ListCourses)
		registration.GET("/classroom/:course_id", controller.GetClassroom)
		registration.GET("/waitlist/:course_id", controller.GetWaitlist)
		registration.GET("/history/:course_id", controller.GetHistory)

		registration.POST("/apply", controller.Apply)
		registration.POST("/apply-all", controller.ApplyAll)
		registration.POST("/book-seat", controller.BookSeat)
		registration.POST("/drop", controller.Drop)
		registration.DELETE("/waitlist/:course_id/:student_id", controller.LeaveWaitlist)

		registration.GET("/student/:student_id/status", controller.GetStudentStatus)
		registration.GET("/student/:student_id/preferences", controller.GetPreferences)
		registration.POST("/preferences", controller.ReplacePreferences)

		// Lifecycle operations, instructor/admin facing.
		registration.POST("/course/:course_id/open-booking", controller.OpenBooking)
		registration.POST("/course/:course_id/close-booking", controller.CloseBooking)
		registration.POST("/course/:course_id/start", controller.StartCourse)
		registration.POST("/course/:course_id/complete", controller.CompleteCourse)
		registration.GET("/course/:course_id/status", controller.GetCourseStatus)

		registration.POST("/allocation/run", controller.RunAllocation)
	}
}
