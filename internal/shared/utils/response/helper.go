package response

import "github.com/gin-gonic/gin"

// JSON writes a success envelope.
func JSON(c *gin.Context, httpStatus int, status, message string, data interface{}) {
	c.JSON(httpStatus, Envelope{
		Success: true,
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// Error writes an error envelope with a machine-readable code.
func Error(c *gin.Context, httpStatus int, code, message string) {
	c.JSON(httpStatus, Envelope{
		Success: false,
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// ValidationError writes an error envelope carrying field-level details.
func ValidationError(c *gin.Context, httpStatus int, code, message string, details interface{}) {
	c.JSON(httpStatus, Envelope{
		Success: false,
		Status:  "error",
		Code:    code,
		Message: message,
		Errors:  details,
	})
}
