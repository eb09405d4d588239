package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/edudao/gatekeeper/pkg/errors"
)

// NoticeHeader carries a user-facing notice alongside redirects.
const NoticeHeader = "X-Gatekeeper-Notice"

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Notice  *Notice     `json:"notice,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Notice is a toast-style message the client should present after a redirect.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}

// RedirectWithNotice sends the client to location with a notice to display.
func RedirectWithNotice(c *gin.Context, location string, notice Notice) {
	c.Header("Location", location)
	c.Header(NoticeHeader, notice.Title)
	c.JSON(http.StatusSeeOther, Response{
		Success: false,
		Notice:  &notice,
	})
}
