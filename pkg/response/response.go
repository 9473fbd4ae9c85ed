package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pagination describes the window of a task listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Envelope is the body shape of every API response: success plus either
// data/token/user on success or message/errors on failure.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Token      string      `json:"token,omitempty"`
	User       interface{} `json:"user,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Data writes a success envelope carrying a data payload.
func Data(c *gin.Context, status int, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Envelope{Success: true, Data: data})
}

// List writes a success envelope carrying a page of results plus its
// pagination block.
func List(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Pagination: &p})
}

// Auth writes a success envelope carrying a session token and the public
// user record, as returned by register and login.
func Auth(c *gin.Context, status int, token string, user interface{}) {
	c.JSON(status, Envelope{Success: true, Token: token, User: user})
}

// Fail writes a failure envelope with a message.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

// FailValidation writes a 400 failure envelope carrying field-level error
// descriptors.
func FailValidation(c *gin.Context, errs interface{}) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Errors: errs})
}

// AbortFail writes a failure envelope and aborts the handler chain. Used by
// middleware.
func AbortFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message})
}
