package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON answer, success or failure.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody carries the stable code clients switch on, an English message
// and, for validation failures, per-field messages.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the page count for total items. perPage must be
// positive.
func NewPagination(page, perPage, total int) *Pagination {
	return &Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
}

// Metadata lets support staff match a candidate's report to the server logs.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success sends data with status.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope(c, data, nil, nil))
}

// SuccessWithPagination sends one page of a list.
func SuccessWithPagination(c *gin.Context, status int, data interface{}, pagination *Pagination) {
	c.JSON(status, envelope(c, data, pagination, nil))
}

// Fail sends the error code with its standard message.
func Fail(c *gin.Context, status int, code ErrCode) {
	c.JSON(status, envelope(c, nil, nil, errorBody(code, nil)))
}

// FailWithFields sends a validation failure with per-field messages.
func FailWithFields(c *gin.Context, status int, code ErrCode, fields map[string]string) {
	c.JSON(status, envelope(c, nil, nil, errorBody(code, fields)))
}

// AbortFail stops the middleware chain and sends the error code.
func AbortFail(c *gin.Context, status int, code ErrCode) {
	c.AbortWithStatusJSON(status, envelope(c, nil, nil, errorBody(code, nil)))
}

func errorBody(code ErrCode, fields map[string]string) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}
}

func envelope(c *gin.Context, data interface{}, p *Pagination, e *ErrorBody) Response {
	return Response{
		Data:       data,
		Error:      e,
		Pagination: p,
		Metadata: Metadata{
			RequestID: RequestID(c),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
