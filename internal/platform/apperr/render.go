package apperr

import (
	"errors"

	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Error struct {
		Code    Code   `json:"code"`
		Reason  string `json:"reason,omitempty"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) ErrorBody {
	var e ErrorBody
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func BodyFrom(err error) ErrorBody {
	var ae *Error
	if errors.As(err, &ae) {
		e := Body(ae.Code, ae.Message)
		e.Error.Reason = ae.Reason
		return e
	}
	return Body(CodeInternal, "internal error")
}

// Abort writes err as the JSON error body with its mapped status.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(HTTPStatus(err), BodyFrom(err))
}
