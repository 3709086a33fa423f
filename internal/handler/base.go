package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
	"github.com/sehatsathi/sehatsathi-api/pkg/validator"
)

var (
	ErrInvalidBody = apperrors.BadRequest("invalid request body", nil)
	ErrNoSession   = apperrors.Unauthorized(nil)
)

// BaseHandler carries what every domain handler needs to decode requests.
type BaseHandler struct {
	Validator validator.Validator
}

func NewBaseHandler() BaseHandler {
	return BaseHandler{Validator: validator.New()}
}

// BindJSON decodes and validates the body. On failure the error response
// has been written and false is returned.
func (h *BaseHandler) BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputil.RespondWithError(c, &apperrors.AppError{Code: apperrors.ErrBadRequest, Message: ErrInvalidBody.Message, Err: err})
		return false
	}
	return h.Validate(c, obj)
}

func (h *BaseHandler) Validate(c *gin.Context, obj interface{}) bool {
	if h.Validator == nil {
		return true
	}
	if err := h.Validator.Validate(obj); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return false
	}
	return true
}

// Session returns the caller's session or writes a 401.
func (h *BaseHandler) Session(c *gin.Context) (*model.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		httputil.RespondWithError(c, ErrNoSession)
		return nil, false
	}
	return sess, true
}

// IntParam parses a path parameter or writes a 400.
func (h *BaseHandler) IntParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid "+name, err))
		return 0, false
	}
	return v, true
}
