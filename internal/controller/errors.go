package controller

import (
	"errors"
	"net/http"

	"course_core_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 将领域错误映射为 HTTP 状态码，未知错误记录日志并返回 500
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrEvaluationNotFound),
		errors.Is(err, util.ErrContentNotFound),
		errors.Is(err, util.ErrCourseNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrNotOwner),
		errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrPermissionDenied):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrAttemptAlreadyActive),
		errors.Is(err, util.ErrAttemptAlreadyTerminal),
		errors.Is(err, util.ErrAttemptLimitExceeded),
		errors.Is(err, util.ErrAttemptStillActive):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrExpiredAttempt):
		util.Error(ctx, http.StatusGone, err.Error())
	case errors.Is(err, util.ErrUnknownQuestion),
		errors.Is(err, util.ErrInvalidSelection),
		errors.Is(err, util.ErrInvalidQuestion):
		util.Error(ctx, http.StatusUnprocessableEntity, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// pathID 解析路径中的正整数 ID，失败时返回 400
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(ctx.Param(name))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return 0, false
	}
	return id, true
}
