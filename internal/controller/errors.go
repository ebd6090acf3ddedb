package controller

import (
	"errors"
	"net/http"
	"roadmap_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondServiceError 把服务层的哨兵错误映射成 HTTP 状态码。
// 所有软失败都带人类可读的 message，未知错误记日志后返回 500。
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrRoadmapNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrProgressNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrPrerequisiteNotMet),
		errors.Is(err, util.ErrChapterNotUnlocked):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrAlreadyEnrolled),
		errors.Is(err, util.ErrAlreadyUnlocked),
		errors.Is(err, util.ErrSequenceViolation),
		errors.Is(err, util.ErrCadenceNotElapsed):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrEmptyCourse),
		errors.Is(err, util.ErrNotVideoContent):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
