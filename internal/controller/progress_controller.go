package controller

import (
	"course_core_backend/internal/service"
	"course_core_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// MarkComplete 标记内容完成
func (c *ProgressController) MarkComplete(ctx *gin.Context) {
	c.toggle(ctx, true)
}

// MarkIncomplete 取消内容完成
func (c *ProgressController) MarkIncomplete(ctx *gin.Context) {
	c.toggle(ctx, false)
}

func (c *ProgressController) toggle(ctx *gin.Context, completed bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	contentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var err error
	if completed {
		_, err = c.ProgressService.MarkContentComplete(ctx.Request.Context(), user.UserID, contentID)
	} else {
		_, err = c.ProgressService.MarkContentIncomplete(ctx.Request.Context(), user.UserID, contentID)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"contentId": contentID, "completed": completed})
}

// GetCourseProgress 课程进度
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	summary, err := c.ProgressService.GetCourseProgress(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
