package controller

import (
	"roadmap_edu_backend/internal/service"
	"roadmap_edu_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	CompletionService *service.CompletionService
	ProgressService   *service.ProgressService
}

func NewProgressController(completionService *service.CompletionService, progressService *service.ProgressService) *ProgressController {
	return &ProgressController{
		CompletionService: completionService,
		ProgressService:   progressService,
	}
}

// WatchProgressRequest 观看进度上报
type WatchProgressRequest struct {
	RoadmapCourseID uint `json:"roadmapCourseId" binding:"required"`
	ChapterID       uint `json:"chapterId" binding:"required"`
	WatchedDuration int  `json:"watchedDuration" binding:"min=0"`
}

// UpdateWatchProgress godoc
// @Summary 上报观看进度
// @Description 视频章节的观看时长，看满总时长自动判定完成并向上聚合
// @Tags 进度
// @Accept  json
// @Produce  json
// @Param   body body WatchProgressRequest true "观看进度"
// @Success 200 {object} util.Response{data=service.WatchResult} "上报成功"
// @Failure 400 {object} util.Response "非视频章节"
// @Failure 403 {object} util.Response "章节未解锁"
// @Router /api/chapters/watch-progress [post]
func (c *ProgressController) UpdateWatchProgress(ctx *gin.Context) {
	var req WatchProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	result, err := c.CompletionService.UpdateWatchProgress(user.UserID, req.ChapterID, req.WatchedDuration)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// CompleteChapterRequest 外部完成信号
type CompleteChapterRequest struct {
	RoadmapCourseID uint `json:"roadmapCourseId" binding:"required"`
	SectionID       uint `json:"sectionId" binding:"required"`
	ChapterID       uint `json:"chapterId" binding:"required"`
}

// CompleteChapter godoc
// @Summary 完成章节
// @Description 文档/测验/项目类章节的外部完成信号，完成后向上聚合
// @Tags 进度
// @Accept  json
// @Produce  json
// @Param   body body CompleteChapterRequest true "章节完成信息"
// @Success 200 {object} util.Response "完成成功"
// @Failure 403 {object} util.Response "章节未解锁"
// @Failure 404 {object} util.Response "进度行不存在"
// @Router /api/chapters/complete [post]
func (c *ProgressController) CompleteChapter(ctx *gin.Context) {
	var req CompleteChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	if err := c.CompletionService.CompleteChapter(user.UserID, req.ChapterID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "chapter completed", nil)
}

// GetCourseSummary godoc
// @Summary 课程进度汇总
// @Description 课程级百分比与逐模块完成度
// @Tags 进度
// @Produce  json
// @Param   roadmapCourseId query int true "课程槽位 ID"
// @Success 200 {object} util.Response{data=service.CourseSummary} "课程汇总"
// @Failure 403 {object} util.Response "未报名该课程"
// @Router /api/courses/summary [get]
func (c *ProgressController) GetCourseSummary(ctx *gin.Context) {
	roadmapCourseID, err := strconv.ParseUint(ctx.Query("roadmapCourseId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid roadmapCourseId")
		return
	}

	user := util.GetUserFromContext(ctx)
	summary, err := c.ProgressService.GetCourseSummary(user.UserID, uint(roadmapCourseID))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// GetModuleDetails godoc
// @Summary 模块明细
// @Description 模块周内小节与章节的解锁/完成状态和完成度
// @Tags 进度
// @Produce  json
// @Param   roadmapCourseId query int true "课程槽位 ID"
// @Param   moduleWeek query int false "模块周，缺省返回整门课程"
// @Success 200 {object} util.Response{data=[]service.SectionView} "模块明细"
// @Failure 404 {object} util.Response "进度行不存在"
// @Router /api/courses/modules [get]
func (c *ProgressController) GetModuleDetails(ctx *gin.Context) {
	roadmapCourseID, err := strconv.ParseUint(ctx.Query("roadmapCourseId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid roadmapCourseId")
		return
	}
	moduleWeek, _ := strconv.Atoi(ctx.DefaultQuery("moduleWeek", "0"))

	user := util.GetUserFromContext(ctx)
	views, err := c.ProgressService.GetModuleDetails(user.UserID, uint(roadmapCourseID), moduleWeek)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// GetCurrentLearning godoc
// @Summary 当前学习状态
// @Description 正在学的课程、当前位置章节与后续课程
// @Tags 进度
// @Produce  json
// @Success 200 {object} util.Response{data=service.OngoingView} "当前学习状态"
// @Failure 403 {object} util.Response "尚未报名任何路线"
// @Router /api/learning/current [get]
func (c *ProgressController) GetCurrentLearning(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	view, err := c.ProgressService.GetOngoing(user.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
