package controller

import (
	"roadmap_edu_backend/internal/service"
	"roadmap_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	EnrollmentService *service.EnrollmentService
	UnlockService     *service.UnlockService
}

func NewCourseController(enrollmentService *service.EnrollmentService, unlockService *service.UnlockService) *CourseController {
	return &CourseController{
		EnrollmentService: enrollmentService,
		UnlockService:     unlockService,
	}
}

// EnrollCourseRequest 课程报名请求
type EnrollCourseRequest struct {
	RoadmapCourseID uint `json:"roadmapCourseId" binding:"required"`
}

// EnrollCourse godoc
// @Summary 报名课程
// @Description 报名路线中的一门课程，级联创建小节与章节进度行并解锁第一章
// @Tags 课程
// @Accept  json
// @Produce  json
// @Param   body body EnrollCourseRequest true "课程报名信息"
// @Success 201 {object} util.Response{data=service.EnrollResult} "报名成功"
// @Failure 400 {object} util.Response "课程内容为空"
// @Failure 403 {object} util.Response "前置课程未完成或未报名路线"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/enroll [post]
func (c *CourseController) EnrollCourse(ctx *gin.Context) {
	var req EnrollCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	result, err := c.EnrollmentService.EnrollCourse(ctx.Request.Context(), user.UserID, req.RoadmapCourseID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	if result.AlreadyEnrolled {
		util.SuccessWithMessage(ctx, result.Message, result)
		return
	}
	util.Created(ctx, result)
}

// UnlockModuleRequest 模块解锁请求
type UnlockModuleRequest struct {
	RoadmapCourseID uint `json:"roadmapCourseId" binding:"required"`
	ModuleWeek      int  `json:"moduleWeek" binding:"required,min=1"`
}

// UnlockModule godoc
// @Summary 解锁模块周
// @Description 上一模块全部完成后解锁第 k 周，周解锁课程还需满足冷却时间
// @Tags 课程
// @Accept  json
// @Produce  json
// @Param   body body UnlockModuleRequest true "模块解锁信息"
// @Success 200 {object} util.Response "解锁成功"
// @Failure 409 {object} util.Response "顺序不满足、冷却未到或已解锁"
// @Router /api/courses/unlock-module [post]
func (c *CourseController) UnlockModule(ctx *gin.Context) {
	var req UnlockModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	if err := c.UnlockService.UnlockModule(user.UserID, req.RoadmapCourseID, req.ModuleWeek); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "module unlocked", nil)
}

// UnlockSectionRequest 小节解锁请求
type UnlockSectionRequest struct {
	RoadmapCourseID uint `json:"roadmapCourseId" binding:"required"`
	SectionID       uint `json:"sectionId" binding:"required"`
}

// UnlockSection godoc
// @Summary 解锁小节
// @Description 前序小节全部完成后解锁目标小节，并顺带解锁其第一章
// @Tags 课程
// @Accept  json
// @Produce  json
// @Param   body body UnlockSectionRequest true "小节解锁信息"
// @Success 200 {object} util.Response "解锁成功"
// @Failure 409 {object} util.Response "前序小节未完成"
// @Router /api/courses/unlock-section [post]
func (c *CourseController) UnlockSection(ctx *gin.Context) {
	var req UnlockSectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	if err := c.UnlockService.UnlockSection(user.UserID, req.RoadmapCourseID, req.SectionID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "section unlocked", nil)
}

// UnlockChapterRequest 章节解锁请求
type UnlockChapterRequest struct {
	RoadmapCourseID uint `json:"roadmapCourseId" binding:"required"`
	SectionID       uint `json:"sectionId" binding:"required"`
	ChapterID       uint `json:"chapterId" binding:"required"`
}

// UnlockChapter godoc
// @Summary 解锁章节
// @Description 课程内顺序更靠前的章节全部完成后解锁目标章节
// @Tags 课程
// @Accept  json
// @Produce  json
// @Param   body body UnlockChapterRequest true "章节解锁信息"
// @Success 200 {object} util.Response "解锁成功"
// @Failure 404 {object} util.Response "进度行不存在"
// @Failure 409 {object} util.Response "前序章节未完成"
// @Router /api/courses/unlock-chapter [post]
func (c *CourseController) UnlockChapter(ctx *gin.Context) {
	var req UnlockChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	if err := c.UnlockService.UnlockChapter(user.UserID, req.RoadmapCourseID, req.SectionID, req.ChapterID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "chapter unlocked", nil)
}
