package controller

import (
	"roadmap_edu_backend/internal/service"
	"roadmap_edu_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type RoadmapController struct {
	EnrollmentService *service.EnrollmentService
	StatusService     *service.CourseStatusService
	RoadmapService    *service.RoadmapService
}

func NewRoadmapController(
	enrollmentService *service.EnrollmentService,
	statusService *service.CourseStatusService,
	roadmapService *service.RoadmapService,
) *RoadmapController {
	return &RoadmapController{
		EnrollmentService: enrollmentService,
		StatusService:     statusService,
		RoadmapService:    roadmapService,
	}
}

// EnrollRoadmapRequest 路线报名请求
type EnrollRoadmapRequest struct {
	RoadmapID uint `json:"roadmapId" binding:"required"`
}

// EnrollRoadmap godoc
// @Summary 报名学习路线
// @Description 报名路线并自动报名其中的第一门课程，完成进度行级联创建
// @Tags 路线
// @Accept  json
// @Produce  json
// @Param   body body EnrollRoadmapRequest true "路线报名信息"
// @Success 201 {object} util.Response{data=service.EnrollResult} "报名成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "路线不存在"
// @Failure 409 {object} util.Response "组织策略不允许报名多条路线"
// @Router /api/roadmaps/enroll [post]
func (c *RoadmapController) EnrollRoadmap(ctx *gin.Context) {
	var req EnrollRoadmapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := util.GetUserFromContext(ctx)
	result, err := c.EnrollmentService.EnrollRoadmap(ctx.Request.Context(), user.UserID, req.RoadmapID)
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

// ListRoadmapCourses godoc
// @Summary 路线课程列表
// @Description 路线下全部课程槽位，附带当前用户视角的状态
// @Tags 路线
// @Produce  json
// @Param   id path int true "路线 ID"
// @Success 200 {object} util.Response{data=[]service.CourseStatusView} "课程列表"
// @Failure 404 {object} util.Response "路线不存在"
// @Router /api/roadmaps/{id}/courses [get]
func (c *RoadmapController) ListRoadmapCourses(ctx *gin.Context) {
	roadmapID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid roadmap id")
		return
	}

	user := util.GetUserFromContext(ctx)
	views, err := c.StatusService.ListRoadmapCoursesWithStatus(user.UserID, uint(roadmapID))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// ListEnrolledRoadmaps godoc
// @Summary 已报名路线
// @Description 当前用户的全部路线报名记录
// @Tags 路线
// @Produce  json
// @Success 200 {object} util.Response{data=[]service.EnrolledRoadmapView} "报名记录"
// @Router /api/roadmaps/enrolled [get]
func (c *RoadmapController) ListEnrolledRoadmaps(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	enrollments, err := c.RoadmapService.ListEnrolledRoadmaps(user.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}
