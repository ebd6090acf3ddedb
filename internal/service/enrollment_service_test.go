package service

import (
	"context"
	"errors"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollRoadmapCreatesProgressTree(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, false)
	roadmap := env.createRoadmap(t, "Go 后端路线")
	course := env.createCourse(t, "Go 基础", twoModuleCourse())
	mapping := env.addCourse(t, roadmap.ID, course.ID, 1, false, nil)

	result, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, roadmap.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyEnrolled)
	assert.Equal(t, mapping.ID, result.RoadmapCourseID)

	courseProgress, err := env.progRepo.GetCourseProgress(user.ID, mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, courseProgress.TotalSections)
	assert.Equal(t, 0, courseProgress.CompletedSections)
	assert.False(t, courseProgress.IsCompleted)

	sections, err := env.progRepo.ListSectionProgress(user.ID, mapping.ID)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.True(t, sections[0].IsUnlocked)
	assert.NotNil(t, sections[0].UnlockedAt)
	assert.False(t, sections[1].IsUnlocked)

	chapters, err := env.progRepo.ListChapterProgress(user.ID, mapping.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 4)

	unlocked := 0
	for _, chapter := range chapters {
		if chapter.IsUnlocked {
			unlocked++
			assert.Equal(t, sections[0].SectionID, chapter.SectionID)
			assert.Equal(t, 1, chapter.OrderSequence)
		}
	}
	assert.Equal(t, 1, unlocked, "恰好第一小节的第一章被解锁")
}

func TestEnrollRoadmapIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, false)
	roadmap := env.createRoadmap(t, "Go 后端路线")
	course := env.createCourse(t, "Go 基础", twoModuleCourse())
	env.addCourse(t, roadmap.ID, course.ID, 1, false, nil)

	_, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, roadmap.ID)
	require.NoError(t, err)

	var before int64
	env.db.Model(&model.UserChapterProgress{}).Where("user_id = ?", user.ID).Count(&before)

	result, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, roadmap.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyEnrolled)

	var after int64
	env.db.Model(&model.UserChapterProgress{}).Where("user_id = ?", user.ID).Count(&after)
	assert.Equal(t, before, after, "重复报名不产生新的进度行")
}

func TestEnrollRoadmapOrgPolicy(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, false)

	first := env.createRoadmap(t, "路线一")
	courseA := env.createCourse(t, "课程A", twoModuleCourse())
	env.addCourse(t, first.ID, courseA.ID, 1, false, nil)

	second := env.createRoadmap(t, "路线二")
	courseB := env.createCourse(t, "课程B", twoModuleCourse())
	env.addCourse(t, second.ID, courseB.ID, 1, false, nil)

	_, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, first.ID)
	require.NoError(t, err)

	_, err = env.enrollment.EnrollRoadmap(context.Background(), user.ID, second.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	multi := env.createUser(t, true)
	_, err = env.enrollment.EnrollRoadmap(context.Background(), multi.ID, first.ID)
	require.NoError(t, err)
	_, err = env.enrollment.EnrollRoadmap(context.Background(), multi.ID, second.ID)
	assert.NoError(t, err, "组织策略允许时可以报名第二条路线")
}

func TestEnrollCoursePrerequisiteGate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, false)
	roadmap := env.createRoadmap(t, "进阶路线")
	courseA := env.createCourse(t, "课程A", twoModuleCourse())
	courseB := env.createCourse(t, "课程B", twoModuleCourse())
	mappingA := env.addCourse(t, roadmap.ID, courseA.ID, 1, false, nil)
	mappingB := env.addCourse(t, roadmap.ID, courseB.ID, 2, false, &mappingA.ID)

	_, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, roadmap.ID)
	require.NoError(t, err)

	_, err = env.enrollment.EnrollCourse(context.Background(), user.ID, mappingB.ID)
	assert.ErrorIs(t, err, util.ErrPrerequisiteNotMet)

	env.drainCourse(t, user.ID, mappingA.ID)

	result, err := env.enrollment.EnrollCourse(context.Background(), user.ID, mappingB.ID)
	require.NoError(t, err)
	assert.Equal(t, mappingB.ID, result.RoadmapCourseID)
}

func TestEnrollCourseRequiresRoadmapEnrollment(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, false)
	roadmap := env.createRoadmap(t, "路线")
	course := env.createCourse(t, "课程", twoModuleCourse())
	mapping := env.addCourse(t, roadmap.ID, course.ID, 1, false, nil)

	_, err := env.enrollment.EnrollCourse(context.Background(), user.ID, mapping.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestEnrollRoadmapEmptyCourse(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, false)
	roadmap := env.createRoadmap(t, "空路线")
	course := env.createCourse(t, "空课程", nil)
	env.addCourse(t, roadmap.ID, course.ID, 1, false, nil)

	_, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, roadmap.ID)
	assert.ErrorIs(t, err, util.ErrEmptyCourse)
}

// 级联中途失败必须整体回滚，不留下半套进度行
func TestEnrollRoadmapRollsBackOnEmptySection(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, false)
	roadmap := env.createRoadmap(t, "坏数据路线")
	course := env.createCourse(t, "坏课程", []sectionSpec{
		{moduleWeek: 1, chapters: []chapterSpec{{model.ContentVideo, 600}}},
		{moduleWeek: 1, chapters: nil}, // 无章节的小节
	})
	env.addCourse(t, roadmap.ID, course.ID, 1, false, nil)

	_, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, roadmap.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrEmptyCourse))

	var enrollments, courses, sections, chapters int64
	env.db.Model(&model.UserEnrolledRoadmap{}).Where("user_id = ?", user.ID).Count(&enrollments)
	env.db.Model(&model.UserCourseProgress{}).Where("user_id = ?", user.ID).Count(&courses)
	env.db.Model(&model.UserSectionProgress{}).Where("user_id = ?", user.ID).Count(&sections)
	env.db.Model(&model.UserChapterProgress{}).Where("user_id = ?", user.ID).Count(&chapters)
	assert.Zero(t, enrollments)
	assert.Zero(t, courses)
	assert.Zero(t, sections)
	assert.Zero(t, chapters)
}
