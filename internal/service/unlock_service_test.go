package service

import (
	"context"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unlockFixture struct {
	env      *testEnv
	user     *model.User
	mapping  *model.RoadmapCourseMapping
	sections []model.UserSectionProgress
}

func newUnlockFixture(t *testing.T, weekly bool) *unlockFixture {
	t.Helper()
	env := newTestEnv(t)
	user := env.createUser(t, false)
	roadmap := env.createRoadmap(t, "解锁路线")
	course := env.createCourse(t, "解锁课程", twoModuleCourse())
	mapping := env.addCourse(t, roadmap.ID, course.ID, 1, weekly, nil)

	_, err := env.enrollment.EnrollRoadmap(context.Background(), user.ID, roadmap.ID)
	require.NoError(t, err)

	sections, err := env.progRepo.ListSectionProgress(user.ID, mapping.ID)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	return &unlockFixture{env: env, user: user, mapping: mapping, sections: sections}
}

func (f *unlockFixture) chapters(t *testing.T, sectionID uint) []model.UserChapterProgress {
	t.Helper()
	chapters, err := f.env.progRepo.ListChapterProgressBySection(f.user.ID, sectionID)
	require.NoError(t, err)
	return chapters
}

func TestUnlockChapterOutOfOrder(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)
	require.Len(t, chapters, 2)

	// 第一章未完成，第二章不能解锁
	err := f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapters[1].ChapterID)
	assert.ErrorIs(t, err, util.ErrSequenceViolation)

	require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapters[0].ChapterID))

	err = f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapters[1].ChapterID)
	require.NoError(t, err)

	updated := f.chapters(t, f.sections[0].SectionID)
	assert.True(t, updated[1].IsUnlocked)
	assert.NotNil(t, updated[1].UnlockedAt)
}

func TestUnlockChapterIdempotent(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)

	require.NoError(t, f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapters[0].ChapterID))

	first := f.chapters(t, f.sections[0].SectionID)[0]
	require.NoError(t, f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapters[0].ChapterID))
	second := f.chapters(t, f.sections[0].SectionID)[0]

	assert.Equal(t, first.UnlockedAt.Unix(), second.UnlockedAt.Unix(), "重复解锁不改写时间戳")
}

func TestUnlockChapterMissingProgress(t *testing.T) {
	f := newUnlockFixture(t, false)
	err := f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, 99999)
	assert.ErrorIs(t, err, util.ErrProgressNotFound)
}

func TestUnlockSectionRequiresPreviousComplete(t *testing.T) {
	f := newUnlockFixture(t, false)

	err := f.env.unlock.UnlockSection(f.user.ID, f.mapping.ID, f.sections[1].SectionID)
	assert.ErrorIs(t, err, util.ErrSequenceViolation)

	for _, chapter := range f.chapters(t, f.sections[0].SectionID) {
		require.NoError(t, f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapter.ChapterID))
		require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapter.ChapterID))
	}

	require.NoError(t, f.env.unlock.UnlockSection(f.user.ID, f.mapping.ID, f.sections[1].SectionID))

	updated, err := f.env.progRepo.GetSectionProgress(f.user.ID, f.sections[1].SectionID)
	require.NoError(t, err)
	assert.True(t, updated.IsUnlocked)

	chapters := f.chapters(t, f.sections[1].SectionID)
	assert.True(t, chapters[0].IsUnlocked, "解锁小节顺带解锁它的第一章")
	assert.False(t, chapters[1].IsUnlocked)
}

func TestUnlockModuleAlreadyUnlocked(t *testing.T) {
	f := newUnlockFixture(t, false)

	// 第一模块在报名时已解锁
	err := f.env.unlock.UnlockModule(f.user.ID, f.mapping.ID, 1)
	assert.ErrorIs(t, err, util.ErrAlreadyUnlocked)
}

func TestUnlockModuleRequiresPreviousModuleComplete(t *testing.T) {
	f := newUnlockFixture(t, false)

	err := f.env.unlock.UnlockModule(f.user.ID, f.mapping.ID, 2)
	assert.ErrorIs(t, err, util.ErrSequenceViolation)
}

func TestUnlockModuleWeeklyCadence(t *testing.T) {
	f := newUnlockFixture(t, true)

	for _, chapter := range f.chapters(t, f.sections[0].SectionID) {
		require.NoError(t, f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapter.ChapterID))
		require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapter.ChapterID))
	}

	// 三天前完成：冷却未到
	threeDaysAgo := time.Now().Add(-3 * 24 * time.Hour)
	require.NoError(t, f.env.db.Model(&model.UserSectionProgress{}).
		Where("user_id = ? AND module_week = 1", f.user.ID).
		Update("completed_at", threeDaysAgo).Error)

	err := f.env.unlock.UnlockModule(f.user.ID, f.mapping.ID, 2)
	assert.ErrorIs(t, err, util.ErrCadenceNotElapsed)

	// 八天前完成：冷却已过
	eightDaysAgo := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, f.env.db.Model(&model.UserSectionProgress{}).
		Where("user_id = ? AND module_week = 1", f.user.ID).
		Update("completed_at", eightDaysAgo).Error)

	require.NoError(t, f.env.unlock.UnlockModule(f.user.ID, f.mapping.ID, 2))

	section, err := f.env.progRepo.GetSectionProgress(f.user.ID, f.sections[1].SectionID)
	require.NoError(t, err)
	assert.True(t, section.IsUnlocked)

	// 再次解锁同一模块是软失败
	err = f.env.unlock.UnlockModule(f.user.ID, f.mapping.ID, 2)
	assert.ErrorIs(t, err, util.ErrAlreadyUnlocked)
}

// 解锁状态只能向前推进：完成后的行不会被重复标记回去
func TestProgressOnlyMovesForward(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)

	require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapters[0].ChapterID))
	first := f.chapters(t, f.sections[0].SectionID)[0]
	require.True(t, first.IsCompleted)

	// 重复完成是无副作用的成功
	require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapters[0].ChapterID))
	second := f.chapters(t, f.sections[0].SectionID)[0]
	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())
	assert.True(t, second.IsUnlocked)
}
