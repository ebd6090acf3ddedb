package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseSummaryPercents(t *testing.T) {
	f := newUnlockFixture(t, false)

	for _, chapter := range f.chapters(t, f.sections[0].SectionID) {
		require.NoError(t, f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapter.ChapterID))
		require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapter.ChapterID))
	}

	summary, err := f.env.progress.GetCourseSummary(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalSections)
	assert.Equal(t, 1, summary.CompletedSections)
	assert.Equal(t, 50, summary.ProgressPercent)
	assert.False(t, summary.IsCompleted)

	require.Len(t, summary.Modules, 2)
	assert.Equal(t, 1, summary.Modules[0].ModuleWeek)
	assert.Equal(t, 100, summary.Modules[0].CompletionPercent)
	assert.True(t, summary.Modules[0].IsUnlocked)
	assert.Equal(t, 2, summary.Modules[1].ModuleWeek)
	assert.Equal(t, 0, summary.Modules[1].CompletionPercent)
	assert.False(t, summary.Modules[1].IsUnlocked)
}

func TestModuleDetailsCompletionFraction(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)

	// 视频看了一半
	_, err := f.env.completion.UpdateWatchProgress(f.user.ID, chapters[0].ChapterID, 300)
	require.NoError(t, err)

	views, err := f.env.progress.GetModuleDetails(f.user.ID, f.mapping.ID, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Chapters, 2)

	assert.InDelta(t, 0.5, views[0].Chapters[0].CompletionFraction, 0.001)
	assert.Zero(t, views[0].Chapters[1].CompletionFraction, "非视频章节未完成时完成度为 0")
	assert.Equal(t, 0, views[0].CompletionPercent)

	// 上报超过总时长的观看数据也被截断到 1
	_, err = f.env.completion.UpdateWatchProgress(f.user.ID, chapters[0].ChapterID, 9000)
	require.NoError(t, err)

	views, err = f.env.progress.GetModuleDetails(f.user.ID, f.mapping.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, views[0].Chapters[0].CompletionFraction, 0.001)
	assert.True(t, views[0].Chapters[0].IsCompleted)
	assert.Equal(t, 50, views[0].CompletionPercent)
}

func TestCurrentPositionFollowsLatestUnlock(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)

	position, err := f.env.progress.GetCurrentPosition(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, chapters[0].ChapterID, position.ChapterID)

	require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapters[0].ChapterID))
	require.NoError(t, f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapters[1].ChapterID))

	position, err = f.env.progress.GetCurrentPosition(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, chapters[1].ChapterID, position.ChapterID)
	assert.Equal(t, 1, position.ModuleWeek)
}

func TestCurrentPositionTieBreaksByOrder(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)

	// 两章同一时刻解锁，取顺序更靠后的
	now := time.Now()
	require.NoError(t, f.env.db.Exec(
		"UPDATE user_chapter_progress SET is_unlocked = ?, unlocked_at = ? WHERE user_id = ? AND section_id = ?",
		true, now, f.user.ID, f.sections[0].SectionID).Error)

	position, err := f.env.progress.GetCurrentPosition(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, chapters[1].ChapterID, position.ChapterID)
}

func TestGetOngoing(t *testing.T) {
	f := newStatusFixture(t)

	_, err := f.env.enrollment.EnrollRoadmap(context.Background(), f.user.ID, f.roadmap.ID)
	require.NoError(t, err)

	view, err := f.env.progress.GetOngoing(f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Current)
	assert.Equal(t, f.mappingA.ID, view.Current.RoadmapCourseID)
	assert.Equal(t, CourseStatusInProgress, view.Current.Status)
	require.NotNil(t, view.Position)

	require.Len(t, view.Upcoming, 1)
	assert.Equal(t, f.mappingB.ID, view.Upcoming[0].RoadmapCourseID)
	assert.Equal(t, CourseStatusLocked, view.Upcoming[0].Status)
}
