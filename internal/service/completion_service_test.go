package service

import (
	"context"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchProgressAutoCompletes(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)
	video := chapters[0]
	require.Equal(t, model.ContentVideo, video.ContentType)

	result, err := f.env.completion.UpdateWatchProgress(f.user.ID, video.ChapterID, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, result.WatchedDuration)
	assert.False(t, result.Completed)

	// 时长只增不减
	result, err = f.env.completion.UpdateWatchProgress(f.user.ID, video.ChapterID, 200)
	require.NoError(t, err)
	assert.Equal(t, 300, result.WatchedDuration)

	result, err = f.env.completion.UpdateWatchProgress(f.user.ID, video.ChapterID, 600)
	require.NoError(t, err)
	assert.True(t, result.Completed, "看满总时长自动判定完成")

	updated := f.chapters(t, f.sections[0].SectionID)[0]
	assert.True(t, updated.IsCompleted)
}

func TestWatchProgressRequiresUnlock(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[1].SectionID)

	_, err := f.env.completion.UpdateWatchProgress(f.user.ID, chapters[0].ChapterID, 100)
	assert.ErrorIs(t, err, util.ErrChapterNotUnlocked)
}

func TestWatchProgressRejectsNonVideo(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)
	quiz := chapters[1]
	require.Equal(t, model.ContentQuiz, quiz.ContentType)

	_, err := f.env.completion.UpdateWatchProgress(f.user.ID, quiz.ChapterID, 100)
	assert.ErrorIs(t, err, util.ErrNotVideoContent)
}

func TestCompleteChapterRequiresUnlock(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)

	err := f.env.completion.CompleteChapter(f.user.ID, chapters[1].ChapterID)
	assert.ErrorIs(t, err, util.ErrChapterNotUnlocked)
}

func TestSectionRollup(t *testing.T) {
	f := newUnlockFixture(t, false)
	chapters := f.chapters(t, f.sections[0].SectionID)

	for _, chapter := range chapters {
		require.NoError(t, f.env.unlock.UnlockChapter(f.user.ID, f.mapping.ID, f.sections[0].SectionID, chapter.ChapterID))
		require.NoError(t, f.env.completion.CompleteChapter(f.user.ID, chapter.ChapterID))
	}

	section, err := f.env.progRepo.GetSectionProgress(f.user.ID, f.sections[0].SectionID)
	require.NoError(t, err)
	assert.True(t, section.IsCompleted)
	assert.NotNil(t, section.CompletedAt)

	course, err := f.env.progRepo.GetCourseProgress(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, course.CompletedSections)
	assert.Equal(t, 50, course.ProgressPercent)
	assert.False(t, course.IsCompleted)
}

func TestCourseCompletionIssuesCertificate(t *testing.T) {
	f := newUnlockFixture(t, false)
	f.env.drainCourse(t, f.user.ID, f.mapping.ID)

	course, err := f.env.progRepo.GetCourseProgress(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	assert.True(t, course.IsCompleted)
	require.NotNil(t, course.CompletedAt)
	assert.Equal(t, 100, course.ProgressPercent)

	cert, err := f.env.progRepo.GetCertificate(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.ID)
	assert.NotEmpty(t, cert.CertificateURL)
	assert.False(t, cert.IssuedAt.IsZero())
}

func TestEnrollCourseAfterCompletionIsIdempotent(t *testing.T) {
	f := newUnlockFixture(t, false)
	f.env.drainCourse(t, f.user.ID, f.mapping.ID)

	result, err := f.env.enrollment.EnrollCourse(context.Background(), f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyEnrolled)

	course, err := f.env.progRepo.GetCourseProgress(f.user.ID, f.mapping.ID)
	require.NoError(t, err)
	assert.True(t, course.IsCompleted, "重复报名不会重置已完成的进度")
}
