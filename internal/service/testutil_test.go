package service

import (
	"fmt"
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/repository"
	"roadmap_edu_backend/pkg/database"
	"roadmap_edu_backend/pkg/logger"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	enrollment *EnrollmentService
	unlock     *UnlockService
	completion *CompletionService
	status     *CourseStatusService
	progress   *ProgressService
	progRepo   *repository.ProgressRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.Log = zap.NewNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{}
	cfg.Unlock.CadenceDays = 7
	cfg.Unlock.EnrollConcurrency = 2

	catalogRepo := repository.NewCatalogRepository(db, nil)
	progressRepo := repository.NewProgressRepository(db)
	roadmapRepo := repository.NewRoadmapRepository(db)
	notifier := NewNotificationService(cfg)

	status := NewCourseStatusService(catalogRepo, progressRepo, roadmapRepo)
	return &testEnv{
		db:         db,
		cfg:        cfg,
		enrollment: NewEnrollmentService(catalogRepo, progressRepo, roadmapRepo, notifier, cfg, db),
		unlock:     NewUnlockService(catalogRepo, progressRepo, notifier, cfg, db),
		completion: NewCompletionService(catalogRepo, progressRepo, notifier, cfg, db),
		status:     status,
		progress:   NewProgressService(catalogRepo, progressRepo, roadmapRepo, status),
		progRepo:   progressRepo,
	}
}

type chapterSpec struct {
	contentType model.ContentType
	duration    int
}

type sectionSpec struct {
	moduleWeek int
	chapters   []chapterSpec
}

var userSeq atomic.Int64

func (e *testEnv) createUser(t *testing.T, allowMultipleRoadmaps bool) *model.User {
	t.Helper()
	org := &model.Organization{Name: "测试组织", AllowMultipleRoadmaps: allowMultipleRoadmaps}
	require.NoError(t, e.db.Create(org).Error)

	user := &model.User{Name: "学员", Email: fmt.Sprintf("student-%d@test.local", userSeq.Add(1)), Role: model.Student, OrgID: org.ID}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createRoadmap(t *testing.T, name string) *model.Roadmap {
	t.Helper()
	roadmap := &model.Roadmap{Name: name, IsActive: true}
	require.NoError(t, e.db.Create(roadmap).Error)
	return roadmap
}

func (e *testEnv) createCourse(t *testing.T, title string, sections []sectionSpec) *model.Course {
	t.Helper()
	course := &model.Course{Title: title}
	require.NoError(t, e.db.Create(course).Error)

	for i, spec := range sections {
		section := &model.Section{
			CourseID:      course.ID,
			Title:         fmt.Sprintf("%s 小节 %d", title, i+1),
			OrderSequence: i + 1,
			ModuleWeek:    spec.moduleWeek,
		}
		require.NoError(t, e.db.Create(section).Error)

		for j, ch := range spec.chapters {
			chapter := &model.Chapter{
				SectionID:     section.ID,
				Title:         fmt.Sprintf("%s 章节 %d.%d", title, i+1, j+1),
				OrderSequence: j + 1,
				ContentType:   ch.contentType,
				Duration:      ch.duration,
			}
			require.NoError(t, e.db.Create(chapter).Error)
		}
	}
	return course
}

func (e *testEnv) addCourse(t *testing.T, roadmapID, courseID uint, order int, weekly bool, prereqMappingID *uint) *model.RoadmapCourseMapping {
	t.Helper()
	mapping := &model.RoadmapCourseMapping{
		RoadmapID:                   roadmapID,
		CourseID:                    courseID,
		OrderSequence:               order,
		IsMandatory:                 true,
		IsWeeklyUnlock:              weekly,
		PrerequisiteCourseMappingID: prereqMappingID,
	}
	require.NoError(t, e.db.Create(mapping).Error)
	return mapping
}

// twoModuleCourse 两个模块周、每周一个小节、每节两章（视频+测验）
func twoModuleCourse() []sectionSpec {
	return []sectionSpec{
		{moduleWeek: 1, chapters: []chapterSpec{{model.ContentVideo, 600}, {model.ContentQuiz, 0}}},
		{moduleWeek: 2, chapters: []chapterSpec{{model.ContentVideo, 900}, {model.ContentProject, 0}}},
	}
}

// drainCourse 按目录顺序解锁并完成整门课程
func (e *testEnv) drainCourse(t *testing.T, userID, roadmapCourseID uint) {
	t.Helper()
	sections, err := e.progRepo.ListSectionProgress(userID, roadmapCourseID)
	require.NoError(t, err)

	for _, section := range sections {
		if !section.IsUnlocked {
			if err := e.unlock.UnlockSection(userID, roadmapCourseID, section.SectionID); err != nil {
				require.NoError(t, e.unlock.UnlockModule(userID, roadmapCourseID, section.ModuleWeek))
			}
		}
		chapters, err := e.progRepo.ListChapterProgressBySection(userID, section.SectionID)
		require.NoError(t, err)
		for _, chapter := range chapters {
			require.NoError(t, e.unlock.UnlockChapter(userID, roadmapCourseID, section.SectionID, chapter.ChapterID))
			require.NoError(t, e.completion.CompleteChapter(userID, chapter.ChapterID))
		}
	}
}
