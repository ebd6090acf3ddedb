package service

import (
	"context"
	"errors"
	"fmt"
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/repository"
	"roadmap_edu_backend/internal/util"
	"roadmap_edu_backend/pkg/logger"
	"roadmap_edu_backend/pkg/monitoring"
	"roadmap_edu_backend/pkg/workerpool"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnrollmentService 报名级联：为用户批量创建课程/小节/章节进度行，
// 并把第一小节与第一章节标记为已解锁。所有写入在一个事务内完成。
type EnrollmentService struct {
	CatalogRepo  *repository.CatalogRepository
	ProgressRepo *repository.ProgressRepository
	RoadmapRepo  *repository.RoadmapRepository
	Notifier     *NotificationService
	Config       *config.Config
	DB           *gorm.DB
}

func NewEnrollmentService(
	catalogRepo *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	roadmapRepo *repository.RoadmapRepository,
	notifier *NotificationService,
	cfg *config.Config,
	db *gorm.DB,
) *EnrollmentService {
	return &EnrollmentService{
		CatalogRepo:  catalogRepo,
		ProgressRepo: progressRepo,
		RoadmapRepo:  roadmapRepo,
		Notifier:     notifier,
		Config:       cfg,
		DB:           db,
	}
}

type EnrollResult struct {
	AlreadyEnrolled bool   `json:"alreadyEnrolled"`
	RoadmapCourseID uint   `json:"roadmapCourseId,omitempty"`
	Message         string `json:"message"`
}

// sectionPlan 级联展开前预取好的小节及其章节目录
type sectionPlan struct {
	Section  model.Section
	Chapters []model.Chapter
}

// EnrollRoadmap 报名整条路线：创建报名记录并只级联第一门课程，
// 后续课程在解锁时才惰性报名
func (s *EnrollmentService) EnrollRoadmap(ctx context.Context, userID, roadmapID uint) (*EnrollResult, error) {
	roadmap, err := s.CatalogRepo.GetRoadmap(roadmapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrRoadmapNotFound
		}
		return nil, err
	}

	if _, err := s.RoadmapRepo.GetEnrollment(userID, roadmapID); err == nil {
		return &EnrollResult{
			AlreadyEnrolled: true,
			Message:         "User is already enrolled in this roadmap.",
		}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	existing, err := s.RoadmapRepo.ListEnrollments(userID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		allowed, err := s.RoadmapRepo.AllowsMultipleRoadmaps(userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, util.ErrAlreadyEnrolled
		}
	}

	mappings, err := s.CatalogRepo.ListRoadmapCourses(roadmapID)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, util.ErrCourseNotFound
	}

	// 路线中恰好有一门"第一课"：顺序最小且无前置
	first := mappings[0]
	for _, m := range mappings {
		if m.PrerequisiteCourseMappingID == nil {
			first = m
			break
		}
	}

	plans, err := s.expandCourse(ctx, first.CourseID)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		enrollment := &model.UserEnrolledRoadmap{
			UserID:     userID,
			RoadmapID:  roadmapID,
			EnrolledAt: time.Now(),
		}
		if err := s.RoadmapRepo.WithTx(tx).CreateEnrollment(enrollment); err != nil {
			return err
		}
		return s.cascade(tx, userID, &first, enrollment.ID, plans)
	})
	if err != nil {
		monitoring.EnrollmentCounter.WithLabelValues("failure").Inc()
		return nil, err
	}

	monitoring.EnrollmentCounter.WithLabelValues("success").Inc()
	logger.Log.Info("user enrolled to roadmap",
		zap.Uint("userId", userID),
		zap.Uint("roadmapId", roadmapID),
		zap.Uint("roadmapCourseId", first.ID))

	s.Notifier.NotifyAsync(NotificationEvent{
		UserID:          userID,
		RoadmapCourseID: first.ID,
		ModuleWeek:      1,
		Title:           roadmap.Name,
		Body:            "Your first course has been unlocked. Happy learning!",
		ActionURL:       fmt.Sprintf("/courses/%d", first.ID),
		Type:            EventCourseEnrolled,
	})

	return &EnrollResult{
		RoadmapCourseID: first.ID,
		Message:         "User successfully enrolled in the first course of the roadmap.",
	}, nil
}

// EnrollCourse 报名路线中的单门课程。前置课程未完成时拒绝。
func (s *EnrollmentService) EnrollCourse(ctx context.Context, userID, roadmapCourseID uint) (*EnrollResult, error) {
	mapping, err := s.CatalogRepo.GetCourseMapping(roadmapCourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	enrollment, err := s.RoadmapRepo.GetEnrollment(userID, mapping.RoadmapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}

	if _, err := s.ProgressRepo.GetCourseProgress(userID, roadmapCourseID); err == nil {
		return &EnrollResult{
			AlreadyEnrolled: true,
			RoadmapCourseID: roadmapCourseID,
			Message:         "User is already enrolled in this course.",
		}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if mapping.PrerequisiteCourseMappingID != nil {
		prereq, err := s.ProgressRepo.GetCourseProgress(userID, *mapping.PrerequisiteCourseMappingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrPrerequisiteNotMet
			}
			return nil, err
		}
		if !prereq.IsCompleted {
			return nil, util.ErrPrerequisiteNotMet
		}
	}

	plans, err := s.expandCourse(ctx, mapping.CourseID)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		return s.cascade(tx, userID, mapping, enrollment.ID, plans)
	})
	if err != nil {
		monitoring.EnrollmentCounter.WithLabelValues("failure").Inc()
		return nil, err
	}

	monitoring.EnrollmentCounter.WithLabelValues("success").Inc()
	logger.Log.Info("user enrolled to course",
		zap.Uint("userId", userID),
		zap.Uint("roadmapCourseId", roadmapCourseID))

	s.Notifier.NotifyAsync(NotificationEvent{
		UserID:          userID,
		RoadmapCourseID: roadmapCourseID,
		ModuleWeek:      1,
		Body:            "A new course has been unlocked for you.",
		ActionURL:       fmt.Sprintf("/courses/%d", roadmapCourseID),
		Type:            EventCourseEnrolled,
	})

	return &EnrollResult{
		RoadmapCourseID: roadmapCourseID,
		Message:         "User successfully enrolled in the course.",
	}, nil
}

// expandCourse 预取课程的小节与章节目录。目录只读，放在事务外，
// 章节列表用有界并发拉取；空章节的校验留到级联写入阶段统一处理。
func (s *EnrollmentService) expandCourse(ctx context.Context, courseID uint) ([]sectionPlan, error) {
	sections, err := s.CatalogRepo.ListSections(courseID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, util.ErrEmptyCourse
	}

	plans, err := workerpool.Map(ctx, sections, s.Config.Unlock.EnrollConcurrency,
		func(ctx context.Context, section model.Section) (sectionPlan, error) {
			chapters, err := s.CatalogRepo.ListChapters(section.ID)
			if err != nil {
				return sectionPlan{}, err
			}
			return sectionPlan{Section: section, Chapters: chapters}, nil
		})
	if err != nil {
		return nil, err
	}

	return plans, nil
}

// cascade 在一个事务里创建课程、小节、章节三级进度行。
// 哪一行初始解锁由目录顺序决定，与兄弟行的写入顺序无关。
func (s *EnrollmentService) cascade(tx *gorm.DB, userID uint, mapping *model.RoadmapCourseMapping, enrolledRoadmapID uint, plans []sectionPlan) error {
	repo := s.ProgressRepo.WithTx(tx)

	// 幂等：重复报名不产生任何副作用
	if _, err := repo.GetCourseProgress(userID, mapping.ID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now()

	courseProgress := &model.UserCourseProgress{
		UserID:                userID,
		RoadmapCourseID:       mapping.ID,
		CourseID:              mapping.CourseID,
		UserEnrolledRoadmapID: enrolledRoadmapID,
		TotalSections:         len(plans),
	}
	if err := repo.CreateCourseProgress(courseProgress); err != nil {
		return err
	}

	sectionRows := make([]model.UserSectionProgress, len(plans))
	for i, plan := range plans {
		row := model.UserSectionProgress{
			UserID:               userID,
			RoadmapCourseID:      mapping.ID,
			SectionID:            plan.Section.ID,
			UserCourseProgressID: courseProgress.ID,
			ModuleWeek:           plan.Section.ModuleWeek,
			OrderSequence:        plan.Section.OrderSequence,
			TotalChapters:        len(plan.Chapters),
		}
		if i == 0 {
			row.IsUnlocked = true
			row.UnlockedAt = &now
		}
		sectionRows[i] = row
	}
	if err := repo.CreateSectionProgressBatch(sectionRows); err != nil {
		return err
	}

	var chapterRows []model.UserChapterProgress
	for i, plan := range plans {
		if len(plan.Chapters) == 0 {
			return fmt.Errorf("section %d has no chapters: %w", plan.Section.ID, util.ErrEmptyCourse)
		}
		for j, chapter := range plan.Chapters {
			row := model.UserChapterProgress{
				UserID:                userID,
				RoadmapCourseID:       mapping.ID,
				SectionID:             plan.Section.ID,
				ChapterID:             chapter.ID,
				UserSectionProgressID: sectionRows[i].ID,
				OrderSequence:         chapter.OrderSequence,
				ContentType:           chapter.ContentType,
				TotalDuration:         chapter.Duration,
			}
			// 每次课程报名恰好解锁一个章节：第一小节的第一章
			if i == 0 && j == 0 {
				row.IsUnlocked = true
				row.UnlockedAt = &now
			}
			chapterRows = append(chapterRows, row)
		}
	}

	return repo.CreateChapterProgressBatch(chapterRows)
}
