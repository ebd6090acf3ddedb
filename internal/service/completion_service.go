package service

import (
	"errors"
	"fmt"
	"math"
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/repository"
	"roadmap_edu_backend/internal/util"
	"roadmap_edu_backend/pkg/logger"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionService 观看进度与完成信号的入口，章节完成向上
// 聚合到小节和课程，课程完成时签发证书。
type CompletionService struct {
	CatalogRepo  *repository.CatalogRepository
	ProgressRepo *repository.ProgressRepository
	Notifier     *NotificationService
	Config       *config.Config
	DB           *gorm.DB
}

func NewCompletionService(
	catalogRepo *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	notifier *NotificationService,
	cfg *config.Config,
	db *gorm.DB,
) *CompletionService {
	return &CompletionService{
		CatalogRepo:  catalogRepo,
		ProgressRepo: progressRepo,
		Notifier:     notifier,
		Config:       cfg,
		DB:           db,
	}
}

// WatchResult 观看进度上报的结果
type WatchResult struct {
	WatchedDuration int  `json:"watchedDuration"`
	TotalDuration   int  `json:"totalDuration"`
	Completed       bool `json:"completed"`
}

// UpdateWatchProgress 上报视频章节的观看时长。时长只增不减，
// 看满总时长自动判定完成并触发向上聚合。
func (s *CompletionService) UpdateWatchProgress(userID, chapterID uint, watchedSeconds int) (*WatchResult, error) {
	if watchedSeconds < 0 {
		watchedSeconds = 0
	}

	var result WatchResult
	var events []NotificationEvent

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)

		progress, err := repo.GetChapterProgress(userID, chapterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrProgressNotFound
			}
			return err
		}
		if progress.ContentType != model.ContentVideo {
			return util.ErrNotVideoContent
		}
		if !progress.IsUnlocked {
			return util.ErrChapterNotUnlocked
		}

		if err := repo.UpdateWatchedDuration(userID, chapterID, watchedSeconds); err != nil {
			return err
		}
		if watchedSeconds > progress.WatchedDuration {
			progress.WatchedDuration = watchedSeconds
		}

		result = WatchResult{
			WatchedDuration: progress.WatchedDuration,
			TotalDuration:   progress.TotalDuration,
			Completed:       progress.IsCompleted,
		}

		if progress.IsCompleted || progress.TotalDuration <= 0 || progress.WatchedDuration < progress.TotalDuration {
			return nil
		}

		events, err = s.completeChapterTx(repo, userID, progress)
		if err != nil {
			return err
		}
		result.Completed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		s.Notifier.NotifyAsync(event)
	}
	return &result, nil
}

// CompleteChapter 显式完成信号，用于文档、测验、项目等由外部系统
// 判定完成的章节；视频章节也接受，等价于看满。重复完成是无副作用的成功。
func (s *CompletionService) CompleteChapter(userID, chapterID uint) error {
	var events []NotificationEvent

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)

		progress, err := repo.GetChapterProgress(userID, chapterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrProgressNotFound
			}
			return err
		}
		if !progress.IsUnlocked {
			return util.ErrChapterNotUnlocked
		}
		if progress.IsCompleted {
			return nil
		}

		events, err = s.completeChapterTx(repo, userID, progress)
		return err
	})
	if err != nil {
		return err
	}

	for _, event := range events {
		s.Notifier.NotifyAsync(event)
	}
	return nil
}

// completeChapterTx 落章节完成标记并向上聚合：本节章节全完成则小节
// 完成并刷新课程计数，小节全完成则课程完成、签发证书。
// 通知事件收集后由调用方在事务提交之后发送。
func (s *CompletionService) completeChapterTx(repo *repository.ProgressRepository, userID uint, chapter *model.UserChapterProgress) ([]NotificationEvent, error) {
	now := time.Now()
	if err := repo.MarkChapterCompleted(userID, chapter.ChapterID, now); err != nil {
		return nil, err
	}

	siblings, err := repo.ListChapterProgressBySection(userID, chapter.SectionID)
	if err != nil {
		return nil, err
	}
	for _, row := range siblings {
		if row.ChapterID != chapter.ChapterID && !row.IsCompleted {
			return nil, nil
		}
	}

	if err := repo.MarkSectionCompleted(userID, chapter.SectionID, now); err != nil {
		return nil, err
	}

	course, err := repo.GetCourseProgress(userID, chapter.RoadmapCourseID)
	if err != nil {
		return nil, err
	}

	sections, err := repo.ListSectionProgress(userID, chapter.RoadmapCourseID)
	if err != nil {
		return nil, err
	}
	completed := 0
	for _, row := range sections {
		if row.IsCompleted {
			completed++
		}
	}
	percent := 0
	if len(sections) > 0 {
		percent = int(math.Round(float64(completed) / float64(len(sections)) * 100))
	}
	if err := repo.UpdateCourseCounters(course.ID, completed, percent); err != nil {
		return nil, err
	}

	logger.Log.Info("section completed",
		zap.Uint("userId", userID),
		zap.Uint("sectionId", chapter.SectionID),
		zap.Int("courseProgressPercent", percent))

	if completed < len(sections) || course.IsCompleted {
		return nil, nil
	}

	if err := repo.MarkCourseCompleted(course.ID, now); err != nil {
		return nil, err
	}

	cert := &model.CourseCertificate{
		UserID:          userID,
		RoadmapCourseID: chapter.RoadmapCourseID,
		CertificateURL:  fmt.Sprintf("/certificates/%s.pdf", uuid.New().String()),
		IssuedAt:        now,
	}
	if err := repo.CreateCertificate(cert); err != nil {
		return nil, err
	}

	logger.Log.Info("course completed, certificate issued",
		zap.Uint("userId", userID),
		zap.Uint("roadmapCourseId", chapter.RoadmapCourseID),
		zap.String("certificateId", cert.ID))

	return []NotificationEvent{{
		UserID:          userID,
		RoadmapCourseID: chapter.RoadmapCourseID,
		Body:            "Congratulations, you have completed the course!",
		ActionURL:       cert.CertificateURL,
		Type:            EventCourseCompleted,
	}}, nil
}
