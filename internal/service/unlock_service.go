package service

import (
	"errors"
	"fmt"
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/repository"
	"roadmap_edu_backend/internal/util"
	"roadmap_edu_backend/pkg/logger"
	"roadmap_edu_backend/pkg/monitoring"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnlockService 解锁状态机。三个入口各自跑在一个事务里，
// 前置条件在同一事务内重读，失败即整体回滚。
type UnlockService struct {
	CatalogRepo  *repository.CatalogRepository
	ProgressRepo *repository.ProgressRepository
	Notifier     *NotificationService
	Config       *config.Config
	DB           *gorm.DB
}

func NewUnlockService(
	catalogRepo *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	notifier *NotificationService,
	cfg *config.Config,
	db *gorm.DB,
) *UnlockService {
	return &UnlockService{
		CatalogRepo:  catalogRepo,
		ProgressRepo: progressRepo,
		Notifier:     notifier,
		Config:       cfg,
		DB:           db,
	}
}

// UnlockChapter 解锁单个章节。课程内复合顺序（小节序，章节序）更靠前的
// 章节必须全部已解锁且已完成。重复解锁是无副作用的成功。
func (s *UnlockService) UnlockChapter(userID, roadmapCourseID, sectionID, chapterID uint) error {
	var moduleWeek int

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)

		target, err := repo.GetChapterProgress(userID, chapterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrProgressNotFound
			}
			return err
		}
		if target.IsUnlocked {
			return nil
		}

		section, err := repo.GetSectionProgress(userID, sectionID)
		if err != nil {
			return err
		}
		moduleWeek = section.ModuleWeek

		ok, err := s.previousChaptersCompleted(repo, userID, roadmapCourseID, target)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrSequenceViolation
		}

		return repo.MarkChapterUnlocked(userID, chapterID, time.Now())
	})

	s.record("chapter", err)
	if err != nil {
		return err
	}

	logger.Log.Info("chapter unlocked",
		zap.Uint("userId", userID),
		zap.Uint("roadmapCourseId", roadmapCourseID),
		zap.Uint("chapterId", chapterID))

	s.Notifier.NotifyAsync(NotificationEvent{
		UserID:          userID,
		RoadmapCourseID: roadmapCourseID,
		ModuleWeek:      moduleWeek,
		SectionID:       sectionID,
		ContentRefID:    chapterID,
		Body:            "A new chapter is now available.",
		ActionURL:       fmt.Sprintf("/courses/%d/chapters/%d", roadmapCourseID, chapterID),
		Type:            EventChapterUnlocked,
	})
	return nil
}

// UnlockSection 解锁小节并顺带解锁它的第一章。前面的小节必须全部完成。
func (s *UnlockService) UnlockSection(userID, roadmapCourseID, sectionID uint) error {
	var moduleWeek int

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)

		week, err := s.unlockSectionTx(repo, userID, sectionID)
		if err != nil {
			return err
		}
		moduleWeek = week
		return nil
	})

	s.record("section", err)
	if err != nil {
		return err
	}

	logger.Log.Info("section unlocked",
		zap.Uint("userId", userID),
		zap.Uint("roadmapCourseId", roadmapCourseID),
		zap.Uint("sectionId", sectionID))

	s.Notifier.NotifyAsync(NotificationEvent{
		UserID:          userID,
		RoadmapCourseID: roadmapCourseID,
		ModuleWeek:      moduleWeek,
		SectionID:       sectionID,
		Body:            "A new section is now available.",
		ActionURL:       fmt.Sprintf("/courses/%d/sections/%d", roadmapCourseID, sectionID),
		Type:            EventSectionUnlocked,
	})
	return nil
}

// UnlockModule 解锁第 k 周模块：上一模块的小节必须全部完成；
// 周解锁课程还要求距最近一次完成至少 cadence_days 天。
// 已解锁的模块返回 ErrAlreadyUnlocked（软失败）。
func (s *UnlockService) UnlockModule(userID, roadmapCourseID uint, moduleWeek int) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)

		sections, err := repo.ListSectionProgress(userID, roadmapCourseID)
		if err != nil {
			return err
		}
		if len(sections) == 0 {
			return util.ErrProgressNotFound
		}

		var current, previous []model.UserSectionProgress
		for _, row := range sections {
			switch row.ModuleWeek {
			case moduleWeek:
				current = append(current, row)
			case moduleWeek - 1:
				previous = append(previous, row)
			}
		}
		if len(current) == 0 {
			return util.ErrProgressNotFound
		}

		if current[0].IsUnlocked {
			return util.ErrAlreadyUnlocked
		}

		if moduleWeek > 1 {
			if len(previous) == 0 {
				return util.ErrSequenceViolation
			}
			var latest time.Time
			for _, row := range previous {
				if !row.IsCompleted {
					return util.ErrSequenceViolation
				}
				if row.CompletedAt != nil && row.CompletedAt.After(latest) {
					latest = *row.CompletedAt
				}
			}

			mapping, err := s.CatalogRepo.GetCourseMapping(roadmapCourseID)
			if err != nil {
				return err
			}
			if mapping.IsWeeklyUnlock {
				cooldown := time.Duration(s.Config.Unlock.CadenceDays) * 24 * time.Hour
				if time.Since(latest) < cooldown {
					return util.ErrCadenceNotElapsed
				}
			}
		}

		_, err = s.unlockSectionTx(repo, userID, current[0].SectionID)
		return err
	})

	s.record("module", err)
	if err != nil {
		return err
	}

	logger.Log.Info("module unlocked",
		zap.Uint("userId", userID),
		zap.Uint("roadmapCourseId", roadmapCourseID),
		zap.Int("moduleWeek", moduleWeek))

	s.Notifier.NotifyAsync(NotificationEvent{
		UserID:          userID,
		RoadmapCourseID: roadmapCourseID,
		ModuleWeek:      moduleWeek,
		Body:            fmt.Sprintf("Module %d is now available.", moduleWeek),
		ActionURL:       fmt.Sprintf("/courses/%d/modules/%d", roadmapCourseID, moduleWeek),
		Type:            EventModuleUnlocked,
	})
	return nil
}

// unlockSectionTx 小节解锁的事务内核心：校验前序小节、落解锁标记、
// 解锁本节第一章（此时章节规则必然满足）。返回小节所属模块周。
func (s *UnlockService) unlockSectionTx(repo *repository.ProgressRepository, userID, sectionID uint) (int, error) {
	target, err := repo.GetSectionProgress(userID, sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, util.ErrProgressNotFound
		}
		return 0, err
	}
	if target.IsUnlocked {
		return target.ModuleWeek, nil
	}

	siblings, err := repo.ListSectionProgress(userID, target.RoadmapCourseID)
	if err != nil {
		return 0, err
	}
	for _, row := range siblings {
		if row.OrderSequence >= target.OrderSequence {
			continue
		}
		if !row.IsUnlocked || !row.IsCompleted {
			return 0, util.ErrSequenceViolation
		}
	}

	now := time.Now()
	if err := repo.MarkSectionUnlocked(userID, sectionID, now); err != nil {
		return 0, err
	}

	chapters, err := repo.ListChapterProgressBySection(userID, sectionID)
	if err != nil {
		return 0, err
	}
	if len(chapters) == 0 {
		return 0, util.ErrEmptyCourse
	}

	if err := repo.MarkChapterUnlocked(userID, chapters[0].ChapterID, now); err != nil {
		return 0, err
	}

	return target.ModuleWeek, nil
}

// previousChaptersCompleted 课程范围内，复合顺序在目标章节之前的
// 全部章节是否都已解锁并完成
func (s *UnlockService) previousChaptersCompleted(repo *repository.ProgressRepository, userID, roadmapCourseID uint, target *model.UserChapterProgress) (bool, error) {
	sections, err := repo.ListSectionProgress(userID, roadmapCourseID)
	if err != nil {
		return false, err
	}
	sectionOrder := make(map[uint]int, len(sections))
	for _, row := range sections {
		sectionOrder[row.SectionID] = row.OrderSequence
	}

	chapters, err := repo.ListChapterProgress(userID, roadmapCourseID)
	if err != nil {
		return false, err
	}
	sort.Slice(chapters, func(i, j int) bool {
		if sectionOrder[chapters[i].SectionID] != sectionOrder[chapters[j].SectionID] {
			return sectionOrder[chapters[i].SectionID] < sectionOrder[chapters[j].SectionID]
		}
		return chapters[i].OrderSequence < chapters[j].OrderSequence
	})

	for _, row := range chapters {
		if row.ChapterID == target.ChapterID {
			break
		}
		if !row.IsUnlocked || !row.IsCompleted {
			return false, nil
		}
	}
	return true, nil
}

func (s *UnlockService) record(level string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	monitoring.UnlockTransitions.WithLabelValues(level, result).Inc()
}
