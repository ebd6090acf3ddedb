package service

import (
	"errors"
	"math"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/repository"
	"roadmap_edu_backend/internal/util"
	"sort"

	"gorm.io/gorm"
)

// ProgressService 进度聚合的只读侧：把章节级状态卷积成小节/模块/
// 课程百分比和"当前位置"指针，供展示方消费。
type ProgressService struct {
	CatalogRepo   *repository.CatalogRepository
	ProgressRepo  *repository.ProgressRepository
	RoadmapRepo   *repository.RoadmapRepository
	StatusService *CourseStatusService
}

func NewProgressService(
	catalogRepo *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	roadmapRepo *repository.RoadmapRepository,
	statusService *CourseStatusService,
) *ProgressService {
	return &ProgressService{
		CatalogRepo:   catalogRepo,
		ProgressRepo:  progressRepo,
		RoadmapRepo:   roadmapRepo,
		StatusService: statusService,
	}
}

// ModuleSummary 单个模块周的汇总
type ModuleSummary struct {
	ModuleWeek        int  `json:"moduleWeek"`
	TotalSections     int  `json:"totalSections"`
	CompletedSections int  `json:"completedSections"`
	CompletionPercent int  `json:"completionPercent"`
	IsUnlocked        bool `json:"isUnlocked"`
}

// CourseSummary 课程级汇总连同逐模块百分比
type CourseSummary struct {
	RoadmapCourseID   uint            `json:"roadmapCourseId"`
	TotalSections     int             `json:"totalSections"`
	CompletedSections int             `json:"completedSections"`
	ProgressPercent   int             `json:"progressPercent"`
	IsCompleted       bool            `json:"isCompleted"`
	Modules           []ModuleSummary `json:"modules"`
}

// ChapterView 章节在进度视图里的展示态
type ChapterView struct {
	ChapterID          uint              `json:"chapterId"`
	OrderSequence      int               `json:"orderSequence"`
	ContentType        model.ContentType `json:"contentType"`
	IsUnlocked         bool              `json:"isUnlocked"`
	IsCompleted        bool              `json:"isCompleted"`
	CompletionFraction float64           `json:"completionFraction"`
	WatchedDuration    int               `json:"watchedDuration"`
	TotalDuration      int               `json:"totalDuration"`
}

// SectionView 小节连同其章节的展示态
type SectionView struct {
	SectionID         uint          `json:"sectionId"`
	OrderSequence     int           `json:"orderSequence"`
	ModuleWeek        int           `json:"moduleWeek"`
	IsUnlocked        bool          `json:"isUnlocked"`
	IsCompleted       bool          `json:"isCompleted"`
	CompletionPercent int           `json:"completionPercent"`
	Chapters          []ChapterView `json:"chapters"`
}

// CurrentPosition 当前位置：最近解锁且尚未完成的章节
type CurrentPosition struct {
	RoadmapCourseID uint `json:"roadmapCourseId"`
	SectionID       uint `json:"sectionId"`
	ChapterID       uint `json:"chapterId"`
	ModuleWeek      int  `json:"moduleWeek"`
}

// OngoingView 用户正在学的课程与后续课程
type OngoingView struct {
	Current  *CourseStatusView  `json:"current,omitempty"`
	Position *CurrentPosition   `json:"position,omitempty"`
	Upcoming []CourseStatusView `json:"upcoming"`
}

// GetCourseSummary 课程汇总。moduleCompletionPercent 按模块内
// round(100 * completedSections / totalSections) 计算。
func (s *ProgressService) GetCourseSummary(userID, roadmapCourseID uint) (*CourseSummary, error) {
	course, err := s.ProgressRepo.GetCourseProgress(userID, roadmapCourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}

	sections, err := s.ProgressRepo.ListSectionProgress(userID, roadmapCourseID)
	if err != nil {
		return nil, err
	}

	byWeek := make(map[int]*ModuleSummary)
	weeks := make([]int, 0)
	for _, row := range sections {
		summary, ok := byWeek[row.ModuleWeek]
		if !ok {
			summary = &ModuleSummary{ModuleWeek: row.ModuleWeek}
			byWeek[row.ModuleWeek] = summary
			weeks = append(weeks, row.ModuleWeek)
		}
		summary.TotalSections++
		if row.IsCompleted {
			summary.CompletedSections++
		}
		if row.IsUnlocked {
			summary.IsUnlocked = true
		}
	}
	sort.Ints(weeks)

	modules := make([]ModuleSummary, 0, len(weeks))
	for _, week := range weeks {
		summary := byWeek[week]
		summary.CompletionPercent = percentOf(summary.CompletedSections, summary.TotalSections)
		modules = append(modules, *summary)
	}

	return &CourseSummary{
		RoadmapCourseID:   roadmapCourseID,
		TotalSections:     course.TotalSections,
		CompletedSections: course.CompletedSections,
		ProgressPercent:   course.ProgressPercent,
		IsCompleted:       course.IsCompleted,
		Modules:           modules,
	}, nil
}

// GetModuleDetails 模块周内的小节与章节明细。moduleWeek 为 0 表示
// 返回整门课程。视频章节的完成度是 clamp(watched/total, 0, 1)，
// 其余类型按 isCompleted 取 0 或 1。
func (s *ProgressService) GetModuleDetails(userID, roadmapCourseID uint, moduleWeek int) ([]SectionView, error) {
	var sections []model.UserSectionProgress
	var err error
	if moduleWeek > 0 {
		sections, err = s.ProgressRepo.ListSectionProgressByModule(userID, roadmapCourseID, moduleWeek)
	} else {
		sections, err = s.ProgressRepo.ListSectionProgress(userID, roadmapCourseID)
	}
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, util.ErrProgressNotFound
	}

	views := make([]SectionView, 0, len(sections))
	for _, section := range sections {
		chapters, err := s.ProgressRepo.ListChapterProgressBySection(userID, section.SectionID)
		if err != nil {
			return nil, err
		}

		view := SectionView{
			SectionID:     section.SectionID,
			OrderSequence: section.OrderSequence,
			ModuleWeek:    section.ModuleWeek,
			IsUnlocked:    section.IsUnlocked,
			IsCompleted:   section.IsCompleted,
			Chapters:      make([]ChapterView, 0, len(chapters)),
		}

		completed := 0
		for _, chapter := range chapters {
			if chapter.IsCompleted {
				completed++
			}
			view.Chapters = append(view.Chapters, ChapterView{
				ChapterID:          chapter.ChapterID,
				OrderSequence:      chapter.OrderSequence,
				ContentType:        chapter.ContentType,
				IsUnlocked:         chapter.IsUnlocked,
				IsCompleted:        chapter.IsCompleted,
				CompletionFraction: completionFraction(chapter),
				WatchedDuration:    chapter.WatchedDuration,
				TotalDuration:      chapter.TotalDuration,
			})
		}
		view.CompletionPercent = percentOf(completed, len(chapters))
		views = append(views, view)
	}
	return views, nil
}

// GetCurrentPosition 已解锁未完成的章节里 unlockedAt 最新的那个，
// 时间相同取（小节序，章节序）最大者。没有候选时返回 nil。
func (s *ProgressService) GetCurrentPosition(userID, roadmapCourseID uint) (*CurrentPosition, error) {
	sections, err := s.ProgressRepo.ListSectionProgress(userID, roadmapCourseID)
	if err != nil {
		return nil, err
	}
	sectionOrder := make(map[uint]int, len(sections))
	sectionWeek := make(map[uint]int, len(sections))
	for _, row := range sections {
		sectionOrder[row.SectionID] = row.OrderSequence
		sectionWeek[row.SectionID] = row.ModuleWeek
	}

	chapters, err := s.ProgressRepo.ListChapterProgress(userID, roadmapCourseID)
	if err != nil {
		return nil, err
	}

	var best *model.UserChapterProgress
	for i := range chapters {
		row := &chapters[i]
		if !row.IsUnlocked || row.IsCompleted || row.UnlockedAt == nil {
			continue
		}
		if best == nil {
			best = row
			continue
		}
		switch {
		case row.UnlockedAt.After(*best.UnlockedAt):
			best = row
		case row.UnlockedAt.Equal(*best.UnlockedAt):
			if sectionOrder[row.SectionID] > sectionOrder[best.SectionID] ||
				(sectionOrder[row.SectionID] == sectionOrder[best.SectionID] && row.OrderSequence > best.OrderSequence) {
				best = row
			}
		}
	}
	if best == nil {
		return nil, nil
	}

	return &CurrentPosition{
		RoadmapCourseID: roadmapCourseID,
		SectionID:       best.SectionID,
		ChapterID:       best.ChapterID,
		ModuleWeek:      sectionWeek[best.SectionID],
	}, nil
}

// GetOngoing 用户当前在学的课程（顺序最靠前的未完成进度）、
// 其中的当前位置以及路线里的后续课程
func (s *ProgressService) GetOngoing(userID uint) (*OngoingView, error) {
	enrollments, err := s.RoadmapRepo.ListEnrollments(userID)
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return nil, util.ErrNotEnrolled
	}

	// 多路线时取最近报名的那条
	roadmapID := enrollments[len(enrollments)-1].RoadmapID
	courses, err := s.StatusService.ListRoadmapCoursesWithStatus(userID, roadmapID)
	if err != nil {
		return nil, err
	}

	view := &OngoingView{Upcoming: make([]CourseStatusView, 0)}
	for i := range courses {
		course := courses[i]
		if view.Current == nil && course.Status == CourseStatusInProgress {
			view.Current = &course
			position, err := s.GetCurrentPosition(userID, course.RoadmapCourseID)
			if err != nil {
				return nil, err
			}
			view.Position = position
			continue
		}
		if view.Current != nil {
			view.Upcoming = append(view.Upcoming, course)
		}
	}
	return view, nil
}

func percentOf(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func completionFraction(chapter model.UserChapterProgress) float64 {
	if chapter.ContentType != model.ContentVideo {
		if chapter.IsCompleted {
			return 1
		}
		return 0
	}
	if chapter.TotalDuration <= 0 {
		if chapter.IsCompleted {
			return 1
		}
		return 0
	}
	fraction := float64(chapter.WatchedDuration) / float64(chapter.TotalDuration)
	return math.Min(math.Max(fraction, 0), 1)
}
