package service

import (
	"errors"
	"roadmap_edu_backend/internal/model"
	"roadmap_edu_backend/internal/repository"
	"roadmap_edu_backend/internal/util"

	"gorm.io/gorm"
)

// 课程在某个用户视角下的状态
const (
	CourseStatusNotEnrolled   = "not-enrolled"
	CourseStatusLocked        = "locked"
	CourseStatusReadyToEnroll = "ready-to-enroll"
	CourseStatusInProgress    = "in-progress"
	CourseStatusCompleted     = "completed"
)

// CourseStatusView 路线详情页里一门课程的展示态
type CourseStatusView struct {
	RoadmapCourseID uint   `json:"roadmapCourseId"`
	CourseID        uint   `json:"courseId"`
	CourseName      string `json:"courseName"`
	OrderSequence   int    `json:"orderSequence"`
	IsMandatory     bool   `json:"isMandatory"`
	Status          string `json:"status"`
	ProgressPercent int    `json:"progressPercent"`
	CertificateURL  string `json:"certificateUrl,omitempty"`
}

// CourseStatusService 前置与节奏判定的读侧：根据报名关系、课程进度和
// 前置链接推导课程状态，不改写任何解锁状态。
type CourseStatusService struct {
	CatalogRepo  *repository.CatalogRepository
	ProgressRepo *repository.ProgressRepository
	RoadmapRepo  *repository.RoadmapRepository
}

func NewCourseStatusService(
	catalogRepo *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	roadmapRepo *repository.RoadmapRepository,
) *CourseStatusService {
	return &CourseStatusService{
		CatalogRepo:  catalogRepo,
		ProgressRepo: progressRepo,
		RoadmapRepo:  roadmapRepo,
	}
}

// ResolveCourseStatus 单门课程的状态：
// 未报名路线 → not-enrolled；有课程进度 → in-progress / completed；
// 无进度时看前置课程，无前置或前置已完成 → ready-to-enroll，否则 locked。
func (s *CourseStatusService) ResolveCourseStatus(userID, roadmapID, roadmapCourseID uint) (string, error) {
	mapping, err := s.CatalogRepo.GetCourseMapping(roadmapCourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrCourseNotFound
		}
		return "", err
	}

	_, err = s.RoadmapRepo.GetEnrollment(userID, roadmapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseStatusNotEnrolled, nil
		}
		return "", err
	}

	progress, err := s.ProgressRepo.GetCourseProgress(userID, roadmapCourseID)
	if err == nil {
		if progress.IsCompleted {
			return CourseStatusCompleted, nil
		}
		return CourseStatusInProgress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	return s.resolveUnenrolled(userID, mapping)
}

// ListRoadmapCoursesWithStatus 路线下全部课程槽位连同状态，按顺序返回
func (s *CourseStatusService) ListRoadmapCoursesWithStatus(userID, roadmapID uint) ([]CourseStatusView, error) {
	if _, err := s.CatalogRepo.GetRoadmap(roadmapID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrRoadmapNotFound
		}
		return nil, err
	}

	mappings, err := s.CatalogRepo.ListRoadmapCourses(roadmapID)
	if err != nil {
		return nil, err
	}

	enrolled := true
	if _, err := s.RoadmapRepo.GetEnrollment(userID, roadmapID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		enrolled = false
	}

	views := make([]CourseStatusView, 0, len(mappings))
	for _, mapping := range mappings {
		view := CourseStatusView{
			RoadmapCourseID: mapping.ID,
			CourseID:        mapping.CourseID,
			OrderSequence:   mapping.OrderSequence,
			IsMandatory:     mapping.IsMandatory,
			Status:          CourseStatusNotEnrolled,
		}
		if course, err := s.CatalogRepo.GetCourse(mapping.CourseID); err == nil {
			view.CourseName = course.Title
		}

		if enrolled {
			status, percent, certURL, err := s.statusForEnrolled(userID, mapping)
			if err != nil {
				return nil, err
			}
			view.Status = status
			view.ProgressPercent = percent
			view.CertificateURL = certURL
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *CourseStatusService) statusForEnrolled(userID uint, mapping model.RoadmapCourseMapping) (string, int, string, error) {
	progress, err := s.ProgressRepo.GetCourseProgress(userID, mapping.ID)
	if err == nil {
		if progress.IsCompleted {
			certURL := ""
			if cert, err := s.ProgressRepo.GetCertificate(userID, mapping.ID); err == nil {
				certURL = cert.CertificateURL
			}
			return CourseStatusCompleted, progress.ProgressPercent, certURL, nil
		}
		return CourseStatusInProgress, progress.ProgressPercent, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, "", err
	}

	status, err := s.resolveUnenrolled(userID, &mapping)
	return status, 0, "", err
}

// resolveUnenrolled 已报名路线但尚未报名课程：前置课程完成与否决定
// ready-to-enroll / locked
func (s *CourseStatusService) resolveUnenrolled(userID uint, mapping *model.RoadmapCourseMapping) (string, error) {
	if mapping.PrerequisiteCourseMappingID == nil {
		return CourseStatusReadyToEnroll, nil
	}

	prereq, err := s.ProgressRepo.GetCourseProgress(userID, *mapping.PrerequisiteCourseMappingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseStatusLocked, nil
		}
		return "", err
	}
	if prereq.IsCompleted {
		return CourseStatusReadyToEnroll, nil
	}
	return CourseStatusLocked, nil
}
