package service

import (
	"roadmap_edu_backend/internal/repository"
	"time"
)

// EnrolledRoadmapView 报名记录连同路线名称
type EnrolledRoadmapView struct {
	RoadmapID   uint      `json:"roadmapId"`
	RoadmapName string    `json:"roadmapName"`
	EnrolledAt  time.Time `json:"enrolledAt"`
}

type RoadmapService struct {
	CatalogRepo *repository.CatalogRepository
	RoadmapRepo *repository.RoadmapRepository
}

func NewRoadmapService(catalogRepo *repository.CatalogRepository, roadmapRepo *repository.RoadmapRepository) *RoadmapService {
	return &RoadmapService{CatalogRepo: catalogRepo, RoadmapRepo: roadmapRepo}
}

// ListEnrolledRoadmaps 用户的全部路线报名记录，按报名时间先后返回
func (s *RoadmapService) ListEnrolledRoadmaps(userID uint) ([]EnrolledRoadmapView, error) {
	enrollments, err := s.RoadmapRepo.ListEnrollments(userID)
	if err != nil {
		return nil, err
	}

	views := make([]EnrolledRoadmapView, 0, len(enrollments))
	for _, enrollment := range enrollments {
		view := EnrolledRoadmapView{
			RoadmapID:  enrollment.RoadmapID,
			EnrolledAt: enrollment.EnrolledAt,
		}
		if roadmap, err := s.CatalogRepo.GetRoadmap(enrollment.RoadmapID); err == nil {
			view.RoadmapName = roadmap.Name
		}
		views = append(views, view)
	}
	return views, nil
}
