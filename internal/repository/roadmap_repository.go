package repository

import (
	"roadmap_edu_backend/internal/model"

	"gorm.io/gorm"
)

// RoadmapRepository 用户与路线的报名关系及组织策略
type RoadmapRepository struct {
	DB *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: db}
}

func (r *RoadmapRepository) WithTx(tx *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: tx}
}

func (r *RoadmapRepository) GetEnrollment(userID, roadmapID uint) (*model.UserEnrolledRoadmap, error) {
	var enrollment model.UserEnrolledRoadmap
	err := r.DB.Where("user_id = ? AND roadmap_id = ?", userID, roadmapID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *RoadmapRepository) ListEnrollments(userID uint) ([]model.UserEnrolledRoadmap, error) {
	var enrollments []model.UserEnrolledRoadmap
	err := r.DB.Where("user_id = ?", userID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *RoadmapRepository) CreateEnrollment(enrollment *model.UserEnrolledRoadmap) error {
	return r.DB.Create(enrollment).Error
}

// AllowsMultipleRoadmaps 查询用户所属组织是否放开多路线报名
func (r *RoadmapRepository) AllowsMultipleRoadmaps(userID uint) (bool, error) {
	var user model.User
	if err := r.DB.First(&user, userID).Error; err != nil {
		return false, err
	}
	if user.OrgID == 0 {
		return false, nil
	}

	var org model.Organization
	if err := r.DB.First(&org, user.OrgID).Error; err != nil {
		return false, err
	}
	return org.AllowMultipleRoadmaps, nil
}
