package repository

import (
	"roadmap_edu_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// ProgressRepository 四级进度行的持久化层。写入一律由调用方（service 层）
// 通过 WithTx 放进同一个事务，这里不再各自开小事务。
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// WithTx 返回绑定到事务句柄的副本，事务边界由最外层操作持有
func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) GetCourseProgress(userID, roadmapCourseID uint) (*model.UserCourseProgress, error) {
	var progress model.UserCourseProgress
	err := r.DB.Where("user_id = ? AND roadmap_course_id = ?", userID, roadmapCourseID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) CreateCourseProgress(progress *model.UserCourseProgress) error {
	return r.DB.Create(progress).Error
}

func (r *ProgressRepository) CreateSectionProgressBatch(rows []model.UserSectionProgress) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(rows, 100).Error
}

func (r *ProgressRepository) CreateChapterProgressBatch(rows []model.UserChapterProgress) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(rows, 200).Error
}

// ListSectionProgress 按小节顺序返回课程下全部小节进度
func (r *ProgressRepository) ListSectionProgress(userID, roadmapCourseID uint) ([]model.UserSectionProgress, error) {
	var rows []model.UserSectionProgress
	err := r.DB.Where("user_id = ? AND roadmap_course_id = ?", userID, roadmapCourseID).
		Order("order_sequence ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListSectionProgressByModule(userID, roadmapCourseID uint, moduleWeek int) ([]model.UserSectionProgress, error) {
	var rows []model.UserSectionProgress
	err := r.DB.Where("user_id = ? AND roadmap_course_id = ? AND module_week = ?", userID, roadmapCourseID, moduleWeek).
		Order("order_sequence ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) GetSectionProgress(userID, sectionID uint) (*model.UserSectionProgress, error) {
	var row model.UserSectionProgress
	err := r.DB.Where("user_id = ? AND section_id = ?", userID, sectionID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListChapterProgressBySection 按章节顺序返回小节下全部章节进度
func (r *ProgressRepository) ListChapterProgressBySection(userID, sectionID uint) ([]model.UserChapterProgress, error) {
	var rows []model.UserChapterProgress
	err := r.DB.Where("user_id = ? AND section_id = ?", userID, sectionID).
		Order("order_sequence ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListChapterProgress(userID, roadmapCourseID uint) ([]model.UserChapterProgress, error) {
	var rows []model.UserChapterProgress
	err := r.DB.Where("user_id = ? AND roadmap_course_id = ?", userID, roadmapCourseID).
		Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) GetChapterProgress(userID, chapterID uint) (*model.UserChapterProgress, error) {
	var row model.UserChapterProgress
	err := r.DB.Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkSectionUnlocked 只允许 locked -> unlocked，已解锁的行不会被改动
func (r *ProgressRepository) MarkSectionUnlocked(userID, sectionID uint, at time.Time) error {
	return r.DB.Model(&model.UserSectionProgress{}).
		Where("user_id = ? AND section_id = ? AND is_unlocked = ?", userID, sectionID, false).
		Updates(map[string]interface{}{"is_unlocked": true, "unlocked_at": at}).Error
}

func (r *ProgressRepository) MarkChapterUnlocked(userID, chapterID uint, at time.Time) error {
	return r.DB.Model(&model.UserChapterProgress{}).
		Where("user_id = ? AND chapter_id = ? AND is_unlocked = ?", userID, chapterID, false).
		Updates(map[string]interface{}{"is_unlocked": true, "unlocked_at": at}).Error
}

func (r *ProgressRepository) MarkChapterCompleted(userID, chapterID uint, at time.Time) error {
	return r.DB.Model(&model.UserChapterProgress{}).
		Where("user_id = ? AND chapter_id = ? AND is_completed = ?", userID, chapterID, false).
		Updates(map[string]interface{}{"is_completed": true, "completed_at": at}).Error
}

func (r *ProgressRepository) UpdateWatchedDuration(userID, chapterID uint, watched int) error {
	// 观看进度只增不减
	return r.DB.Model(&model.UserChapterProgress{}).
		Where("user_id = ? AND chapter_id = ? AND watched_duration < ?", userID, chapterID, watched).
		Update("watched_duration", watched).Error
}

func (r *ProgressRepository) MarkSectionCompleted(userID, sectionID uint, at time.Time) error {
	return r.DB.Model(&model.UserSectionProgress{}).
		Where("user_id = ? AND section_id = ? AND is_completed = ?", userID, sectionID, false).
		Updates(map[string]interface{}{"is_completed": true, "completed_at": at}).Error
}

func (r *ProgressRepository) UpdateCourseCounters(id uint, completedSections, progressPercent int) error {
	return r.DB.Model(&model.UserCourseProgress{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"completed_sections": completedSections,
			"progress_percent":   progressPercent,
		}).Error
}

func (r *ProgressRepository) MarkCourseCompleted(id uint, at time.Time) error {
	return r.DB.Model(&model.UserCourseProgress{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{"is_completed": true, "completed_at": at}).Error
}

func (r *ProgressRepository) CreateCertificate(cert *model.CourseCertificate) error {
	return r.DB.Create(cert).Error
}

func (r *ProgressRepository) GetCertificate(userID, roadmapCourseID uint) (*model.CourseCertificate, error) {
	var cert model.CourseCertificate
	err := r.DB.Where("user_id = ? AND roadmap_course_id = ?", userID, roadmapCourseID).
		First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}
