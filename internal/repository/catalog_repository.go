package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"roadmap_edu_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 目录结构运行时只读，缓存不需要失效逻辑，到期重新加载即可
const catalogCacheTTL = 10 * time.Minute

// CatalogRepository 课程目录（路线/课程/小节/章节）的只读访问层
type CatalogRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewCatalogRepository(db *gorm.DB, rdb *redis.Client) *CatalogRepository {
	return &CatalogRepository{DB: db, Redis: rdb}
}

func (r *CatalogRepository) GetRoadmap(id uint) (*model.Roadmap, error) {
	var roadmap model.Roadmap
	err := r.DB.First(&roadmap, id).Error
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (r *CatalogRepository) GetCourse(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CatalogRepository) GetCourseMapping(id uint) (*model.RoadmapCourseMapping, error) {
	var mapping model.RoadmapCourseMapping
	err := r.DB.First(&mapping, id).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// ListRoadmapCourses 返回路线下全部课程槽位，按 order_sequence 升序
func (r *CatalogRepository) ListRoadmapCourses(roadmapID uint) ([]model.RoadmapCourseMapping, error) {
	key := fmt.Sprintf("catalog:roadmap:%d:courses", roadmapID)
	var mappings []model.RoadmapCourseMapping
	if r.cacheGet(key, &mappings) {
		return mappings, nil
	}

	err := r.DB.Where("roadmap_id = ?", roadmapID).
		Order("order_sequence ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}

	r.cacheSet(key, mappings)
	return mappings, nil
}

// ListSections 返回课程下全部小节，按 order_sequence 升序
func (r *CatalogRepository) ListSections(courseID uint) ([]model.Section, error) {
	key := fmt.Sprintf("catalog:course:%d:sections", courseID)
	var sections []model.Section
	if r.cacheGet(key, &sections) {
		return sections, nil
	}

	err := r.DB.Where("course_id = ?", courseID).
		Order("order_sequence ASC").
		Find(&sections).Error
	if err != nil {
		return nil, err
	}

	r.cacheSet(key, sections)
	return sections, nil
}

// ListChapters 返回小节下全部章节，按 order_sequence 升序
func (r *CatalogRepository) ListChapters(sectionID uint) ([]model.Chapter, error) {
	key := fmt.Sprintf("catalog:section:%d:chapters", sectionID)
	var chapters []model.Chapter
	if r.cacheGet(key, &chapters) {
		return chapters, nil
	}

	err := r.DB.Where("section_id = ?", sectionID).
		Order("order_sequence ASC").
		Find(&chapters).Error
	if err != nil {
		return nil, err
	}

	r.cacheSet(key, chapters)
	return chapters, nil
}

func (r *CatalogRepository) cacheGet(key string, dest interface{}) bool {
	if r.Redis == nil {
		return false
	}
	val, err := r.Redis.Get(context.Background(), key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

func (r *CatalogRepository) cacheSet(key string, value interface{}) {
	if r.Redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.Redis.Set(context.Background(), key, data, catalogCacheTTL)
}
