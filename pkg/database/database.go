package database

import (
	"fmt"
	"log"
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedCatalog(db)

	return db, nil
}

// Migrate 同步全部表结构，测试用的内存库也走同一份迁移
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Organization{},
		&model.Roadmap{},
		&model.RoadmapCourseMapping{},
		&model.Course{},
		&model.Section{},
		&model.Chapter{},
		&model.UserEnrolledRoadmap{},
		&model.UserCourseProgress{},
		&model.UserSectionProgress{},
		&model.UserChapterProgress{},
		&model.CourseCertificate{},
	)
}

// 空库时插入一条演示路线，方便本地联调
func seedCatalog(db *gorm.DB) {
	var count int64
	db.Model(&model.Roadmap{}).Count(&count)
	if count > 0 {
		return
	}

	roadmap := &model.Roadmap{Name: "后端开发路线", Description: "从语言基础到上线部署", IsActive: true}
	db.Create(roadmap)

	course := &model.Course{Title: "Go 语言基础", Description: "语法、并发与工程化", EstimatedDuration: 7200}
	db.Create(course)

	mapping := &model.RoadmapCourseMapping{
		RoadmapID:     roadmap.ID,
		CourseID:      course.ID,
		OrderSequence: 1,
		IsMandatory:   true,
	}
	db.Create(mapping)

	sections := []model.Section{
		{CourseID: course.ID, Title: "环境与语法", OrderSequence: 1, ModuleWeek: 1},
		{CourseID: course.ID, Title: "并发入门", OrderSequence: 2, ModuleWeek: 2},
	}
	for i := range sections {
		db.Create(&sections[i])
	}

	chapters := []model.Chapter{
		{SectionID: sections[0].ID, Title: "安装与工具链", OrderSequence: 1, ContentType: model.ContentVideo, Duration: 600},
		{SectionID: sections[0].ID, Title: "基础语法测验", OrderSequence: 2, ContentType: model.ContentQuiz},
		{SectionID: sections[1].ID, Title: "goroutine 与 channel", OrderSequence: 1, ContentType: model.ContentVideo, Duration: 900},
		{SectionID: sections[1].ID, Title: "并发小项目", OrderSequence: 2, ContentType: model.ContentProject},
	}
	for i := range chapters {
		db.Create(&chapters[i])
	}
}
