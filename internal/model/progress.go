package model

import "time"

// UserEnrolledRoadmap 用户与路线的报名关系
type UserEnrolledRoadmap struct {
	BaseModel
	UserID     uint      `gorm:"uniqueIndex:idx_user_roadmap;not null" json:"userId"`
	RoadmapID  uint      `gorm:"uniqueIndex:idx_user_roadmap;not null" json:"roadmapId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

func (UserEnrolledRoadmap) TableName() string {
	return "user_enrolled_roadmaps"
}

// UserCourseProgress 课程级进度，报名时创建，之后只会向前推进，不会删除
type UserCourseProgress struct {
	BaseModel
	UserID                uint       `gorm:"uniqueIndex:idx_user_course;not null" json:"userId"`
	RoadmapCourseID       uint       `gorm:"uniqueIndex:idx_user_course;not null" json:"roadmapCourseId"`
	CourseID              uint       `gorm:"index;not null" json:"courseId"`
	UserEnrolledRoadmapID uint       `gorm:"index" json:"userEnrolledRoadmapId"`
	TotalSections         int        `gorm:"not null" json:"totalSections"`
	CompletedSections     int        `gorm:"default:0" json:"completedSections"`
	ProgressPercent       int        `gorm:"default:0" json:"progressPercent"`
	IsCompleted           bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
}

func (UserCourseProgress) TableName() string {
	return "user_course_progress"
}

// UserSectionProgress 小节级进度
type UserSectionProgress struct {
	BaseModel
	UserID               uint       `gorm:"uniqueIndex:idx_user_section;not null" json:"userId"`
	RoadmapCourseID      uint       `gorm:"index;not null" json:"roadmapCourseId"`
	SectionID            uint       `gorm:"uniqueIndex:idx_user_section;not null" json:"sectionId"`
	UserCourseProgressID uint       `gorm:"index" json:"userCourseProgressId"`
	ModuleWeek           int        `gorm:"index;not null" json:"moduleWeek"`
	OrderSequence        int        `gorm:"not null" json:"orderSequence"`
	TotalChapters        int        `gorm:"not null" json:"totalChapters"`
	IsUnlocked           bool       `gorm:"default:false" json:"isUnlocked"`
	UnlockedAt           *time.Time `json:"unlockedAt,omitempty"`
	IsCompleted          bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

func (UserSectionProgress) TableName() string {
	return "user_section_progress"
}

// UserChapterProgress 章节级进度，视频按观看时长判定完成，其余类型由外部完成信号驱动
type UserChapterProgress struct {
	BaseModel
	UserID                uint        `gorm:"uniqueIndex:idx_user_chapter;not null" json:"userId"`
	RoadmapCourseID       uint        `gorm:"index;not null" json:"roadmapCourseId"`
	SectionID             uint        `gorm:"index;not null" json:"sectionId"`
	ChapterID             uint        `gorm:"uniqueIndex:idx_user_chapter;not null" json:"chapterId"`
	UserSectionProgressID uint        `gorm:"index" json:"userSectionProgressId"`
	OrderSequence         int         `gorm:"not null" json:"orderSequence"`
	ContentType           ContentType `gorm:"size:20;not null" json:"contentType"`
	IsUnlocked            bool        `gorm:"default:false" json:"isUnlocked"`
	UnlockedAt            *time.Time  `json:"unlockedAt,omitempty"`
	IsCompleted           bool        `gorm:"default:false" json:"isCompleted"`
	CompletedAt           *time.Time  `json:"completedAt,omitempty"`
	WatchedDuration       int         `gorm:"default:0" json:"watchedDuration"`
	TotalDuration         int         `gorm:"default:0" json:"totalDuration"`
}

func (UserChapterProgress) TableName() string {
	return "user_chapter_progress"
}

// CourseCertificate 课程完成时签发的证书记录
type CourseCertificate struct {
	UUIDBase
	UserID          uint      `gorm:"index;not null" json:"userId"`
	RoadmapCourseID uint      `gorm:"index;not null" json:"roadmapCourseId"`
	CertificateURL  string    `gorm:"size:512" json:"certificateUrl"`
	IssuedAt        time.Time `json:"issuedAt"`
}

func (CourseCertificate) TableName() string {
	return "course_certificates"
}
