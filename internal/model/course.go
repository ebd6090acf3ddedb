package model

type ContentType string

const (
	ContentVideo    ContentType = "video"
	ContentDocument ContentType = "document"
	ContentQuiz     ContentType = "quiz"
	ContentProject  ContentType = "project"
)

type Course struct {
	BaseModel
	Title             string `gorm:"size:255;not null" json:"title"`
	Description       string `gorm:"type:text" json:"description"`
	ThumbnailURL      string `gorm:"size:512" json:"thumbnailUrl"`
	TutorID           uint   `gorm:"index" json:"tutorId"`
	EstimatedDuration int    `gorm:"default:0" json:"estimatedDuration"`

	Sections []Section `gorm:"foreignKey:CourseID" json:"sections,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Section 模块周内的小节，同一 ModuleWeek 下可以有多个小节
type Section struct {
	BaseModel
	CourseID      uint   `gorm:"index:idx_course_section_order;not null" json:"courseId"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	OrderSequence int    `gorm:"index:idx_course_section_order;not null" json:"orderSequence"`
	ModuleWeek    int    `gorm:"index;not null" json:"moduleWeek"`

	Chapters []Chapter `gorm:"foreignKey:SectionID" json:"chapters,omitempty"`
}

func (Section) TableName() string {
	return "sections"
}

// Chapter 最小内容单元：视频/文档/测验/项目
type Chapter struct {
	BaseModel
	SectionID     uint        `gorm:"index:idx_section_chapter_order;not null" json:"sectionId"`
	Title         string      `gorm:"size:255;not null" json:"title"`
	Description   string      `gorm:"type:text" json:"description"`
	OrderSequence int         `gorm:"index:idx_section_chapter_order;not null" json:"orderSequence"`
	ContentType   ContentType `gorm:"size:20;not null" json:"contentType"`
	// 视频时长（秒），非视频类型为 0
	Duration int `gorm:"default:0" json:"duration"`
	// 指向外部内容（视频地址/测验/项目映射）的引用
	ContentRefID uint `gorm:"default:0" json:"contentRefId"`
}

func (Chapter) TableName() string {
	return "chapters"
}
