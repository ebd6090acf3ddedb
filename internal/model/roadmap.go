package model

// Roadmap 学习路线，由若干门课程按顺序组成，运行时只读
type Roadmap struct {
	BaseModel
	Name        string `gorm:"size:191;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`

	Courses []RoadmapCourseMapping `gorm:"foreignKey:RoadmapID" json:"courses,omitempty"`
}

func (Roadmap) TableName() string {
	return "roadmaps"
}

// RoadmapCourseMapping 课程在某条路线中的槽位，携带顺序与前置课程链接
type RoadmapCourseMapping struct {
	BaseModel
	RoadmapID     uint `gorm:"index:idx_roadmap_order;not null" json:"roadmapId"`
	CourseID      uint `gorm:"index;not null" json:"courseId"`
	OrderSequence int  `gorm:"index:idx_roadmap_order;not null" json:"orderSequence"`
	IsMandatory   bool `gorm:"default:true" json:"isMandatory"`
	// 按周解锁：模块除了前置完成外还要等待冷却时间
	IsWeeklyUnlock bool `gorm:"default:false" json:"isWeeklyUnlock"`
	// 前置课程槽位，为空表示无前置
	PrerequisiteCourseMappingID *uint `gorm:"index" json:"prerequisiteCourseMappingId,omitempty"`
}

func (RoadmapCourseMapping) TableName() string {
	return "roadmap_course_mappings"
}
