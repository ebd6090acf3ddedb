package model

type UserRole string

const (
	Student UserRole = "student"
	Tutor   UserRole = "tutor"
	Admin   UserRole = "admin"
)

// User 用户基础信息（认证由外部服务签发，这里只保留进度引擎需要的字段）
type User struct {
	BaseModel
	Name  string   `gorm:"size:100;not null" json:"name"`
	Email string   `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Role  UserRole `gorm:"size:20;default:'student'" json:"role"`
	OrgID uint     `gorm:"index" json:"orgId"`
}

func (User) TableName() string {
	return "users"
}

// Organization 组织级策略开关
type Organization struct {
	BaseModel
	Name string `gorm:"size:191;not null" json:"name"`
	// 是否允许同一用户同时报名多个学习路线
	AllowMultipleRoadmaps bool `gorm:"default:false" json:"allowMultipleRoadmaps"`
}

func (Organization) TableName() string {
	return "organizations"
}
