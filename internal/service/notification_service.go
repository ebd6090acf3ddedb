package service

import (
	"roadmap_edu_backend/internal/config"
	"roadmap_edu_backend/pkg/logger"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// NotificationEvent 推送给奖励/通知协作方的事件载荷
type NotificationEvent struct {
	UserID          uint   `json:"userId"`
	RoadmapCourseID uint   `json:"roadmapCourseId"`
	ModuleWeek      int    `json:"moduleWeek"`
	SectionID       uint   `json:"sectionId"`
	ContentRefID    uint   `json:"contentRefId"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	ActionURL       string `json:"actionUrl"`
	Type            string `json:"type"`
	Source          string `json:"source"`
}

const (
	EventModuleUnlocked  = "module_unlocked"
	EventSectionUnlocked = "section_unlocked"
	EventChapterUnlocked = "chapter_unlocked"
	EventCourseEnrolled  = "course_enrolled"
	EventCourseCompleted = "course_completed"
)

// NotificationService 解锁/完成事件的尽力而为推送。
// 推送失败只记日志，绝不影响触发它的事务。
type NotificationService struct {
	Client *resty.Client
	Config *config.Config
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	client := resty.New().
		SetBaseURL(cfg.Notification.BaseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2)

	return &NotificationService{Client: client, Config: cfg}
}

// NotifyAsync 异步推送，调用方无需等待
func (s *NotificationService) NotifyAsync(event NotificationEvent) {
	if s.Config.Notification.BaseURL == "" {
		return
	}
	if event.Source == "" {
		event.Source = s.Config.Notification.Source
	}

	go func() {
		resp, err := s.Client.R().
			SetBody(event).
			Post(s.Config.Notification.ProducePath)
		if err != nil {
			logger.Log.Warn("notification delivery failed",
				zap.Uint("userId", event.UserID),
				zap.String("type", event.Type),
				zap.Error(err))
			return
		}
		if resp.IsError() {
			logger.Log.Warn("notification service rejected event",
				zap.Uint("userId", event.UserID),
				zap.String("type", event.Type),
				zap.Int("status", resp.StatusCode()))
		}
	}()
}
