package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrRoadmapNotFound    = errors.New("roadmap not found")
	ErrCourseNotFound     = errors.New("course not found in roadmap")
	ErrNotEnrolled        = errors.New("user is not enrolled in this roadmap")
	ErrAlreadyEnrolled    = errors.New("user is already enrolled in another roadmap")
	ErrEmptyCourse        = errors.New("course has no sections or chapters to enroll into")
	ErrSequenceViolation  = errors.New("cannot unlock this content until all previous content is completed")
	ErrCadenceNotElapsed  = errors.New("weekly unlock cooldown has not elapsed yet")
	ErrAlreadyUnlocked    = errors.New("content is already unlocked for the user")
	ErrChapterNotUnlocked = errors.New("chapter is not unlocked for the user")
	ErrProgressNotFound   = errors.New("progress record not found")
	ErrNotVideoContent    = errors.New("watch progress only applies to video chapters")
	ErrPrerequisiteNotMet = errors.New("prerequisite course is not completed")
)
