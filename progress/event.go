// Package progress 会话进度事件，以及把事件推送给前端的 WebSocket hub。
// 事件投递是尽力而为的：最多一次，从不阻塞发送方。
package progress

import (
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	TypeProgress           = "progress"
	TypePublishing         = "publishing"
	TypePublishingProgress = "publishing_progress"
	TypePublishingComplete = "publishing_complete"
	TypePublishingError    = "publishing_error"
	TypePing               = "ping"
)

// 进度步骤
const (
	StepInit               = "init"
	StepLoginCheck         = "login_check"
	StepLoginRequired      = "login_required"
	StepManualLogin        = "manual_login"
	StepWaitingLogin       = "waiting_login"
	StepLoggedIn           = "logged_in"
	StepResuming           = "resuming"
	StepVideoExtraction    = "video_extraction"
	StepVideoExtracted     = "video_extracted"
	StepCommentsLoading    = "comments_loading"
	StepCommentsOpened     = "comments_opened"
	StepCommentsScraping   = "comments_scraping"
	StepCompleted          = "completed"
	StepGenerating         = "generating"
	StepResponsesReady     = "responses_ready"
	StepPublishing         = "publishing"
	StepPublishingProgress = "publishing_progress"
	StepPublishingComplete = "publishing_complete"
	StepError              = "error"
)

// Event 一条进度事件
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Step      string    `json:"step,omitempty"`
	State     string    `json:"state,omitempty"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New 创建进度事件，progress 会被限制在 0-100
func New(step string, progress int, message string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      TypeProgress,
		Step:      step,
		Progress:  clamp(progress),
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// WithType 返回替换了事件类型的副本
func (e Event) WithType(t string) Event {
	e.Type = t
	return e
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
