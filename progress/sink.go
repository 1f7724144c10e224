package progress

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink 接收会话进度事件。实现必须立即返回，投递失败直接丢弃。
type Sink interface {
	Publish(sessionID string, ev Event)
}

// SinkFunc 函数形式的 Sink
type SinkFunc func(sessionID string, ev Event)

func (f SinkFunc) Publish(sessionID string, ev Event) {
	f(sessionID, ev)
}

// Discard 丢弃全部事件
var Discard Sink = SinkFunc(func(string, Event) {})

// Multi 把事件依次转发给多个 Sink
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(sessionID string, ev Event) {
		for _, s := range sinks {
			if s != nil {
				s.Publish(sessionID, ev)
			}
		}
	})
}

// LogSink 把事件写入日志
type LogSink struct{}

func (LogSink) Publish(sessionID string, ev Event) {
	entry := logrus.WithFields(logrus.Fields{
		"session":  sessionID,
		"type":     ev.Type,
		"step":     ev.Step,
		"progress": ev.Progress,
	})
	if ev.Step == StepError || ev.Type == TypePublishingError {
		entry.Warn(ev.Message)
		return
	}
	entry.Info(ev.Message)
}

// Recorder 记录全部事件，测试用
type Recorder struct {
	mu     sync.Mutex
	events map[string][]Event
}

// NewRecorder 创建事件记录器
func NewRecorder() *Recorder {
	return &Recorder{events: make(map[string][]Event)}
}

func (r *Recorder) Publish(sessionID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[sessionID] = append(r.events[sessionID], ev)
}

// Events 返回某个会话收到的事件副本
func (r *Recorder) Events(sessionID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events[sessionID]))
	copy(out, r.events[sessionID])
	return out
}

// Steps 返回某个会话收到的事件步骤
func (r *Recorder) Steps(sessionID string) []string {
	evs := r.Events(sessionID)
	steps := make([]string, 0, len(evs))
	for _, ev := range evs {
		steps = append(steps, ev.Step)
	}
	return steps
}
