package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/browser"
	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/reply"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// Session 一个会话：持有至多一个浏览器、当前状态和各阶段的结果。
// 只有编排器和它正在运行的阶段会修改会话。
type Session struct {
	key     string
	cfg     Config
	created time.Time

	ctx    context.Context // 会话生命周期，删除时取消
	cancel context.CancelFunc
	tasks  sync.WaitGroup
	lease  *browser.Lease // 同一时间只允许一个阶段驱动页面

	resume     chan struct{}
	resumeOnce sync.Once

	mu         sync.Mutex
	closed     bool
	state      State
	history    []State
	changed    chan struct{} // 每次状态变化时关闭并替换
	updated    time.Time
	drv        page.Driver
	tp         *tiktok.Page
	meta       *tiktok.VideoMetadata
	comments   []tiktok.Comment
	replies    []reply.Reply
	report     *tiktok.PublishReport
	lastErr    string
	screenshot []byte
}

func newSession(key string, cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Session{
		key:     key,
		cfg:     cfg,
		created: now,
		ctx:     ctx,
		cancel:  cancel,
		lease:   browser.NewLease(1),
		resume:  make(chan struct{}),
		state:   StateInit,
		history: []State{StateInit},
		changed: make(chan struct{}),
		updated: now,
	}
}

// Key 会话标识
func (s *Session) Key() string {
	return s.key
}

// Config 启动参数
func (s *Session) Config() Config {
	return s.cfg
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History 经历过的状态，按时间顺序
func (s *Session) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	logrus.WithFields(logrus.Fields{"session": s.key, "from": s.state, "to": st}).Info("会话状态变化")
	s.state = st
	s.history = append(s.history, st)
	s.updated = time.Now()
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(st)
}

// transition 当前状态在 from 中时切换到 to
func (s *Session) transition(to State, from ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !slices.Contains(from, s.state) {
		return ErrInvalidState
	}
	s.setStateLocked(to)
	return nil
}

// watch 返回当前状态和下一次状态变化时关闭的 channel
func (s *Session) watch() (State, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.changed
}

// goTask 在会话生命周期内启动一个后台任务，会话关闭后不再接受新任务
func (s *Session) goTask(name string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("session", s.key).Errorf("任务 %s panic: %v", name, r)
				s.mu.Lock()
				s.lastErr = "internal error"
				if !s.closed {
					s.setStateLocked(StateError)
				}
				s.mu.Unlock()
			}
		}()
		fn(s.ctx)
	}()
	return nil
}

// join 把调用方的 ctx 和会话生命周期合并，任一结束都会取消
func (s *Session) join(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// requestResume 用户确认已登录，多次调用只生效一次
func (s *Session) requestResume() {
	s.resumeOnce.Do(func() { close(s.resume) })
}

// teardown 取消并等待所有任务结束，然后关闭浏览器
func (s *Session) teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.tasks.Wait()

	s.mu.Lock()
	drv := s.drv
	s.drv, s.tp = nil, nil
	s.mu.Unlock()

	if drv != nil {
		if err := drv.Close(); err != nil {
			logrus.WithField("session", s.key).Warnf("关闭浏览器失败: %v", err)
		}
	}
	logrus.WithField("session", s.key).Info("会话已释放")
}

// View 会话的只读快照
type View struct {
	ID        string                `json:"session_id"`
	State     State                 `json:"state"`
	History   []State               `json:"history"`
	URL       string                `json:"url"`
	Metadata  *tiktok.VideoMetadata `json:"video_info,omitempty"`
	Comments  []tiktok.Comment      `json:"comments"`
	Replies   []reply.Reply         `json:"responses"`
	Counts    reply.Counts          `json:"counts"`
	Report    *tiktok.PublishReport `json:"publish_report,omitempty"`
	Error     string                `json:"error,omitempty"`
	HasShot   bool                  `json:"has_screenshot"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Snapshot 复制会话当前数据
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:        s.key,
		State:     s.state,
		History:   slices.Clone(s.history),
		URL:       s.cfg.URL,
		Comments:  slices.Clone(s.comments),
		Replies:   slices.Clone(s.replies),
		Counts:    reply.Count(s.replies),
		Error:     s.lastErr,
		HasShot:   len(s.screenshot) > 0,
		CreatedAt: s.created,
		UpdatedAt: s.updated,
	}
	if v.Comments == nil {
		v.Comments = []tiktok.Comment{}
	}
	if v.Replies == nil {
		v.Replies = []reply.Reply{}
	}
	if s.meta != nil {
		m := *s.meta
		v.Metadata = &m
	}
	if s.report != nil {
		r := *s.report
		v.Report = &r
	}
	return v
}

// Screenshot 出错时保存的页面截图
func (s *Session) Screenshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.screenshot)
}
