package session

import (
	"sort"
	"sync"
)

// Registry 会话表。对同一个 key 的创建、替换和删除串行执行，不同 key 互不影响。
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewRegistry 创建空的会话表
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*keyLock),
	}
}

// lock 锁住一个 key，返回解锁函数。没有人再持有时锁会被回收。
func (r *Registry) lock(key string) func() {
	r.locksMu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{}
		r.locks[key] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.locksMu.Unlock()
	}
}

// Get 按 key 查找会话
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

func (r *Registry) put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.key] = s
}

// remove 只在表中仍是 s 时删除
func (r *Registry) remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.key]; ok && cur == s {
		delete(r.sessions, s.key)
		return true
	}
	return false
}

// Keys 所有会话 key，按字典序
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len 会话数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) all() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
