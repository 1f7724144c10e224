package llm

import (
	"context"
	"sync"
)

// Mock 测试和离线演示用的客户端，记录收到的请求并返回预设结果
type Mock struct {
	mu       sync.Mutex
	response string
	err      error
	fn       func(Request) (string, error)
	requests []Request
}

// NewMock 返回固定文本的 Mock
func NewMock(response string) *Mock {
	return &Mock{response: response}
}

// NewMockFunc 由 fn 根据请求生成结果
func NewMockFunc(fn func(Request) (string, error)) *Mock {
	return &Mock{fn: fn}
}

// NewFailingMock 每次调用都返回 err
func NewFailingMock(err error) *Mock {
	return &Mock{err: err}
}

func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn, resp, err := m.fn, m.response, m.err
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(req)
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

// Requests 返回已收到的全部请求
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
