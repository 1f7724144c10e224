package configs

import "sync"

var (
	mu       sync.RWMutex
	headless = true
	binPath  string
)

// InitHeadless 设置新浏览器是否使用无头模式
func InitHeadless(h bool) {
	mu.Lock()
	defer mu.Unlock()
	headless = h
}

// IsHeadless 新浏览器是否使用无头模式
func IsHeadless() bool {
	mu.RLock()
	defer mu.RUnlock()
	return headless
}

// SetBinPath 设置浏览器二进制文件路径
func SetBinPath(b string) {
	mu.Lock()
	defer mu.Unlock()
	binPath = b
}

// GetBinPath 浏览器二进制文件路径，为空时由 headless_browser 自行查找
func GetBinPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return binPath
}
