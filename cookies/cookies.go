package cookies

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultFileName 默认的 cookies 文件名
const DefaultFileName = "tiktok_cookies.json"

// Cookier 登录 cookies 的读写
type Cookier interface {
	LoadCookies() ([]byte, error)
	SaveCookies(data []byte) error
	DeleteCookies() error
}

type localCookie struct {
	path string
}

// NewLoadCookie 基于本地文件的 Cookier
func NewLoadCookie(path string) Cookier {
	if path == "" {
		path = GetCookiesFilePath()
	}
	return &localCookie{path: path}
}

// LoadCookies 从文件中加载 cookies
func (c *localCookie) LoadCookies() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read cookies from %s", c.path)
	}
	return data, nil
}

// SaveCookies 保存 cookies 到文件中，必要时创建目录
func (c *localCookie) SaveCookies(data []byte) error {
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create cookies dir %s", dir)
		}
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write cookies to %s", c.path)
	}
	return nil
}

// DeleteCookies 删除 cookies 文件，文件不存在不算错误
func (c *localCookie) DeleteCookies() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete cookies %s", c.path)
	}
	return nil
}

// GetCookiesFilePath 获取 cookies 文件路径。
// 优先使用环境变量 COOKIES_PATH，否则使用当前目录下的 tiktok_cookies.json。
func GetCookiesFilePath() string {
	if path := os.Getenv("COOKIES_PATH"); path != "" {
		return path
	}
	return DefaultFileName
}

// GetInstanceCookiesFilePath 批量运行时每个实例独立的 cookies 文件，
// 首次使用时从共享的 base 复制一份。base 为空时使用 GetCookiesFilePath。
func GetInstanceCookiesFilePath(base, instance string) string {
	if base == "" {
		base = GetCookiesFilePath()
	}
	ext := filepath.Ext(base)
	path := base[:len(base)-len(ext)] + "_" + instance + ext

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := os.ReadFile(base); err == nil {
			_ = os.WriteFile(path, data, 0o600)
		}
	}
	return path
}
