package tiktok

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// ParseVideoURL 从视频 URL 中解析作者账号和视频 ID
// URL 格式: https://www.tiktok.com/@someone/video/7301234567890?is_from_webapp=1
func ParseVideoURL(urlStr string) (owner, videoID string) {
	if idx := strings.Index(urlStr, "/@"); idx >= 0 {
		owner = "@" + cutAny(urlStr[idx+2:], "/?#")
		if owner == "@" {
			owner = ""
		}
	}

	if idx := strings.Index(urlStr, "/video/"); idx >= 0 {
		videoID = cutAny(urlStr[idx+len("/video/"):], "/?#")
	}

	return owner, videoID
}

// handleFromHref 把个人主页链接规整为 @handle，不是主页链接时返回空
func handleFromHref(href string) string {
	idx := strings.Index(href, "/@")
	if idx < 0 {
		return ""
	}
	handle := cutAny(href[idx+2:], "/?#")
	if handle == "" {
		return ""
	}
	return "@" + handle
}

func cutAny(s, seps string) string {
	if idx := strings.IndexAny(s, seps); idx >= 0 {
		return s[:idx]
	}
	return s
}

// preview 截断到指定显示宽度用于日志，中文和 emoji 按双宽计算
func preview(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}
