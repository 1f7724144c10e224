package tiktok

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/page"
)

// ExtractMetadata 提取标题和话题标签。
// 选择器全部未命中时退化为占位标题和空标签，只有 ctx 结束或页面已跳转才返回错误。
func (p *Page) ExtractMetadata(ctx context.Context, url string) (VideoMetadata, error) {
	meta := VideoMetadata{Title: TitleNotFound, Hashtags: []string{}, URL: url}

	if err := page.Sleep(ctx, p.timing.MetadataSettle); err != nil {
		return meta, err
	}

	title, ok, err := page.FirstValue(ctx, p.loc, titleSelectors, nil, p.loc.TextOf(ctx))
	if err != nil {
		return meta, err
	}
	if ok {
		meta.Title = title
		logrus.Infof("找到标题: %s", preview(title, 100))
	} else {
		logrus.Warn("未找到视频标题")
	}

	tags, err := p.hashtags(ctx)
	if err != nil {
		return meta, err
	}
	meta.Hashtags = tags
	logrus.Infof("找到 %d 个话题标签: %v", len(tags), tags)

	return meta, nil
}

// hashtags 取第一条命中的策略，只保留以 # 开头的文本，按出现顺序去重
func (p *Page) hashtags(ctx context.Context) ([]string, error) {
	handles, ok, err := p.loc.LocateAll(ctx, hashtagSelectors, nil)
	if err != nil {
		return nil, err
	}

	tags := []string{}
	if !ok {
		return tags, nil
	}

	seen := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		text, err := p.ctrl.Text(ctx, h)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Debugf("读取话题标签失败: %v", err)
			continue
		}
		text = strings.TrimSpace(text)
		if !strings.HasPrefix(text, "#") {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		tags = append(tags, text)
	}
	return tags, nil
}
