package reply

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// StripFences 去掉包在 JSON 外面的代码块标记，开头 ``` 后面的语言标识（json、JSON、javascript 等）一并去掉
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)

	_, after, ok := strings.Cut(s, "```")
	if !ok {
		return s
	}
	// 同一行里跟着 JSON 时没有语言标识
	if info, rest, found := strings.Cut(after, "\n"); found && !strings.ContainsAny(info, "{[") {
		after = rest
	}
	body, _, _ := strings.Cut(after, "```")
	return strings.TrimSpace(body)
}

// commentID 兼容模型把 comment_id 写成数字或字符串，无法识别时为 0
type commentID int

func (c *commentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}

	var n json.Number
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(s))
	} else {
		n = json.Number(data)
	}

	i, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			// 无法识别的 id 按缺失处理，由调用方丢弃这一条
			*c = 0
			return nil
		}
		i = int(f)
	}
	*c = commentID(i)
	return nil
}

type rawResponse struct {
	CommentID   commentID `json:"comment_id"`
	Username    string    `json:"username"`
	CommentText string    `json:"comment_text"`
	Response    string    `json:"chatgpt_response"`
}

type rawEnvelope struct {
	Responses []rawResponse `json:"responses"`
}

// ParseResponse 解析模型输出并把每条回复关联回原评论。
// JSON 无法解析时返回错误，不做部分恢复。
// 重复的 id 只保留第一条；对不上任何评论的 id 保留回复但没有元素句柄。
func ParseResponse(raw string, comments []tiktok.Comment, maxLength int) ([]Reply, error) {
	var env rawEnvelope
	if err := json.Unmarshal([]byte(StripFences(raw)), &env); err != nil {
		return nil, errors.Wrap(err, "decode model response")
	}

	byID := make(map[int]*tiktok.Comment, len(comments))
	for i := range comments {
		byID[comments[i].ID] = &comments[i]
	}

	seen := make(map[int]struct{}, len(env.Responses))
	replies := make([]Reply, 0, len(env.Responses))
	for _, item := range env.Responses {
		id := int(item.CommentID)
		if id <= 0 {
			logrus.Warnf("模型返回的回复缺少有效 comment_id，丢弃: %q", item.Response)
			continue
		}
		if _, dup := seen[id]; dup {
			logrus.Warnf("模型返回了重复的 comment_id %d，丢弃", id)
			continue
		}
		seen[id] = struct{}{}

		r := Reply{
			ID:          id,
			Username:    item.Username,
			CommentText: item.CommentText,
			Response:    strings.TrimSpace(item.Response),
			Action:      ActionPending,
		}

		if c, ok := byID[id]; ok {
			ref := c.Ref
			r.Ref = &ref
			if r.Username == "" {
				r.Username = c.Username
			}
			if r.CommentText == "" {
				r.CommentText = c.Text
			}
		} else {
			logrus.Warnf("comment_id %d 没有对应的评论，回复无法发布", id)
		}

		if maxLength > 0 && runewidth.StringWidth(r.Response) > maxLength {
			logrus.Warnf("回复 %d 超过长度限制 (%d > %d)", id, runewidth.StringWidth(r.Response), maxLength)
		}

		replies = append(replies, r)
	}
	return replies, nil
}
