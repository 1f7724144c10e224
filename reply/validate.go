package reply

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrReplyNotFound 没有这个 id 的回复
	ErrReplyNotFound = errors.New("reply: not found")
	// ErrInvalidAction 未知的审核状态
	ErrInvalidAction = errors.New("reply: invalid action")
)

// Apply 审核一条回复：设置状态，text 非 nil 且与原文不同时替换回复内容并标记为已修改。
// 返回修改后的副本，replies 中对应元素也会被更新。
func Apply(replies []Reply, id int, action Action, text *string) (Reply, error) {
	if !action.Valid() {
		return Reply{}, errors.Wrapf(ErrInvalidAction, "%q", action)
	}

	for i := range replies {
		if replies[i].ID != id {
			continue
		}
		r := &replies[i]
		r.Action = action
		if text != nil {
			edited := strings.TrimSpace(*text)
			if edited != "" && edited != r.Response {
				r.Response = edited
				r.Modified = true
			}
		}
		return *r, nil
	}
	return Reply{}, errors.Wrapf(ErrReplyNotFound, "id %d", id)
}

// Approved 返回已通过审核的回复，ids 非空时只保留其中的 id，顺序与 replies 一致
func Approved(replies []Reply, ids []int) []Reply {
	var filter map[int]struct{}
	if len(ids) > 0 {
		filter = make(map[int]struct{}, len(ids))
		for _, id := range ids {
			filter[id] = struct{}{}
		}
	}

	out := make([]Reply, 0, len(replies))
	for _, r := range replies {
		if r.Action != ActionApproved {
			continue
		}
		if filter != nil {
			if _, ok := filter[r.ID]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Counts 各审核状态的数量
type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Modified int `json:"modified"`
}

// Count 统计审核进度
func Count(replies []Reply) Counts {
	c := Counts{Total: len(replies)}
	for _, r := range replies {
		switch r.Action {
		case ActionApproved:
			c.Approved++
		case ActionRejected:
			c.Rejected++
		default:
			c.Pending++
		}
		if r.Modified {
			c.Modified++
		}
	}
	return c
}
