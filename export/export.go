// Package export 把审核后的回复导出为 Excel 或 JSON。
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/xpzouying/tiktok-reply-mcp/reply"
)

// XLSXContentType Excel 文件的 MIME 类型
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultVideoTitle 会话没有视频标题时使用
const DefaultVideoTitle = "TikTok Video"

const sheetName = "responses"

// Row 导出的一行
type Row struct {
	SessionID   string    `json:"session_id"`
	VideoTitle  string    `json:"video_title"`
	CommentID   int       `json:"comment_id"`
	Username    string    `json:"username"`
	CommentText string    `json:"comment_text"`
	Response    string    `json:"chatgpt_response"`
	Validated   bool      `json:"validated"`
	Action      string    `json:"action"`
	Modified    bool      `json:"modified"`
	Timestamp   time.Time `json:"timestamp"`
}

var header = []any{
	"session_id", "video_title", "comment_id", "username", "comment_text",
	"chatgpt_response", "validated", "action", "modified", "timestamp",
}

// RowsFromReplies 每条回复一行，时间戳统一为 at
func RowsFromReplies(sessionID, videoTitle string, replies []reply.Reply, at time.Time) []Row {
	if videoTitle == "" {
		videoTitle = DefaultVideoTitle
	}
	rows := make([]Row, 0, len(replies))
	for _, r := range replies {
		action := r.Action
		if action == "" {
			action = reply.ActionPending
		}
		rows = append(rows, Row{
			SessionID:   sessionID,
			VideoTitle:  videoTitle,
			CommentID:   r.ID,
			Username:    r.Username,
			CommentText: r.CommentText,
			Response:    r.Response,
			Validated:   action == reply.ActionApproved,
			Action:      string(action),
			Modified:    r.Modified,
			Timestamp:   at,
		})
	}
	return rows
}

// Excel 生成 xlsx 文件内容
func Excel(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, errors.Wrap(err, "rename sheet")
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			r.SessionID, r.VideoTitle, r.CommentID, r.Username, r.CommentText,
			r.Response, r.Validated, r.Action, r.Modified, r.Timestamp.Format(time.RFC3339),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, errors.Wrapf(err, "write row %d", i+1)
		}
	}

	// 评论和回复列加宽
	_ = f.SetColWidth(sheetName, "E", "F", 60)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "encode xlsx")
	}
	return buf.Bytes(), nil
}

// JSON 生成带缩进的 JSON
func JSON(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	return data, errors.Wrap(err, "encode json")
}

// FileName 导出文件名
func FileName(sessionID, ext string) string {
	return fmt.Sprintf("tiktok_responses_%s.%s", sessionID, ext)
}
