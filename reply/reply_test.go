package reply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpzouying/tiktok-reply-mcp/llm"
	"github.com/xpzouying/tiktok-reply-mcp/page"
	"github.com/xpzouying/tiktok-reply-mcp/page/pagetest"
	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

const payload = `{
  "responses": [
    {"comment_id": 1, "username": "@alice", "comment_text": "Trop bien", "chatgpt_response": "Salam Alice, merci ma belle !"},
    {"comment_id": 2, "username": "@bob", "comment_text": "Le lien ?", "chatgpt_response": "Salam Bob, tout est en bio inshallah"}
  ]
}`

func testComments() []tiktok.Comment {
	ctrl := page.NewController(pagetest.New())
	return []tiktok.Comment{
		{ID: 1, Username: "@alice", Text: "Trop bien", Ref: ctrl.Wrap(pagetest.NewNode("c1", ""))},
		{ID: 2, Username: "@bob", Text: "Le lien ?", Ref: ctrl.Wrap(pagetest.NewNode("c2", ""))},
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json 代码块", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"普通代码块", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"大写语言标识", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"javascript 语言标识", "```javascript\n{\"a\":1}\n```", `{"a":1}`},
		{"语言标识后有空格", "```json  \r\n{\"a\":1}\n```", `{"a":1}`},
		{"同一行的 JSON", "```{\"a\":1}```", `{"a":1}`},
		{"没有结束标记", "```JSON\n{\"a\":1}", `{"a":1}`},
		{"前后有说明文字", "Voici:\n```json\n{\"a\":1}\n```\nBonne journée", `{"a":1}`},
		{"没有代码块", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestGenerateFencedEqualsUnfenced(t *testing.T) {
	comments := testComments()

	plain := NewGenerator(llm.NewMock(payload)).Generate(context.Background(), comments, Options{})
	fenced := NewGenerator(llm.NewMock("```json\n"+payload+"\n```")).Generate(context.Background(), comments, Options{})
	bare := NewGenerator(llm.NewMock("```\n"+payload+"\n```")).Generate(context.Background(), comments, Options{})

	require.Len(t, plain, 2)
	assert.Equal(t, plain, fenced)
	assert.Equal(t, plain, bare)
}

func TestGenerateMalformedReturnsEmpty(t *testing.T) {
	out := NewGenerator(llm.NewMock(`{"responses": [ {"comment_id": 1,`)).Generate(context.Background(), testComments(), Options{})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestGenerateClientErrorReturnsEmpty(t *testing.T) {
	out := NewGenerator(llm.NewFailingMock(errors.New("rate limited"))).Generate(context.Background(), testComments(), Options{})
	assert.Empty(t, out)
}

func TestGenerateSingleRequest(t *testing.T) {
	mock := llm.NewMock(payload)
	comments := testComments()

	replies := NewGenerator(mock).Generate(context.Background(), comments, Options{
		AccountName: "Ma Boutique",
		Tone:        "joyeux",
		MaxLength:   80,
		VideoTitle:  "Haul Ramadan",
		Hashtags:    []string{"#ramadan", "#haul"},
		Temperature: llm.Temperature(0),
	})
	require.Len(t, replies, 2)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Temperature)
	assert.Zero(t, *reqs[0].Temperature)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, llm.RoleSystem, reqs[0].Messages[0].Role)

	prompt := reqs[0].Messages[1].Content
	assert.Contains(t, prompt, `1. user: @alice | text: "Trop bien"`)
	assert.Contains(t, prompt, `2. user: @bob | text: "Le lien ?"`)
	assert.Contains(t, prompt, "Ma Boutique")
	assert.Contains(t, prompt, "max 80 caractères")
	assert.Contains(t, prompt, "Ton joyeux")
	assert.Contains(t, prompt, "Haul Ramadan")
	assert.Contains(t, prompt, "#ramadan, #haul")
	assert.Contains(t, prompt, `"responses"`)

	for _, r := range replies {
		assert.Equal(t, ActionPending, r.Action)
		assert.False(t, r.Modified)
		assert.True(t, r.Publishable())
	}
}

func TestGenerateNoComments(t *testing.T) {
	mock := llm.NewMock(payload)
	out := NewGenerator(mock).Generate(context.Background(), nil, Options{})
	assert.Empty(t, out)
	assert.Empty(t, mock.Requests())
}

func TestParseResponseUppercaseFence(t *testing.T) {
	raw := "```JSON\n{\"responses\": [{\"comment_id\": 1, \"chatgpt_response\": \"Merci Alice\"}]}\n```"

	replies, err := ParseResponse(raw, testComments(), DefaultMaxLength)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, 1, replies[0].ID)
	assert.Equal(t, "Merci Alice", replies[0].Response)
}

func TestParseResponseUnmatchedAndDuplicate(t *testing.T) {
	comments := testComments()
	raw := `{"responses": [
		{"comment_id": "2", "username": "", "comment_text": "", "chatgpt_response": "Salam Bob"},
		{"comment_id": 7, "username": "@ghost", "comment_text": "?", "chatgpt_response": "Salam"},
		{"comment_id": 2, "username": "@bob", "comment_text": "dup", "chatgpt_response": "doublon"},
		{"comment_id": "x", "chatgpt_response": "sans id"}
	]}`

	replies, err := ParseResponse(raw, comments, DefaultMaxLength)
	require.NoError(t, err)
	require.Len(t, replies, 2)

	assert.Equal(t, 2, replies[0].ID)
	assert.Equal(t, "@bob", replies[0].Username)
	assert.Equal(t, "Le lien ?", replies[0].CommentText)
	assert.Equal(t, "Salam Bob", replies[0].Response)
	require.NotNil(t, replies[0].Ref)
	assert.Equal(t, comments[1].Ref, *replies[0].Ref)

	assert.Equal(t, 7, replies[1].ID)
	assert.Nil(t, replies[1].Ref)
	assert.False(t, replies[1].Publishable())
}

func TestApply(t *testing.T) {
	replies, err := ParseResponse(payload, testComments(), 0)
	require.NoError(t, err)

	r, err := Apply(replies, 1, ActionApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionApproved, r.Action)
	assert.False(t, r.Modified)

	edited := "Salam Bob, le lien est dans ma bio 🎀"
	r, err = Apply(replies, 2, ActionApproved, &edited)
	require.NoError(t, err)
	assert.True(t, r.Modified)
	assert.Equal(t, edited, replies[1].Response)

	same := replies[0].Response
	r, err = Apply(replies, 1, ActionRejected, &same)
	require.NoError(t, err)
	assert.False(t, r.Modified)
	assert.Equal(t, ActionRejected, replies[0].Action)

	_, err = Apply(replies, 42, ActionApproved, nil)
	assert.ErrorIs(t, err, ErrReplyNotFound)

	_, err = Apply(replies, 1, Action("maybe"), nil)
	assert.ErrorIs(t, err, ErrInvalidAction)

	assert.Equal(t, Counts{Total: 2, Approved: 1, Rejected: 1, Modified: 1}, Count(replies))
	approved := Approved(replies, nil)
	require.Len(t, approved, 1)
	assert.Equal(t, 2, approved[0].ID)
	assert.Empty(t, Approved(replies, []int{1}))
}

func TestBuildPromptEscapesQuotes(t *testing.T) {
	prompt := BuildPrompt([]tiktok.Comment{{ID: 1, Username: "@q", Text: `il a dit "wesh"`}}, Options{})
	assert.True(t, strings.Contains(prompt, `1. user: @q | text: "il a dit \"wesh\""`))
	assert.Contains(t, prompt, DefaultAccountName)
}
