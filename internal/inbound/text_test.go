package inbound

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellai/inkwell/internal/chat"
	"github.com/inkwellai/inkwell/internal/compose"
	"github.com/inkwellai/inkwell/internal/diary"
	"github.com/inkwellai/inkwell/internal/docs"
	"github.com/inkwellai/inkwell/internal/session"
)

type fakeSessions struct {
	messages []session.Message
	media    []session.MediaRef
	cleared  bool
	closed   int
}

func (f *fakeSessions) GetOrCreate(ctx context.Context, userID string) (*session.Session, error) {
	return &session.Session{UserID: userID, Messages: f.messages, Media: f.media}, nil
}

func (f *fakeSessions) AppendMessage(ctx context.Context, userID, role, content string) error {
	f.messages = append(f.messages, session.Message{Role: role, Content: content})
	return nil
}

func (f *fakeSessions) AddMedia(ctx context.Context, userID string, ref session.MediaRef) error {
	f.media = append(f.media, ref)
	return nil
}

func (f *fakeSessions) ListMedia(ctx context.Context, userID string) ([]session.MediaRef, error) {
	return f.media, nil
}

func (f *fakeSessions) ClearMedia(ctx context.Context, userID string) error {
	f.cleared = true
	f.media = nil
	return nil
}

func (f *fakeSessions) Context(ctx context.Context, userID string) ([]chat.Message, error) {
	out := make([]chat.Message, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, chat.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (f *fakeSessions) Close(ctx context.Context, userID string) error {
	f.closed++
	return nil
}

type fakeComposer struct {
	guide string
	diary string
}

func (f *fakeComposer) GuideReply(ctx context.Context, history []chat.Message) string { return f.guide }
func (f *fakeComposer) Diary(ctx context.Context, history []chat.Message) string      { return f.diary }

type fakeDiaries struct {
	saved   []*diary.Diary
	listed  []*diary.Diary
	deleted []string
	byDoc   map[string][]*diary.Diary
}

func (f *fakeDiaries) Save(ctx context.Context, d *diary.Diary) error {
	f.saved = append(f.saved, d)
	return nil
}

func (f *fakeDiaries) ListByUser(ctx context.Context, userID string, limit int) ([]*diary.Diary, error) {
	return f.listed, nil
}

func (f *fakeDiaries) ListByDocumentID(ctx context.Context, documentID string) ([]*diary.Diary, error) {
	return f.byDoc[documentID], nil
}

func (f *fakeDiaries) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDiaries) DeleteByUser(ctx context.Context, userID string) (int, error) {
	n := len(f.listed)
	f.listed = nil
	return n, nil
}

type fakePublisher struct {
	publishErr error
	deleteErr  error
	published  []docs.PublishInput
	deleted    []string
}

func (f *fakePublisher) Publish(ctx context.Context, input docs.PublishInput) (*docs.Document, error) {
	f.published = append(f.published, input)
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return &docs.Document{ID: "doxcnabc123", URL: "https://www.feishu.cn/docx/doxcnabc123"}, nil
}

func (f *fakePublisher) Delete(ctx context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return f.deleteErr
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) SendText(ctx context.Context, openID, text string) error {
	f.sent = append(f.sent, text)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type textFixture struct {
	sessions  *fakeSessions
	composer  *fakeComposer
	diaries   *fakeDiaries
	publisher *fakePublisher
	notifier  *fakeNotifier
	handler   *TextHandler
}

func newTextFixture() *textFixture {
	f := &textFixture{
		sessions:  &fakeSessions{messages: []session.Message{{Role: "system", Content: compose.PersonaPrompt}}},
		composer:  &fakeComposer{guide: "然后呢？", diary: "# 日记\n\n## 今日概览\n去了公园。"},
		diaries:   &fakeDiaries{byDoc: map[string][]*diary.Diary{}},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	f.handler = NewTextHandler(f.sessions, f.composer, f.diaries, f.publisher, f.notifier, "", testLogger())
	return f
}

func textMessage(text string) Message {
	return Message{
		MessageID:    "om_1",
		MessageType:  "text",
		Content:      `{"text":"` + text + `"}`,
		SenderOpenID: "ou_user",
	}
}

func TestTextHandlerNormalTurn(t *testing.T) {
	f := newTextFixture()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("早上去了趟超市")))

	require.Len(t, f.sessions.messages, 3)
	assert.Equal(t, "user", f.sessions.messages[1].Role)
	assert.Equal(t, "早上去了趟超市", f.sessions.messages[1].Content)
	assert.Equal(t, "assistant", f.sessions.messages[2].Role)
	assert.Equal(t, "然后呢？", f.sessions.messages[2].Content)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "然后呢？", f.notifier.sent[0])
	assert.Empty(t, f.publisher.published)
}

func TestTextHandlerFinishKeywordComposes(t *testing.T) {
	f := newTextFixture()
	f.sessions.messages = append(f.sessions.messages,
		session.Message{Role: "user", Content: "今天去了公园"},
		session.Message{Role: "assistant", Content: "玩得开心吗？"},
		session.Message{Role: "user", Content: "很开心，还拍了照片"},
		session.Message{Role: "assistant", Content: "还发生了什么？"},
		session.Message{Role: "user", Content: "晚上和朋友吃了火锅"},
		session.Message{Role: "assistant", Content: "听起来很充实呢"},
	)
	f.sessions.media = []session.MediaRef{
		{Kind: session.MediaKindImage, FileName: "park.jpg", AssetKey: "img_key_1", MessageID: "om_img"},
		{Kind: session.MediaKindVideo, FileName: "clip.mp4", AssetKey: "file_key_1"},
	}

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("好了，帮我总结")))

	// The finish trigger itself never lands in the transcript.
	require.Len(t, f.sessions.messages, 7)
	assert.Equal(t, "听起来很充实呢", f.sessions.messages[6].Content)

	// Only the picture is published, videos stay out of the document.
	require.Len(t, f.publisher.published, 1)
	input := f.publisher.published[0]
	require.Len(t, input.Images, 1)
	assert.Equal(t, "img_key_1", input.Images[0].AssetKey)
	assert.Equal(t, "om_img", input.Images[0].MessageID)
	assert.Contains(t, input.Title, "日记 - ")

	require.Len(t, f.diaries.saved, 1)
	saved := f.diaries.saved[0]
	assert.Equal(t, "doxcnabc123", saved.DocumentID)
	assert.Equal(t, []string{"日记", saved.CreateDate.Format("2006-01-02")}, saved.Tags)

	assert.True(t, f.sessions.cleared)
	assert.Equal(t, 1, f.sessions.closed)

	final := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Contains(t, final, "今天的日记整理好了")
	assert.Contains(t, final, "https://www.feishu.cn/docx/doxcnabc123")
	assert.Contains(t, final, "媒体文件：2 个已保存")
}

func TestTextHandlerComposeEmptySession(t *testing.T) {
	f := newTextFixture()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/diary")))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "还没有记录今天的事情")
	assert.Empty(t, f.publisher.published)
	assert.Empty(t, f.diaries.saved)
	assert.Zero(t, f.sessions.closed)
}

func TestTextHandlerComposePublishFailure(t *testing.T) {
	f := newTextFixture()
	f.publisher.publishErr = errors.New("remote api error")
	f.sessions.messages = append(f.sessions.messages,
		session.Message{Role: "user", Content: "今天去了公园"})

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("就这样吧")))

	// The diary row is still written, just without a document link.
	require.Len(t, f.diaries.saved, 1)
	assert.Empty(t, f.diaries.saved[0].DocumentID)

	final := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Contains(t, final, "飞书文档保存失败")
	assert.Equal(t, 1, f.sessions.closed)
}

func TestTextHandlerNewCommand(t *testing.T) {
	f := newTextFixture()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/new")))

	assert.Equal(t, 1, f.sessions.closed)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "让我们开始记录今天的故事吧")

	last := f.sessions.messages[len(f.sessions.messages)-1]
	assert.Equal(t, "assistant", last.Role)
}

func TestTextHandlerDeleteCommand(t *testing.T) {
	f := newTextFixture()
	f.diaries.byDoc["doxcn42"] = []*diary.Diary{{ID: "d1"}, {ID: "d2"}}

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/delete doxcn42")))

	assert.Equal(t, []string{"doxcn42"}, f.publisher.deleted)
	assert.Equal(t, []string{"d1", "d2"}, f.diaries.deleted)

	final := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Contains(t, final, "文档删除成功")
	assert.Contains(t, final, "已删除 2 条")
}

func TestTextHandlerDeleteCommandMissingArg(t *testing.T) {
	f := newTextFixture()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/delete")))

	assert.Empty(t, f.publisher.deleted)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "用法: /delete <文档ID>")
}

func TestTextHandlerUnknownCommand(t *testing.T) {
	f := newTextFixture()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/frobnicate")))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "未知命令: frobnicate")
}

func TestTextHandlerCleanTest(t *testing.T) {
	f := newTextFixture()
	f.diaries.listed = []*diary.Diary{
		{ID: "d1", DocumentID: "doxcn1"},
		{ID: "d2", DocumentID: "doxcn2"},
		{ID: "d3"},
	}

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/cleantest")))

	assert.Equal(t, []string{"doxcn1", "doxcn2"}, f.publisher.deleted)

	final := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Contains(t, final, "清理完成")
	assert.Contains(t, final, "总计日记记录: 3 条")
	assert.Contains(t, final, "飞书文档删除: 2 个")
	assert.Contains(t, final, "无飞书文档的记录: 1 条")
	assert.Contains(t, final, "数据库记录清理: 3 条")
}

func TestTextHandlerQueryEmpty(t *testing.T) {
	f := newTextFixture()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/query")))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "还没有日记记录")
}

func TestTextHandlerHelp(t *testing.T) {
	f := newTextFixture()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/help")))

	require.Len(t, f.notifier.sent, 1)
	assert.True(t, strings.Contains(f.notifier.sent[0], "/cleantest"))
}
