package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/inkwellai/inkwell/internal/diary"
	"github.com/inkwellai/inkwell/internal/docs"
	"github.com/inkwellai/inkwell/internal/intent"
	"github.com/inkwellai/inkwell/internal/session"
)

// TextHandler runs the diary conversation: guide replies for normal
// turns, composition when the user wraps up, and the slash command
// surface.
type TextHandler struct {
	sessions  SessionStore
	composer  Composer
	diaries   DiaryStore
	publisher DocPublisher
	notifier  Notifier
	logger    *slog.Logger
	docURL    string
	now       func() time.Time
}

func NewTextHandler(sessions SessionStore, composer Composer, diaries DiaryStore, publisher DocPublisher, notifier Notifier, docURL string, logger *slog.Logger) *TextHandler {
	if docURL == "" {
		docURL = "https://www.feishu.cn/docx/"
	}
	if !strings.HasSuffix(docURL, "/") {
		docURL += "/"
	}
	return &TextHandler{
		sessions:  sessions,
		composer:  composer,
		diaries:   diaries,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With(slog.String("service", "text")),
		docURL:    docURL,
		now:       time.Now,
	}
}

func (h *TextHandler) Handle(ctx context.Context, msg Message) error {
	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
		return fmt.Errorf("parse text content: %w", err)
	}
	text := strings.TrimSpace(content.Text)
	userID := msg.SenderOpenID

	h.logger.Info("text message received",
		slog.String("open_id", userID),
		slog.String("text", text))

	what := intent.Classify(text)
	if what.IsCommand {
		return h.handleCommand(ctx, userID, text)
	}
	if what.ShouldCompose {
		return h.generateDiary(ctx, userID)
	}

	// Normal turn: record, think, reply.
	if err := h.sessions.AppendMessage(ctx, userID, "user", text); err != nil {
		return err
	}
	history, err := h.sessions.Context(ctx, userID)
	if err != nil {
		return err
	}

	reply := h.composer.GuideReply(ctx, history)

	if err := h.sessions.AppendMessage(ctx, userID, "assistant", reply); err != nil {
		return err
	}
	return h.notifier.SendText(ctx, userID, reply)
}

func (h *TextHandler) handleCommand(ctx context.Context, userID, text string) error {
	command := strings.ToLower(strings.TrimPrefix(strings.Fields(text)[0], "/"))

	h.logger.Info("command received",
		slog.String("open_id", userID),
		slog.String("command", command))

	switch command {
	case "help":
		return h.notifier.SendText(ctx, userID, helpText)
	case "diary":
		return h.generateDiary(ctx, userID)
	case "new":
		return h.startNewSession(ctx, userID)
	case "query":
		return h.cmdQuery(ctx, userID)
	case "list":
		return h.cmdList(ctx, userID)
	case "delete":
		return h.cmdDelete(ctx, userID, text)
	case "cleantest":
		return h.cmdCleanTest(ctx, userID)
	case "config":
		return h.notifier.SendText(ctx, userID, "配置功能开发中，敬请期待...")
	default:
		return h.notifier.SendText(ctx, userID, "未知命令: "+command+"\n发送 /help 查看可用命令")
	}
}

// generateDiary runs the full composition pipeline: compose the text,
// drain pending media, publish the document, persist the record, close
// the session. Publishing failures degrade to a diary without a link.
func (h *TextHandler) generateDiary(ctx context.Context, userID string) error {
	history, err := h.sessions.Context(ctx, userID)
	if err != nil {
		return err
	}

	// Only the persona seed: nothing to compose yet.
	if len(history) <= 1 {
		return h.notifier.SendText(ctx, userID, "还没有记录今天的事情呢，先和我聊聊今天发生了什么吧~")
	}

	content := h.composer.Diary(ctx, history)

	media, err := h.sessions.ListMedia(ctx, userID)
	if err != nil {
		return err
	}

	var images []docs.Image
	var imageKeys []string
	for _, ref := range media {
		if ref.Kind != session.MediaKindImage {
			continue
		}
		images = append(images, docs.Image{
			AssetKey:  ref.AssetKey,
			MessageID: ref.MessageID,
			FileName:  ref.FileName,
		})
		imageKeys = append(imageKeys, ref.AssetKey)
	}

	if err := h.sessions.ClearMedia(ctx, userID); err != nil {
		h.logger.Warn("clear media failed", slog.String("error", err.Error()))
	}

	today := h.now().Format("2006-01-02")
	title := "日记 - " + today

	doc, err := h.publisher.Publish(ctx, docs.PublishInput{
		Title:       title,
		Content:     content,
		OwnerOpenID: userID,
		Images:      images,
	})
	if err != nil {
		h.logger.Error("publish document failed",
			slog.String("open_id", userID),
			slog.String("error", err.Error()))
	}

	record := &diary.Diary{
		UserID:     userID,
		Title:      title,
		Content:    content,
		Summary:    diary.Summarize(content),
		Tags:       []string{"日记", today},
		Images:     imageKeys,
		CreateDate: h.now(),
	}
	if doc != nil {
		record.DocumentID = doc.ID
	}
	if err := h.diaries.Save(ctx, record); err != nil {
		h.logger.Error("save diary failed",
			slog.String("open_id", userID),
			slog.String("error", err.Error()))
	}

	var lines []string
	lines = append(lines, "今天的日记整理好了！", "")
	if doc != nil {
		lines = append(lines, "已保存到飞书文档："+doc.URL, "")
	} else {
		lines = append(lines, "（飞书文档保存失败，请联系管理员）", "")
	}
	lines = append(lines, content)
	if len(media) > 0 {
		lines = append(lines, "", fmt.Sprintf("媒体文件：%d 个已保存", len(media)))
	}
	lines = append(lines, "", "提示：使用 /new 可以开始记录新的日记")

	if err := h.notifier.SendText(ctx, userID, strings.Join(lines, "\n")); err != nil {
		return err
	}

	return h.sessions.Close(ctx, userID)
}

func (h *TextHandler) startNewSession(ctx context.Context, userID string) error {
	if err := h.sessions.Close(ctx, userID); err != nil {
		return err
	}
	if _, err := h.sessions.GetOrCreate(ctx, userID); err != nil {
		return err
	}

	reply := "让我们开始记录今天的故事吧！今天发生了什么有趣的事情吗？"
	if err := h.notifier.SendText(ctx, userID, reply); err != nil {
		return err
	}
	return h.sessions.AppendMessage(ctx, userID, "assistant", reply)
}

func (h *TextHandler) cmdQuery(ctx context.Context, userID string) error {
	diaries, err := h.diaries.ListByUser(ctx, userID, 5)
	if err != nil {
		h.logger.Error("query diaries failed", slog.String("error", err.Error()))
		return h.notifier.SendText(ctx, userID, "查询日记时出错，请稍后再试")
	}

	if len(diaries) == 0 {
		return h.notifier.SendText(ctx, userID, "还没有日记记录呢，快开始记录第一篇日记吧！\n发送 /new 开始记录")
	}

	lines := []string{"最近的日记：", ""}
	for i, d := range diaries {
		summary := d.Summary
		if runes := []rune(summary); len(runes) > 50 {
			summary = string(runes[:50]) + "..."
		}
		lines = append(lines,
			fmt.Sprintf("%d. %s", i+1, d.CreateDate.Format("2006-01-02")),
			"   "+summary,
			"")
	}
	lines = append(lines, "提示：发送 /diary 查看今天的日记")

	return h.notifier.SendText(ctx, userID, strings.Join(lines, "\n"))
}

func (h *TextHandler) cmdList(ctx context.Context, userID string) error {
	diaries, err := h.diaries.ListByUser(ctx, userID, 20)
	if err != nil {
		h.logger.Error("list diaries failed", slog.String("error", err.Error()))
		return h.notifier.SendText(ctx, userID, "获取日记列表时出错，请稍后再试")
	}

	if len(diaries) == 0 {
		return h.notifier.SendText(ctx, userID, "还没有日记记录呢，快开始记录第一篇日记吧！\n发送 /new 开始记录")
	}

	lines := []string{"你的日记列表：", ""}
	for i, d := range diaries {
		summary := d.Summary
		if runes := []rune(summary); len(runes) > 30 {
			summary = string(runes[:30]) + "..."
		}
		lines = append(lines,
			fmt.Sprintf("%d. %s - %s", i+1, d.CreateDate.Format("2006-01-02"), d.Title),
			"   摘要: "+summary)
		if d.DocumentID != "" {
			lines = append(lines,
				"   文档: "+h.docURL+d.DocumentID,
				"   删除: /delete "+d.DocumentID)
		} else {
			lines = append(lines, "   文档: 未生成飞书文档")
		}
		lines = append(lines, "")
	}
	lines = append(lines,
		"提示：",
		"- 点击文档链接查看完整日记",
		"- 使用 /delete <文档ID> 删除指定文档",
		"- 发送 /diary 查看今天的日记")

	return h.notifier.SendText(ctx, userID, strings.Join(lines, "\n"))
}

func (h *TextHandler) cmdDelete(ctx context.Context, userID, text string) error {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return h.notifier.SendText(ctx, userID, "请提供要删除的文档ID\n用法: /delete <文档ID>\n\n示例: /delete doxcn123456")
	}
	documentID := strings.TrimSpace(parts[1])

	h.logger.Info("delete document requested",
		slog.String("open_id", userID),
		slog.String("document_id", documentID))

	docErr := h.publisher.Delete(ctx, documentID)
	if docErr != nil {
		h.logger.Warn("delete document failed",
			slog.String("document_id", documentID),
			slog.String("error", docErr.Error()))
	}

	// Cascade the local records bound to this document.
	deleted := 0
	records, err := h.diaries.ListByDocumentID(ctx, documentID)
	if err != nil {
		h.logger.Warn("lookup diaries by document failed", slog.String("error", err.Error()))
	}
	for _, d := range records {
		if err := h.diaries.Delete(ctx, d.ID); err != nil {
			if !errors.Is(err, diary.ErrNotFound) {
				h.logger.Warn("delete diary record failed", slog.String("diary_id", d.ID), slog.String("error", err.Error()))
			}
			continue
		}
		deleted++
	}

	if docErr == nil {
		lines := []string{"文档删除成功！", "", "文档ID: " + documentID}
		if deleted > 0 {
			lines = append(lines, fmt.Sprintf("关联日记记录: 已删除 %d 条", deleted))
		}
		lines = append(lines, "", "注意：文档已进入回收站，如需彻底删除请前往飞书云文档回收站。")
		return h.notifier.SendText(ctx, userID, strings.Join(lines, "\n"))
	}

	if deleted > 0 {
		return h.notifier.SendText(ctx, userID,
			fmt.Sprintf("数据库记录已清理 %d 条，但飞书文档删除失败。\n文档ID: %s\n请手动检查飞书文档。", deleted, documentID))
	}
	return h.notifier.SendText(ctx, userID,
		"文档删除失败，请检查文档ID是否正确，或稍后重试。\n文档ID: "+documentID)
}

func (h *TextHandler) cmdCleanTest(ctx context.Context, userID string) error {
	diaries, err := h.diaries.ListByUser(ctx, userID, 1000)
	if err != nil {
		h.logger.Error("list diaries failed", slog.String("error", err.Error()))
		return h.notifier.SendText(ctx, userID, "清理文档时出错，请稍后再试")
	}

	if len(diaries) == 0 {
		return h.notifier.SendText(ctx, userID, "没有需要清理的文档")
	}

	total := len(diaries)
	if err := h.notifier.SendText(ctx, userID, fmt.Sprintf("开始清理，共 %d 条日记记录...", total)); err != nil {
		return err
	}

	docDeleted, docFailed, noDoc := 0, 0, 0
	for _, d := range diaries {
		if d.DocumentID == "" {
			noDoc++
			continue
		}
		if err := h.publisher.Delete(ctx, d.DocumentID); err != nil {
			h.logger.Warn("delete document failed",
				slog.String("document_id", d.DocumentID),
				slog.String("error", err.Error()))
			docFailed++
			continue
		}
		docDeleted++
	}

	dbDeleted, err := h.diaries.DeleteByUser(ctx, userID)
	if err != nil {
		h.logger.Error("delete diary records failed", slog.String("error", err.Error()))
	}

	lines := []string{"清理完成！", ""}
	lines = append(lines,
		fmt.Sprintf("总计日记记录: %d 条", total),
		fmt.Sprintf("飞书文档删除: %d 个", docDeleted),
		fmt.Sprintf("飞书文档删除失败: %d 个", docFailed),
		fmt.Sprintf("无飞书文档的记录: %d 条", noDoc),
		fmt.Sprintf("数据库记录清理: %d 条", dbDeleted))

	if docFailed > 0 {
		lines = append(lines, "",
			"部分飞书文档删除失败，请手动清理：",
			"1. 打开飞书云文档",
			"2. 进入'我的文档'或'与我共享'",
			"3. 选中要删除的文档，右键删除",
			"4. 或前往回收站彻底删除")
	}

	lines = append(lines, "",
		"提示：",
		"- 所有日记记录已从数据库清除",
		"- 删除的飞书文档已进入回收站",
		"- 发送 /list 确认清理结果")

	h.logger.Info("cleantest finished",
		slog.String("open_id", userID),
		slog.Int("total", total),
		slog.Int("doc_deleted", docDeleted),
		slog.Int("doc_failed", docFailed),
		slog.Int("db_deleted", dbDeleted))

	return h.notifier.SendText(ctx, userID, strings.Join(lines, "\n"))
}

const helpText = `飞书日记机器人使用指南

记录日记：
直接发送文字或语音，我会引导你完成日记

可用命令：
/help - 显示帮助信息
/diary - 整理并生成今天的日记
/new - 开始新的日记记录
/list - 列出所有日记文档（带删除链接）
/query - 查询历史日记
/delete <文档ID> - 删除指定文档
/cleantest - 一键清除所有测试文档
/config - 配置个人设置

使用提示：
- 直接和我聊天，我会用简短的问题引导你
- 说完后发送 /diary 或说"整理日记"
- 支持文字、语音、图片、视频多种格式
- 所有日记会自动整理到飞书文档

删除文档：
- 使用 /cleantest 一键清除所有文档（最方便）
- 或使用 /list 查看所有文档，每条记录都附带删除命令
- 或直接发送 /delete <文档ID> 删除指定文档
- 删除的文档会进入回收站，可恢复`
