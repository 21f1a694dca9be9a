package inbound

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellai/inkwell/internal/session"
)

func TestMediaHandlerImage(t *testing.T) {
	sessions := &fakeSessions{}
	notifier := &fakeNotifier{}
	h := NewMediaHandler(sessions, notifier, testLogger())

	msg := Message{
		MessageID:    "om_img",
		MessageType:  "image",
		Content:      `{"image_key":"img_v2_abc","file_name":"park.jpg"}`,
		SenderOpenID: "ou_user",
	}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, sessions.media, 1)
	ref := sessions.media[0]
	assert.Equal(t, session.MediaKindImage, ref.Kind)
	assert.Equal(t, "img_v2_abc", ref.AssetKey)
	assert.Equal(t, "om_img", ref.MessageID)

	require.Len(t, sessions.messages, 2)
	assert.Equal(t, "[图片: park.jpg]", sessions.messages[0].Content)
	assert.Equal(t, "assistant", sessions.messages[1].Role)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "图片已收到")
}

func TestMediaHandlerLargeVideoWarning(t *testing.T) {
	sessions := &fakeSessions{}
	notifier := &fakeNotifier{}
	h := NewMediaHandler(sessions, notifier, testLogger())

	msg := Message{
		MessageID:    "om_vid",
		MessageType:  "media",
		Content:      `{"file_key":"file_v2_xyz","file_name":"trip.mp4","file_size":52428800}`,
		SenderOpenID: "ou_user",
	}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, sessions.media, 1)
	assert.Equal(t, session.MediaKindVideo, sessions.media[0].Kind)
	assert.EqualValues(t, 52428800, sessions.media[0].FileSize)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "视频较大")
	assert.Contains(t, notifier.sent[0], "50.0MB")
}

func TestMediaHandlerSmallVideo(t *testing.T) {
	sessions := &fakeSessions{}
	notifier := &fakeNotifier{}
	h := NewMediaHandler(sessions, notifier, testLogger())

	msg := Message{
		MessageType:  "media",
		Content:      `{"file_key":"file_v2_xyz","file_size":1048576}`,
		SenderOpenID: "ou_user",
	}
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "视频已收到，我会在整理日记时保存它")
	// Default file name fills in.
	assert.Equal(t, "video.mp4", sessions.media[0].FileName)
}
