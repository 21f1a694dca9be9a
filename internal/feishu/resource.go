package feishu

import (
	"context"
	"fmt"
	"io"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// maxResourceBytes bounds a single downloaded message asset.
const maxResourceBytes = 50 << 20 // 50 MiB

// ResourceFetcher downloads user-sent message assets. Resources are scoped to
// the message that carried them, so both message_id and the asset key are
// required.
type ResourceFetcher struct {
	client *lark.Client
}

func NewResourceFetcher(client *lark.Client) *ResourceFetcher {
	return &ResourceFetcher{client: client}
}

// Fetch returns the raw bytes of a message resource. resourceType is "image"
// for image keys and "file" for everything else.
func (f *ResourceFetcher) Fetch(ctx context.Context, messageID, assetKey, resourceType string) ([]byte, error) {
	if strings.TrimSpace(messageID) == "" || strings.TrimSpace(assetKey) == "" {
		return nil, fmt.Errorf("message id and asset key are required")
	}
	if resourceType == "" {
		resourceType = "file"
	}

	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(assetKey).
		Type(resourceType).
		Build()
	resp, err := f.client.Im.V1.MessageResource.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("download message resource: %w", err)
	}
	if !resp.Success() {
		return nil, &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.File == nil {
		return nil, fmt.Errorf("download message resource: empty payload")
	}

	data, err := io.ReadAll(io.LimitReader(resp.File, maxResourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read message resource: %w", err)
	}
	if len(data) > maxResourceBytes {
		return nil, fmt.Errorf("message resource exceeds %d bytes", maxResourceBytes)
	}
	return data, nil
}
