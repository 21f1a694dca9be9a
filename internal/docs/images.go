package docs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkdrive "github.com/larksuite/oapi-sdk-go/v3/service/drive/v1"

	"github.com/inkwellai/inkwell/internal/feishu"
)

const uploadTimeout = 60 * time.Second

// attachImages appends one image block per picture and binds the
// uploaded media to it. Each image runs independently so one failure
// never blocks the rest.
func (p *Publisher) attachImages(ctx context.Context, documentID string, images []Image) {
	for _, img := range images {
		if img.AssetKey == "" || img.MessageID == "" {
			p.logger.Warn("image missing asset key or message id, skipping",
				slog.String("file_name", img.FileName))
			continue
		}
		if err := p.attachImage(ctx, documentID, img); err != nil {
			p.logger.Warn("attach image failed",
				slog.String("document_id", documentID),
				slog.String("file_name", img.FileName),
				slog.String("error", err.Error()))
		}
	}
}

func (p *Publisher) attachImage(ctx context.Context, documentID string, img Image) error {
	blockID, err := p.createImageBlock(ctx, documentID)
	if err != nil {
		return fmt.Errorf("create image block: %w", err)
	}

	data, err := p.fetcher.Fetch(ctx, img.MessageID, img.AssetKey, "image")
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}

	fileToken, err := p.uploadImage(ctx, documentID, img.FileName, data)
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}

	if err := p.bindImageBlock(ctx, documentID, blockID, fileToken); err != nil {
		return fmt.Errorf("bind image block: %w", err)
	}

	p.logger.Info("image attached",
		slog.String("document_id", documentID),
		slog.String("file_name", img.FileName))
	return nil
}

func (p *Publisher) createImageBlock(ctx context.Context, documentID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, docCallTimeout)
	defer cancel()

	path := fmt.Sprintf("/open-apis/docx/v1/documents/%s/blocks/%s/children", documentID, documentID)
	resp, err := p.client.Post(ctx, path,
		map[string]any{"children": []Block{imageBlock()}}, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return "", err
	}

	var data struct {
		Children []struct {
			BlockID string `json:"block_id"`
		} `json:"children"`
	}
	if err := feishu.DecodeResponse(resp, &data); err != nil {
		return "", err
	}
	if len(data.Children) == 0 || data.Children[0].BlockID == "" {
		return "", fmt.Errorf("response carried no block_id")
	}
	return data.Children[0].BlockID, nil
}

func (p *Publisher) uploadImage(ctx context.Context, documentID, fileName string, data []byte) (string, error) {
	if fileName == "" {
		fileName = "image.jpg"
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req := larkdrive.NewUploadAllMediaReqBuilder().
		Body(larkdrive.NewUploadAllMediaReqBodyBuilder().
			FileName(fileName).
			ParentType("doc_image").
			ParentNode(documentID).
			Size(len(data)).
			File(bytes.NewReader(data)).
			Build()).
		Build()

	resp, err := p.client.Drive.V1.Media.UploadAll(ctx, req)
	if err != nil {
		return "", err
	}
	if !resp.Success() {
		return "", &feishu.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.Data == nil || resp.Data.FileToken == nil || *resp.Data.FileToken == "" {
		return "", fmt.Errorf("response carried no file_token")
	}
	return *resp.Data.FileToken, nil
}

func (p *Publisher) bindImageBlock(ctx context.Context, documentID, blockID, fileToken string) error {
	ctx, cancel := context.WithTimeout(ctx, docCallTimeout)
	defer cancel()

	path := fmt.Sprintf("/open-apis/docx/v1/documents/%s/blocks/batch_update", documentID)
	resp, err := p.client.Patch(ctx, path, map[string]any{
		"requests": []map[string]any{
			{
				"block_id":      blockID,
				"replace_image": map[string]any{"token": fileToken},
			},
		},
	}, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return err
	}
	return feishu.DecodeResponse(resp, nil)
}
