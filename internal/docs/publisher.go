package docs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"

	"github.com/inkwellai/inkwell/internal/config"
	"github.com/inkwellai/inkwell/internal/feishu"
)

const docCallTimeout = 30 * time.Second

type assetFetcher interface {
	Fetch(ctx context.Context, messageID, assetKey, resourceType string) ([]byte, error)
}

// Image references a picture from the conversation to attach to a document.
type Image struct {
	AssetKey  string
	MessageID string
	FileName  string
}

// PublishInput describes one document to create.
type PublishInput struct {
	Title       string
	Content     string
	OwnerOpenID string
	Images      []Image
}

// Document is a created cloud document.
type Document struct {
	ID  string
	URL string
}

// Publisher creates diary documents on the open platform: create, fill
// with blocks, hand full access to the owner, attach conversation images.
// Only document creation itself is fatal, every later step degrades.
type Publisher struct {
	client  *lark.Client
	fetcher assetFetcher
	logger  *slog.Logger
	baseURL string
}

func NewPublisher(client *lark.Client, fetcher assetFetcher, cfg config.DiaryConfig, logger *slog.Logger) *Publisher {
	baseURL := cfg.DocBaseURL
	if baseURL == "" {
		baseURL = "https://www.feishu.cn/docx/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Publisher{
		client:  client,
		fetcher: fetcher,
		logger:  logger.With(slog.String("service", "docs")),
		baseURL: baseURL,
	}
}

// Publish creates the document and returns its id and share URL. A nil
// document is returned only when creation itself fails.
func (p *Publisher) Publish(ctx context.Context, input PublishInput) (*Document, error) {
	documentID, err := p.createDocument(ctx, input.Title)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	p.logger.Info("document created", slog.String("document_id", documentID))

	if err := p.appendChildren(ctx, documentID, ConvertBlocks(input.Content)); err != nil {
		p.logger.Warn("append document content failed, document kept",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
	}

	if input.OwnerOpenID != "" {
		if err := p.grantFullAccess(ctx, documentID, input.OwnerOpenID); err != nil {
			p.logger.Warn("grant document permission failed",
				slog.String("document_id", documentID),
				slog.String("open_id", input.OwnerOpenID),
				slog.String("error", err.Error()))
		}
	}

	p.attachImages(ctx, documentID, input.Images)

	return &Document{ID: documentID, URL: p.baseURL + documentID}, nil
}

// Delete soft-deletes the document through the drive files API.
func (p *Publisher) Delete(ctx context.Context, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, docCallTimeout)
	defer cancel()

	path := fmt.Sprintf("/open-apis/drive/v1/files/%s?type=docx", url.PathEscape(documentID))
	resp, err := p.client.Delete(ctx, path, nil, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := feishu.DecodeResponse(resp, nil); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (p *Publisher) createDocument(ctx context.Context, title string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, docCallTimeout)
	defer cancel()

	resp, err := p.client.Post(ctx, "/open-apis/docx/v1/documents",
		map[string]any{"title": title}, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return "", err
	}

	var data struct {
		Document struct {
			DocumentID string `json:"document_id"`
		} `json:"document"`
	}
	if err := feishu.DecodeResponse(resp, &data); err != nil {
		return "", err
	}
	if data.Document.DocumentID == "" {
		return "", fmt.Errorf("response carried no document_id")
	}
	return data.Document.DocumentID, nil
}

// appendChildren appends blocks under the document root block.
func (p *Publisher) appendChildren(ctx context.Context, documentID string, blocks []Block) error {
	if len(blocks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, docCallTimeout)
	defer cancel()

	path := fmt.Sprintf("/open-apis/docx/v1/documents/%s/blocks/%s/children", documentID, documentID)
	resp, err := p.client.Post(ctx, path, map[string]any{"children": blocks}, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return err
	}
	return feishu.DecodeResponse(resp, nil)
}

func (p *Publisher) grantFullAccess(ctx context.Context, documentID, openID string) error {
	ctx, cancel := context.WithTimeout(ctx, docCallTimeout)
	defer cancel()

	path := fmt.Sprintf("/open-apis/drive/v1/permissions/%s/members?type=docx&need_notification=false", documentID)
	resp, err := p.client.Post(ctx, path, map[string]any{
		"member_type": "openid",
		"member_id":   openID,
		"perm":        "full_access",
	}, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return err
	}
	return feishu.DecodeResponse(resp, nil)
}
