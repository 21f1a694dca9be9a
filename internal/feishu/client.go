package feishu

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"

	"github.com/inkwellai/inkwell/internal/config"
)

// ErrNotConfigured is returned when the app credentials are missing.
var ErrNotConfigured = errors.New("feishu app credentials not configured")

// APIError is a non-success response from the open platform. The platform
// wraps errors in a {code, msg} envelope with HTTP 200, so status alone is
// not enough to branch on.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feishu api error: %s (code: %d)", e.Msg, e.Code)
}

// NewClient builds a Lark SDK client for the configured region. Tenant token
// acquisition and caching are handled inside the SDK.
func NewClient(cfg config.FeishuConfig) (*lark.Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" || strings.TrimSpace(cfg.AppSecret) == "" {
		return nil, ErrNotConfigured
	}
	return lark.NewClient(cfg.AppID, cfg.AppSecret, lark.WithOpenBaseUrl(openBaseURL(cfg.Region))), nil
}

func openBaseURL(region string) string {
	if strings.EqualFold(strings.TrimSpace(region), "lark") {
		return lark.LarkBaseUrl
	}
	return lark.FeishuBaseUrl
}

// envelope is the {code, msg, data} wrapper around every JSON response.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// DecodeResponse unwraps a raw API response into its data payload, converting
// platform-level failures into *APIError.
func DecodeResponse(resp *larkcore.ApiResp, out any) error {
	if resp == nil {
		return fmt.Errorf("feishu api: empty response")
	}
	var env envelope
	if err := json.Unmarshal(resp.RawBody, &env); err != nil {
		return fmt.Errorf("feishu api: parse response: %w", err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("feishu api: parse data: %w", err)
	}
	return nil
}
