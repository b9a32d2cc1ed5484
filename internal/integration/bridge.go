package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// Delivery is one message handed to a delivery mechanism.
type Delivery struct {
	Channel models.Channel
	Target  string
	Content string
	Files   []string
}

// Deliverer hands a message to something that can deliver it.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// BridgeError reports a delivery the bridge did not confirm. Reason is the
// operator-facing text.
type BridgeError struct {
	Reason string
	Err    error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// BridgeConfig locates the local automation bridge and carries the pacing
// and client settings it forwards with every request.
type BridgeConfig struct {
	URL        string
	DelayMin   int
	DelayMax   int
	WechatPath string
	SMSURL     string
	Timeout    time.Duration
}

// BridgeConfigFromSettings extracts the bridge settings.
func BridgeConfigFromSettings(s *models.Settings) BridgeConfig {
	return BridgeConfig{
		URL:        s.Bridge.URL,
		DelayMin:   s.RPADelayMin,
		DelayMax:   s.RPADelayMax,
		WechatPath: s.WechatPath,
		SMSURL:     s.SMSURL,
		Timeout:    s.Bridge.Timeout,
	}
}

// bridgeClient posts messages to the automation bridge, which drives the
// chat client or fills the SMS web form.
type bridgeClient struct {
	cfg    BridgeConfig
	client *http.Client
}

// NewBridgeClient creates a Deliverer that talks to the bridge at cfg.URL.
func NewBridgeClient(cfg BridgeConfig) Deliverer {
	return &bridgeClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type wechatRequest struct {
	Target     string   `json:"target"`
	Content    string   `json:"content"`
	Files      []string `json:"files"`
	DelayMin   int      `json:"delay_min"`
	DelayMax   int      `json:"delay_max"`
	WechatPath string   `json:"wechat_path,omitempty"`
}

type smsRequest struct {
	Phones  []string `json:"phones"`
	Content string   `json:"content"`
	Files   []string `json:"files"`
	URL     string   `json:"url,omitempty"`
}

type bridgeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Deliver makes exactly one request. Transport failures, non-2xx statuses,
// undecodable bodies and an explicit "error" status all produce a
// *BridgeError.
func (b *bridgeClient) Deliver(ctx context.Context, d Delivery) error {
	path, payload, err := b.buildRequest(d)
	if err != nil {
		return &BridgeError{Reason: err.Error()}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &BridgeError{Reason: "encoding bridge request", Err: err}
	}

	url := strings.TrimRight(b.cfg.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &BridgeError{Reason: "building bridge request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return &BridgeError{Reason: "bridge unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &BridgeError{Reason: "reading bridge response", Err: err}
	}

	var out bridgeResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := fmt.Sprintf("bridge returned status %d", resp.StatusCode)
		if decodeErr == nil && out.Message != "" {
			reason += ": " + out.Message
		}
		return &BridgeError{Reason: reason}
	}
	if decodeErr != nil {
		return &BridgeError{Reason: "invalid bridge response", Err: decodeErr}
	}
	if out.Status != "success" {
		reason := out.Message
		if reason == "" {
			reason = fmt.Sprintf("bridge reported status %q", out.Status)
		}
		return &BridgeError{Reason: reason}
	}
	return nil
}

func (b *bridgeClient) buildRequest(d Delivery) (string, any, error) {
	files := d.Files
	if files == nil {
		files = []string{}
	}
	switch d.Channel {
	case models.ChannelWechat:
		return "/send_wechat", wechatRequest{
			Target:     d.Target,
			Content:    d.Content,
			Files:      files,
			DelayMin:   b.cfg.DelayMin,
			DelayMax:   b.cfg.DelayMax,
			WechatPath: b.cfg.WechatPath,
		}, nil
	case models.ChannelSMS:
		return "/send_sms", smsRequest{
			Phones:  []string{d.Target},
			Content: d.Content,
			Files:   files,
			URL:     b.cfg.SMSURL,
		}, nil
	}
	return "", nil, fmt.Errorf("unsupported channel %q", d.Channel)
}
