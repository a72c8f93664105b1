package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one outbound WhatsApp message. Business-initiated messages go
// out as templates; Text is the rendered body kept for the log and for
// providers that accept free text.
type Message struct {
	Phone     string
	Text      string
	Template  string
	Params    []string
	Reference string
}

// Provider defines the interface for WhatsApp API providers
type Provider interface {
	Send(ctx context.Context, m Message) error
	Name() string
}

// Config holds configuration for WhatsApp providers
type Config struct {
	Provider      string // "cloud", "aisensy", "interakt"
	APIKey        string
	PhoneNumberID string // WhatsApp Phone Number ID (Cloud API)
	BaseURL       string
	Language      string
}

// NewProvider creates a provider by name; nil when WhatsApp is not configured
func NewProvider(cfg Config) Provider {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.Language == "" {
		cfg.Language = "es_MX"
	}
	client := &http.Client{Timeout: 30 * time.Second}
	switch cfg.Provider {
	case "aisensy":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://backend.aisensy.com/campaign/t1/api/v2"
		}
		return &AiSensy{cfg: cfg, client: client}
	case "interakt":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.interakt.ai/v1/public"
		}
		return &Interakt{cfg: cfg, client: client}
	case "cloud", "meta", "generic", "":
		if cfg.PhoneNumberID == "" {
			return nil
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://graph.facebook.com/v18.0"
		}
		return &Cloud{cfg: cfg, client: client}
	default:
		return nil
	}
}

// Cloud implements WhatsApp via the Meta Cloud API (works with any BSP)
type Cloud struct {
	cfg    Config
	client *http.Client
}

func (c *Cloud) Name() string { return "cloud" }

func (c *Cloud) Send(ctx context.Context, m Message) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                FormatPhoneNumber(m.Phone),
	}
	if m.Template == "" {
		// Free text only reaches users inside the 24h service window
		payload["type"] = "text"
		payload["text"] = map[string]string{"preview_url": "false", "body": m.Text}
	} else {
		components := []map[string]interface{}{}
		if len(m.Params) > 0 {
			components = append(components, map[string]interface{}{
				"type":       "body",
				"parameters": textParams(m.Params),
			})
		}
		payload["type"] = "template"
		payload["template"] = map[string]interface{}{
			"name":       m.Template,
			"language":   map[string]string{"code": c.cfg.Language},
			"components": components,
		}
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.BaseURL, c.cfg.PhoneNumberID)
	return post(ctx, c.client, url, payload, map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, "WhatsApp Cloud")
}

// AiSensy sends campaign (template) messages
type AiSensy struct {
	cfg    Config
	client *http.Client
}

func (a *AiSensy) Name() string { return "aisensy" }

func (a *AiSensy) Send(ctx context.Context, m Message) error {
	params := m.Params
	if params == nil {
		params = []string{}
	}
	payload := map[string]interface{}{
		"apiKey":         a.cfg.APIKey,
		"campaignName":   m.Template,
		"destination":    FormatPhoneNumber(m.Phone),
		"userName":       "Cliente",
		"templateParams": params,
	}
	return post(ctx, a.client, a.cfg.BaseURL, payload, nil, "AiSensy")
}

// Interakt takes the country code and the national number separately
type Interakt struct {
	cfg    Config
	client *http.Client
}

func (i *Interakt) Name() string { return "interakt" }

func (i *Interakt) Send(ctx context.Context, m Message) error {
	phone := FormatPhoneNumber(m.Phone)
	payload := map[string]interface{}{
		"countryCode":  "+" + CountryCode,
		"phoneNumber":  NationalNumber(phone),
		"callbackData": m.Reference,
		"type":         "Template",
		"template": map[string]interface{}{
			"name":         m.Template,
			"languageCode": i.cfg.Language,
			"bodyValues":   m.Params,
		},
	}
	return post(ctx, i.client, i.cfg.BaseURL+"/message/", payload, map[string]string{"Authorization": "Basic " + i.cfg.APIKey}, "Interakt")
}

func textParams(params []string) []map[string]string {
	out := make([]map[string]string, len(params))
	for i, p := range params {
		out[i] = map[string]string{"type": "text", "text": p}
	}
	return out
}

// post sends a JSON payload and turns any non-2xx answer into an error
func post(ctx context.Context, client *http.Client, url string, payload interface{}, headers map[string]string, name string) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%s API error: %s", name, errResp.Error.Message)
		}
		return fmt.Errorf("%s API error (status %d): %s", name, resp.StatusCode, string(body))
	}
	return nil
}
