package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"fleetdocs/internal/extraction"
	"fleetdocs/pkg/config"
)

// VisionExtractor extracts structured fields from a document image.
type VisionExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (extraction.RawExtraction, string, error)
}

type VisionService struct {
	client *openai.Client
	config *config.OpenAIConfig
	logger *zap.Logger
}

func NewVisionService(cfg *config.OpenAIConfig, logger *zap.Logger) *VisionService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &VisionService{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

const extractionPrompt = `You are a data extraction engine for fleet management documents
(fuel tickets, invoices, delivery notes, insurance policies, ITV inspection
reports, tachograph calibration certificates, workshop invoices, tire invoices).

Analyze the image and return ONLY a JSON object with this exact structure:
{
  "doc_type": "fuel_ticket|invoice|delivery_note|insurance_policy|itv|tachograph|workshop_invoice|tires_invoice|other",
  "vehicle_identifier_guess": "license plate if visible, else null",
  "vendor_name": "issuing company name or null",
  "vendor_tax_id": "tax identification number or null",
  "date_issue": "issue date as printed or null",
  "date_due": "due/expiry/next-inspection date or null",
  "amounts": {"subtotal": null, "tax": null, "total": null, "currency": "EUR"},
  "fuel": {"liters": null, "price_per_liter": null, "fuel_type": null, "total_amount": null, "odometer_km": null},
  "odometer_km": null,
  "notes": "anything noteworthy or null",
  "confidence": 0.0
}

Rules:
- Copy amounts and dates EXACTLY as printed, do not reformat them.
- For insurance policies and inspection reports the important date is date_due.
- Fill the fuel object only for fuel tickets.
- confidence is your overall extraction confidence between 0 and 1.
- Return ONLY the JSON, no markdown fencing, no commentary.`

// Extract sends the image to the vision model and decodes the structured
// reply. The second return value is the raw JSON payload for auditing.
func (s *VisionService) Extract(ctx context.Context, image []byte, mimeType string) (extraction.RawExtraction, string, error) {
	var raw extraction.RawExtraction

	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.config.Model,
		MaxTokens: 1024,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailHigh},
					},
				},
			},
		},
	})
	if err != nil {
		return raw, "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return raw, "", fmt.Errorf("vision completion: empty response")
	}

	content := cleanJSONReply(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return raw, "", fmt.Errorf("parse vision reply: %w, content: %s", err, content)
	}

	s.logger.Info("Vision extraction completed",
		zap.String("doc_type", raw.DocType),
		zap.Float64("confidence", raw.Confidence))

	return raw, content, nil
}

// cleanJSONReply strips markdown fencing the model sometimes wraps JSON in.
func cleanJSONReply(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Fall back to the outermost braces when the model adds commentary.
	if !strings.HasPrefix(content, "{") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start != -1 && end > start {
			content = content[start : end+1]
		}
	}
	return content
}
