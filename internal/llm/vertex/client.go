package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/common"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/llm"
)

// Config for the Vertex AI (Gemini) oracle.
type Config struct {
	ProjectID   string
	Region      string
	Model       string // default gemini-1.5-flash
	Temperature float32
	Lenient     bool
}

// Client is an llm.Oracle backed by a Gemini model in JSON mode.
type Client struct {
	cfg    Config
	base   *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

// NewClient creates the Vertex client and configures the model.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex.NewClient: projectID and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := base.GenerativeModel(cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](cfg.Temperature),
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &Client{cfg: cfg, base: base, model: model, logger: logger}, nil
}

func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

// ExtractNotice implements llm.Oracle.
func (c *Client) ExtractNotice(ctx context.Context, req llm.NoticeRequest) (llm.NoticeFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := c.logger.With("req_id", rid)

	log.Info("llm.extract.start",
		"provider", "vertex",
		"model", c.cfg.Model,
		"text_len", len(req.Text),
		"fields", len(req.Fields),
		"ref_tag", req.RefTag,
	)

	schema, _ := json.MarshalIndent(llm.BuildNoticeJSONSchema(req.Fields), "", "  ")
	sys := llm.BuildSystemPrompt(req) + "\nJSON Schema:\n" + string(schema)

	// SystemInstruction is per request so the model value can be shared
	model := *c.model
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}

	resp, err := model.GenerateContent(ctx, genai.Text(llm.BuildUserPrompt(req)))
	if err != nil {
		log.Error("llm.extract.generate_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil, fmt.Errorf("vertex: %w", err)
	}

	content := responseText(resp)
	if content == "" {
		log.Error("llm.extract.empty_response", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil, fmt.Errorf("%w: gemini returned an empty response", common.ErrOracleResponse)
	}

	out, doc, err := llm.DecodeNoticeResponse(llm.StripCodeFences([]byte(content)), req.Fields, c.cfg.Lenient, log)
	if err != nil {
		return nil, doc, err
	}
	log.Info("llm.extract.ok", "elapsed_ms", time.Since(start).Milliseconds())
	return out, doc, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if txt, ok := p.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
