package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	promptx "github.com/partsdesk/partsdesk/agent/prompt"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// Capabilities implements contract.Capabilities over an OpenRouter-backed
// chat completion client. Every method returns a wrapped sentinel so callers
// can distinguish transport failures from malformed model output.
type Capabilities struct {
	client  *openaisdk.Client
	cfg     Config
	prompts promptx.PromptSet
}

var _ contractx.Capabilities = (*Capabilities)(nil)

func NewCapabilities(client *openaisdk.Client, cfg Config, prompts promptx.PromptSet) (*Capabilities, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil chat client", contractx.ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Capabilities{client: client, cfg: cfg, prompts: prompts}, nil
}

func (c *Capabilities) ClassifyIntent(ctx context.Context, transcript []statex.Message) (contractx.IntentResult, error) {
	raw, err := c.complete(ctx, TaskIntent, c.prompts.Intent, renderTranscript(transcript))
	if err != nil {
		return contractx.IntentResult{}, err
	}

	var result contractx.IntentResult
	if err := decodeJSON(raw, &result); err != nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: intent: %v", contractx.ErrSchemaViolation, err)
	}
	return result, nil
}

func (c *Capabilities) ExtractProducts(ctx context.Context, transcript []statex.Message) ([]contractx.ExtractedProduct, error) {
	raw, err := c.complete(ctx, TaskExtraction, c.prompts.Extraction, renderTranscript(transcript))
	if err != nil {
		return nil, err
	}

	var products []contractx.ExtractedProduct
	if err := decodeJSON(raw, &products); err != nil {
		return nil, fmt.Errorf("%w: extraction: %v", contractx.ErrSchemaViolation, err)
	}
	return products, nil
}

func (c *Capabilities) VerifyProduct(ctx context.Context, description string) (contractx.Verification, error) {
	raw, err := c.complete(ctx, TaskVerification, c.prompts.Verification, "Producto solicitado: "+description)
	if err != nil {
		return contractx.Verification{}, err
	}

	var verdict contractx.Verification
	if err := decodeJSON(raw, &verdict); err != nil {
		return contractx.Verification{}, fmt.Errorf("%w: verification: %v", contractx.ErrSchemaViolation, err)
	}
	return verdict, nil
}

func (c *Capabilities) RankCandidates(ctx context.Context, formatted string) (string, error) {
	narrative, err := c.complete(ctx, TaskRanking, c.prompts.Ranking, formatted)
	if err != nil {
		return "", err
	}
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return "", fmt.Errorf("%w: ranking: empty narrative", contractx.ErrSchemaViolation)
	}
	return narrative, nil
}

func (c *Capabilities) InterpretSelection(ctx context.Context, availableCodes []string, userText string) (contractx.SelectionIntent, error) {
	var sb strings.Builder
	sb.WriteString("Códigos válidos: ")
	sb.WriteString(strings.Join(availableCodes, ", "))
	sb.WriteString("\n\nRespuesta del usuario: ")
	sb.WriteString(userText)

	raw, err := c.complete(ctx, TaskSelection, c.prompts.Selection, sb.String())
	if err != nil {
		return contractx.SelectionIntent{}, err
	}

	var intent contractx.SelectionIntent
	if err := decodeJSON(raw, &intent); err != nil {
		return contractx.SelectionIntent{}, fmt.Errorf("%w: selection: %v", contractx.ErrSchemaViolation, err)
	}

	switch intent.Action {
	case contractx.ActionConfirmAll, contractx.ActionSelectCodes, contractx.ActionCancel, contractx.ActionUnrecognized:
	default:
		return contractx.SelectionIntent{}, fmt.Errorf("%w: selection: unknown action %q", contractx.ErrSchemaViolation, intent.Action)
	}
	return intent, nil
}

func (c *Capabilities) InterpretNoStockReply(ctx context.Context, userText string) (contractx.NoStockDecision, error) {
	raw, err := c.complete(ctx, TaskNoStock, c.prompts.NoStock, "Respuesta del usuario: "+userText)
	if err != nil {
		return contractx.NoStockAmbiguous, err
	}

	var payload struct {
		Decision string `json:"decision"`
	}
	if err := decodeJSON(raw, &payload); err != nil {
		return contractx.NoStockAmbiguous, fmt.Errorf("%w: nostock: %v", contractx.ErrSchemaViolation, err)
	}

	switch contractx.NoStockDecision(payload.Decision) {
	case contractx.NoStockNewSearch:
		return contractx.NoStockNewSearch, nil
	case contractx.NoStockCancel:
		return contractx.NoStockCancel, nil
	case contractx.NoStockAmbiguous:
		return contractx.NoStockAmbiguous, nil
	default:
		return contractx.NoStockAmbiguous, fmt.Errorf("%w: nostock: unknown decision %q", contractx.ErrSchemaViolation, payload.Decision)
	}
}

func (c *Capabilities) complete(ctx context.Context, task Task, system, user string) (string, error) {
	model := c.cfg.ModelFor(task)

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		Temperature:         openaisdk.Float(c.cfg.TemperatureFor(task)),
		MaxCompletionTokens: openaisdk.Int(int64(c.cfg.MaxCompletionToken)),
	})
	if err != nil {
		log.Error().Err(err).Str("task", string(task)).Str("model", model).Msg("chat completion failed")
		return "", fmt.Errorf("%w: %s: %v", contractx.ErrModelInvoke, task, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s: no choices returned", contractx.ErrModelInvoke, task)
	}
	return resp.Choices[0].Message.Content, nil
}

// decodeJSON tolerates markdown fences and prose around the JSON payload,
// which smaller models produce despite explicit instructions.
func decodeJSON(raw string, out any) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON payload in %q", truncate(raw, 120))
	}
	var end int
	if cleaned[start] == '{' {
		end = strings.LastIndexByte(cleaned, '}')
	} else {
		end = strings.LastIndexByte(cleaned, ']')
	}
	if end <= start {
		return fmt.Errorf("unterminated JSON payload in %q", truncate(raw, 120))
	}
	return json.Unmarshal([]byte(cleaned[start:end+1]), out)
}

func renderTranscript(transcript []statex.Message) string {
	var sb strings.Builder
	for _, msg := range transcript {
		switch msg.Role {
		case statex.RoleUser:
			sb.WriteString("Usuario: ")
		case statex.RoleAgent:
			sb.WriteString("Asistente: ")
		default:
			continue
		}
		sb.WriteString(msg.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
