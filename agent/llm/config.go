package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
)

// Task names one model-backed capability so operators can override the model
// or temperature for it independently.
type Task string

const (
	TaskIntent       Task = "intent"
	TaskExtraction   Task = "extraction"
	TaskVerification Task = "verification"
	TaskRanking      Task = "ranking"
	TaskSelection    Task = "selection"
	TaskNoStock      Task = "nostock"
)

type Config struct {
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.1"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`

	ExtractionModel       string  `envconfig:"EXTRACTION_MODEL" split_words:"true"`
	RankingModel          string  `envconfig:"RANKING_MODEL" split_words:"true"`
	SelectionModel        string  `envconfig:"SELECTION_MODEL" split_words:"true"`
	ExtractionTemperature float64 `envconfig:"EXTRACTION_TEMPERATURE" split_words:"true" default:"-1"`
	RankingTemperature    float64 `envconfig:"RANKING_TEMPERATURE" split_words:"true" default:"-1"`
	SelectionTemperature  float64 `envconfig:"SELECTION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// ModelFor resolves the model name for a task, falling back to the default.
func (c Config) ModelFor(task Task) string {
	model := strings.TrimSpace(c.Model)
	switch task {
	case TaskExtraction, TaskVerification:
		if v := strings.TrimSpace(c.ExtractionModel); v != "" {
			model = v
		}
	case TaskRanking:
		if v := strings.TrimSpace(c.RankingModel); v != "" {
			model = v
		}
	case TaskSelection, TaskNoStock, TaskIntent:
		if v := strings.TrimSpace(c.SelectionModel); v != "" {
			model = v
		}
	}
	return model
}

// TemperatureFor resolves the sampling temperature for a task. Negative
// overrides mean "use the default".
func (c Config) TemperatureFor(task Task) float64 {
	temp := c.Temperature
	switch task {
	case TaskExtraction, TaskVerification:
		if c.ExtractionTemperature >= 0 {
			temp = c.ExtractionTemperature
		}
	case TaskRanking:
		if c.RankingTemperature >= 0 {
			temp = c.RankingTemperature
		}
	case TaskSelection, TaskNoStock, TaskIntent:
		if c.SelectionTemperature >= 0 {
			temp = c.SelectionTemperature
		}
	}
	return temp
}
