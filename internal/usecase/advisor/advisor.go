package advisor

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
	"removal-agent/internal/infrastructure/prompts"
)

// choicePattern only accepts a number leading the reply.
var choicePattern = regexp.MustCompile(`^\s*(\d+)`)

type Config struct {
	Temperature    float32
	MaxTokens      int
	PromptTemplate string
}

func DefaultConfig() Config {
	return Config{
		Temperature:    0.2,
		MaxTokens:      256,
		PromptTemplate: prompts.AdvisorPrompt,
	}
}

// Advice is the oracle's opinion on a candidate list. It never drives a
// transition by itself.
type Advice struct {
	Prompt string
	Reply  string
	Choice *entity.RemovalCandidate
}

type Advisor struct {
	llm    output.LLMPort
	logger output.LoggerPort
	cfg    Config
}

// New accepts a nil llm; the advisor then always returns an empty reply.
func New(llm output.LLMPort, logger output.LoggerPort, cfg Config) *Advisor {
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = prompts.AdvisorPrompt
	}
	return &Advisor{
		llm:    llm,
		logger: logger,
		cfg:    cfg,
	}
}

func (a *Advisor) Advise(ctx context.Context, candidates []entity.RemovalCandidate) Advice {
	prompt, err := prompts.GenerateAdvisorPrompt(a.cfg.PromptTemplate, candidates)
	if err != nil {
		a.logger.Warn("Failed to build advisor prompt", "error", err)
		return Advice{}
	}

	advice := Advice{Prompt: prompt}
	if a.llm == nil {
		a.logger.Debug("No LLM configured, skipping advice")
		return advice
	}

	resp, err := a.llm.Chat(ctx, output.ChatRequest{
		Messages:    []entity.Message{{Role: entity.RoleUser, Content: prompt}},
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		a.logger.Warn("Advisor request failed, continuing without advice", "error", err)
		return advice
	}

	advice.Reply = strings.TrimSpace(resp.Message.Content)
	advice.Choice = parseChoice(advice.Reply, candidates)

	a.logger.Info("Advisor replied",
		"candidates", len(candidates),
		"reply_len", len(advice.Reply),
		"chosen", advice.Choice != nil,
	)

	return advice
}

func parseChoice(reply string, candidates []entity.RemovalCandidate) *entity.RemovalCandidate {
	match := choicePattern.FindStringSubmatch(reply)
	if match == nil {
		return nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 1 || n > len(candidates) {
		return nil
	}
	c := candidates[n-1]
	return &c
}
