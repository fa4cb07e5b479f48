// Package llmservice synthesizes answers from retrieved context with a chat model.
package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

var thinkTag = regexp.MustCompile(models.ThinkTag)

// Generator answers a question from an ordered list of context passages.
type Generator interface {
	Generate(ctx context.Context, question string, contexts []string) (string, error)
}

// New returns the generator for cfg.Provider.
func New(cfg *config.LLMConfig) (Generator, error) {
	log.Debug().Interface("config", map[string]string{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Creating chat model")

	switch cfg.Provider {
	case config.ProviderOpenAISDK:
		return NewOpenAI(cfg), nil
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama chat model: %w", err)
		}
		return NewLangChain(llm, cfg.Temperature, cfg.MaxTokens), nil
	default:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai chat model: %w", err)
		}
		return NewLangChain(llm, cfg.Temperature, cfg.MaxTokens), nil
	}
}

// BuildUserPrompt joins contexts in rank order and appends the question.
func BuildUserPrompt(question string, contexts []string) string {
	body := strings.Join(contexts, models.ContextSeparator)
	if strings.TrimSpace(body) == "" {
		body = "(empty)"
	}
	return fmt.Sprintf(models.UserPromptTemplate, body, question)
}

// CleanAnswer drops reasoning blocks some models emit before the answer.
func CleanAnswer(s string) string {
	return strings.TrimSpace(thinkTag.ReplaceAllString(s, ""))
}

// LangChain generates through any langchaingo model.
type LangChain struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
}

func NewLangChain(llm llms.Model, temperature float64, maxTokens int) *LangChain {
	return &LangChain{llm: llm, temperature: temperature, maxTokens: maxTokens}
}

func (g *LangChain) Generate(ctx context.Context, question string, contexts []string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildUserPrompt(question, contexts)),
	}

	opts := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	resp, err := g.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat model returned no choices", models.ErrUpstream)
	}
	return CleanAnswer(resp.Choices[0].Content), nil
}
