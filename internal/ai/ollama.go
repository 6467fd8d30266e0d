package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const defaultOllamaHost = "http://127.0.0.1:11434"

type ollamaConfig struct {
	Host string `json:"host"`
}

// ollamaProvider serves the "local" provider id: a model hosted on the
// same machine through the Ollama API.
type ollamaProvider struct {
	client *api.Client
}

func (p *ollamaProvider) Name() string {
	return "local"
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	stream := false
	req := api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}
	var builder strings.Builder
	err := p.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := builder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", ErrMalformed
	}
	return text, nil
}

type ollamaEmbedProvider struct {
	client *api.Client
}

func (p *ollamaEmbedProvider) Name() string {
	return "local"
}

func (p *ollamaEmbedProvider) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	resp, err := p.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrMalformed
	}
	values := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		values[i] = float32(v)
	}
	return values, nil
}

func newOllamaClient(args interface{}) (*api.Client, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultOllamaHost
	}
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return api.NewClient(hostURL, http.DefaultClient), nil
}

func createOllamaFactory(args interface{}) (Provider, error) {
	client, err := newOllamaClient(args)
	if err != nil {
		return nil, err
	}
	return &ollamaProvider{client: client}, nil
}

func createOllamaEmbedFactory(args interface{}) (EmbedProvider, error) {
	client, err := newOllamaClient(args)
	if err != nil {
		return nil, err
	}
	return &ollamaEmbedProvider{client: client}, nil
}

func init() {
	Register("local", createOllamaFactory)
	RegisterEmbed("local", createOllamaEmbedFactory)
}
