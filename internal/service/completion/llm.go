package completion

import (
	"context"
	"fmt"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"

	"pathway/internal/domain/models/chat"
)

// LibraryProvider adapts a meridian-llm-go provider (anthropic, lorem) to
// the CompletionProvider contract. Only text blocks travel in either
// direction; attachments are described inline.
type LibraryProvider struct {
	provider llmprovider.Provider
	model    string
}

// NewLibraryProvider wraps an existing library provider
func NewLibraryProvider(provider llmprovider.Provider, model string) *LibraryProvider {
	return &LibraryProvider{provider: provider, model: model}
}

// Name returns the provider name
func (p *LibraryProvider) Name() string {
	return p.provider.Name().String()
}

// Complete sends the line history, with system messages as the system
// prompt, and joins the text blocks of the reply
func (p *LibraryProvider) Complete(ctx context.Context, history []chat.Message) (string, error) {
	resp, err := p.provider.GenerateResponse(ctx, toLibraryRequest(history, p.model))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Blocks {
		if block == nil || block.BlockType != "text" || block.TextContent == nil {
			continue
		}
		sb.WriteString(*block.TextContent)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("empty completion from %s (stop reason %v)", p.Name(), resp.StopReason)
	}
	return sb.String(), nil
}

// toLibraryRequest keeps user and assistant turns as messages; system
// messages are joined in order into the request's system prompt
func toLibraryRequest(history []chat.Message, model string) *llmprovider.GenerateRequest {
	messages := make([]llmprovider.Message, 0, len(history))
	var system []string
	for _, msg := range history {
		if msg.Role == chat.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		text := renderContent(msg)
		messages = append(messages, llmprovider.Message{
			Role: string(msg.Role),
			Blocks: []*llmprovider.Block{{
				BlockType:   "text",
				Sequence:    0,
				TextContent: &text,
			}},
		})
	}

	req := &llmprovider.GenerateRequest{
		Messages: messages,
		Model:    model,
	}
	if len(system) > 0 {
		prompt := strings.Join(system, "\n\n")
		req.Params = &llmprovider.RequestParams{System: &prompt}
	}
	return req
}

// renderContent appends attachment references to the text
func renderContent(msg chat.Message) string {
	if len(msg.Attachments) == 0 {
		return msg.Content
	}
	var sb strings.Builder
	sb.WriteString(msg.Content)
	for _, a := range msg.Attachments {
		fmt.Fprintf(&sb, "\n[attachment: %s %s]", a.Name, a.URL)
	}
	return sb.String()
}
