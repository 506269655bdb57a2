package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/gemini-chat/backend/internal/config"
)

const providerArk = "ark"

// ArkCompleter runs prompts through an eino chain backed by an Ark chat model.
type ArkCompleter struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkCompleter 使用配置创建 Ark 模型并编译调用链。
func NewArkCompleter(ctx context.Context, cfg config.AIConfig) (*ArkCompleter, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newArkCompleterWithModel(ctx, chatModel)
}

func newArkCompleterWithModel(ctx context.Context, chatModel model.ChatModel) (*ArkCompleter, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkCompleter{chain: runnable}, nil
}

// Generate invokes the chain once and returns the assistant content.
func (c *ArkCompleter) Generate(ctx context.Context, query string) (string, error) {
	response, err := c.chain.Invoke(ctx, chainInput(query))
	if err != nil {
		return "", &RemoteCallError{Provider: providerArk, Err: err}
	}
	return response.Content, nil
}

// Stream forwards non-empty chunks and concatenates them into the final answer.
func (c *ArkCompleter) Stream(ctx context.Context, query string, onDelta func(string)) (string, error) {
	stream, err := c.chain.Stream(ctx, chainInput(query))
	if err != nil {
		return "", &RemoteCallError{Provider: providerArk, Err: err}
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", &RemoteCallError{Provider: providerArk, Err: recvErr}
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", nil
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", &RemoteCallError{Provider: providerArk, Err: err}
	}
	return response.Content, nil
}

// query 中的花括号会被 FString 模板解析，这里把用户输入作为变量值传入，不拼接进模板。
func chainInput(query string) map[string]any {
	return map[string]any{"query": query}
}
