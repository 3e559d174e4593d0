package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "你是一场狼人杀游戏的主持人。" +
	"用生动但简短的中文讲述游戏进程，两三句话即可，不要剧透任何玩家的身份。"

// OpenAINarrator 通过 OpenAI 兼容接口生成叙事
type OpenAINarrator struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAINarrator(apiKey, baseURL, model string) *OpenAINarrator {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	chatModel := openai.ChatModel(model)
	if chatModel == "" {
		chatModel = openai.ChatModelGPT4oMini
	}

	return &OpenAINarrator{
		client: openai.NewClient(opts...),
		model:  chatModel,
	}
}

func (n *OpenAINarrator) NightStory(ctx context.Context, round int, deadNames, roster []string) (string, error) {
	var prompt string
	if len(deadNames) == 0 {
		prompt = fmt.Sprintf(
			"第 %d 夜结束了，场上玩家有：%s。昨夜没有人死亡，请讲述一个平安夜的清晨。",
			round,
			strings.Join(roster, "、"),
		)
	} else {
		prompt = fmt.Sprintf(
			"第 %d 夜结束了，场上玩家有：%s。昨夜死亡的玩家是：%s。请讲述天亮后村民发现死者的场景。",
			round,
			strings.Join(roster, "、"),
			strings.Join(deadNames, "、"),
		)
	}

	return n.complete(ctx, prompt)
}

func (n *OpenAINarrator) DiscussionPrompt(ctx context.Context, aliveNames []string) (string, error) {
	prompt := fmt.Sprintf(
		"现在进入白天讨论环节，存活玩家有：%s。请用主持人的口吻引导大家开始讨论。",
		strings.Join(aliveNames, "、"),
	)

	return n.complete(ctx, prompt)
}

func (n *OpenAINarrator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: n.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("请求叙事生成失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("叙事生成返回了空结果")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("叙事生成返回了空文本")
	}

	return text, nil
}
