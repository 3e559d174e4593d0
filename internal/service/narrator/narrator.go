// Package narrator 负责向大语言模型请求游戏叙事文案
// 所有实现都可能失败，调用方必须准备好使用本包的确定性兜底文案
package narrator

import (
	"context"
	"fmt"
	"strings"
)

type Narrator interface {
	// NightStory 根据回合数、死者名单和全体名单生成夜晚故事
	NightStory(ctx context.Context, round int, deadNames, roster []string) (string, error)

	// DiscussionPrompt 根据存活名单生成白天讨论的引导语
	DiscussionPrompt(ctx context.Context, aliveNames []string) (string, error)
}

// FallbackNightStory 是夜晚叙事的本地兜底文案，完全确定性
func FallbackNightStory(round int, deadNames []string) string {
	if len(deadNames) == 0 {
		return fmt.Sprintf("第 %d 夜过去了。昨夜是平安夜，没有人死去。", round)
	}

	return fmt.Sprintf(
		"第 %d 夜过去了。天亮后大家发现 %s 倒在了血泊之中。",
		round,
		strings.Join(deadNames, "、"),
	)
}

// FallbackDiscussionPrompt 是讨论引导语的本地兜底文案
func FallbackDiscussionPrompt(aliveNames []string) string {
	return fmt.Sprintf(
		"天亮了，请 %s 依次发言，讨论谁是狼人。",
		strings.Join(aliveNames, "、"),
	)
}

// FallbackNarrator 不调用任何外部服务，直接返回兜底文案
// 用于测试以及没有配置 API Key 的部署
type FallbackNarrator struct{}

func (FallbackNarrator) NightStory(_ context.Context, round int, deadNames, _ []string) (string, error) {
	return FallbackNightStory(round, deadNames), nil
}

func (FallbackNarrator) DiscussionPrompt(_ context.Context, aliveNames []string) (string, error) {
	return FallbackDiscussionPrompt(aliveNames), nil
}
