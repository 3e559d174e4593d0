package main

import (
	"github.com/dmety/Werewolf-Kill/internal/api/http"
	"github.com/dmety/Werewolf-Kill/internal/config"
	"github.com/dmety/Werewolf-Kill/internal/logger"
	"github.com/dmety/Werewolf-Kill/internal/service"
	"github.com/dmety/Werewolf-Kill/internal/service/narrator"
	"github.com/dmety/Werewolf-Kill/internal/state"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env 里放 OPENAI_API_KEY 等密钥，没有该文件也不是错误
	_ = godotenv.Load()

	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)

	// 没有配置密钥时退回本地兜底叙事
	var narr narrator.Narrator
	if cfg.Narrator.APIKey != "" {
		narr = narrator.NewOpenAINarrator(
			cfg.Narrator.APIKey,
			cfg.Narrator.BaseURL,
			cfg.Narrator.Model,
		)
	} else {
		zap.L().Warn("未配置 OPENAI_API_KEY，叙事将使用本地兜底文案")
		narr = narrator.FallbackNarrator{}
	}

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		service.NewRoomService(narr),
	)

	// 启动服务器
	http.RunServer(appState)
}
