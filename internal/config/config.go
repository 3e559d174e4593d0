package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type NarratorConfig struct {
	// API Key 从环境变量读取，不放配置文件
	APIKey  string `mapstructure:"-"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type AppConfig struct {
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	LogLevel  string         `mapstructure:"log_level"`
	StaticDir string         `mapstructure:"static_dir"`
	PublicURL string         `mapstructure:"public_url"`
	Narrator  NarratorConfig `mapstructure:"narrator"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_dir", "./werewolf-fe")

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}

	// 叙事服务的密钥只从环境取
	v.AutomaticEnv()
	config.Narrator.APIKey = v.GetString("OPENAI_API_KEY")

	return &config
}
