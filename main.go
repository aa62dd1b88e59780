package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"expenseguard/config"
	"expenseguard/database"
	"expenseguard/middleware"
	"expenseguard/router"
)

// @title Expense Guard API
// @version 1.0
// @description 消费记录管理、类别月度限额、规则风险与统计异常检测、合规分与数据导出
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var version = "1.0.0"

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

// setupLogger 初始化全局 slog，release 模式只输出 info 以上
func setupLogger(mode string) {
	level := slog.LevelDebug
	if mode == "release" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("Expense Guard v%s\n", version)
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	setupLogger(cfg.Server.Mode)

	// 命令行参数覆盖端口配置
	if port != "" {
		// 自动添加冒号前缀
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		slog.Info("命令行指定端口", "port", port)
	}

	// 打印配置信息
	config.PrintConfig()

	// 初始化数据库
	if err := database.Init(cfg); err != nil {
		slog.Error("数据库初始化失败", "error", err)
		os.Exit(1)
	}

	// 初始化 JWT
	middleware.InitJWT(cfg)

	// 设置路由
	r := router.SetupRouter(cfg)

	slog.Info("Expense Guard 已启动",
		"version", version,
		"api", fmt.Sprintf("http://localhost%s/api/v1/", cfg.Server.Port),
		"swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", cfg.Server.Port),
	)

	if err := r.Run(cfg.Server.Port); err != nil {
		slog.Error("服务器启动失败", "error", err)
		os.Exit(1)
	}
}
