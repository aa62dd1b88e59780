// riskctl 离线评估 CSV 导出文件，不需要数据库
package main

import (
	"os"

	"github.com/joho/godotenv"
)

var version = "1.0.0"

func main() {
	// .env 可选，用于提供 RISKCTL_* 默认值
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
