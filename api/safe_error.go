package api

import (
	"expenseguard/config"
)

// SafeErrorMessage release 模式下只返回 fallback，不向客户端暴露内部错误
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}
