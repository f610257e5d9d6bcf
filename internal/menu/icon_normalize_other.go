//go:build !windows

package menu

import "go.uber.org/zap"

func platformNormalizeIcon(data []byte, _ *zap.Logger) []byte {
	return data
}
