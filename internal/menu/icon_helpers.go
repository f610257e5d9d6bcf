package menu

import (
	"encoding/base64"
	"strings"

	"go.uber.org/zap"
)

// decodeIcon turns the base64 icon field into bytes the platform tray
// accepts. It returns nil when there is no usable icon.
func decodeIcon(encoded string, logger *zap.Logger) []byte {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		logger.Warn("ignoring icon with invalid base64", zap.Error(err))
		return nil
	}
	return normalizedIcon(data, logger)
}

func cloneIcon(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp
}

func normalizedIcon(data []byte, logger *zap.Logger) []byte {
	if len(data) == 0 {
		return nil
	}
	normalized := platformNormalizeIcon(data, logger)
	if len(normalized) == 0 {
		return nil
	}
	return cloneIcon(normalized)
}
