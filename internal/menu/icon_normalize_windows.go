//go:build windows

package menu

import (
	"bytes"
	"encoding/binary"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"go.uber.org/zap"
)

// platformNormalizeIcon wraps PNG, JPEG and GIF data in an ICO container,
// which is the only format the Windows tray accepts.
func platformNormalizeIcon(data []byte, logger *zap.Logger) []byte {
	if len(data) < 4 {
		return nil
	}

	if isICO(data) {
		return data
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Debug("failed to decode tray icon image", zap.Error(err))
		return nil
	}

	pngData := data
	if format != "png" {
		buf := new(bytes.Buffer)
		if err := png.Encode(buf, img); err != nil {
			logger.Debug("failed to convert tray icon to png", zap.Error(err))
			return nil
		}
		pngData = buf.Bytes()
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		logger.Debug("tray icon image has invalid bounds", zap.Int("width", width), zap.Int("height", height))
		return nil
	}

	icoData, err := wrapPNGAsICO(pngData, width, height)
	if err != nil {
		logger.Debug("failed to wrap tray icon png as ico", zap.Error(err))
		return nil
	}

	logger.Debug("normalized tray icon to ico container", zap.Int("width", width), zap.Int("height", height), zap.String("format", format))
	return icoData
}

func wrapPNGAsICO(pngData []byte, width, height int) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, uint16(0)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(1)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(1)); err != nil {
		return nil, err
	}

	writeDimension := func(value int) error {
		size := byte(value)
		if value <= 0 || value >= 256 {
			size = 0
		}
		return buf.WriteByte(size)
	}

	if err := writeDimension(width); err != nil {
		return nil, err
	}
	if err := writeDimension(height); err != nil {
		return nil, err
	}

	if err := buf.WriteByte(0); err != nil {
		return nil, err
	}
	if err := buf.WriteByte(0); err != nil {
		return nil, err
	}

	if err := binary.Write(buf, binary.LittleEndian, uint16(1)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(32)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(pngData))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(6+16)); err != nil {
		return nil, err
	}

	if _, err := buf.Write(pngData); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func isICO(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01 && data[3] == 0x00
}
