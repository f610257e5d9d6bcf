//go:build !darwin || !cgo

package menu

func setTemplateIcon([]byte) {}
