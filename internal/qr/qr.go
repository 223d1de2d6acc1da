// Package qr renders ticket ids as QR codes.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Size is the edge length in pixels of rendered codes.
const Size = 256

// PNG encodes content as a PNG QR code.
func PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr: empty content")
	}
	png, err := qrcode.Encode(content, qrcode.Medium, Size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return png, nil
}

// DataURL encodes content as a base64 PNG data URL suitable for an <img> src.
func DataURL(content string) (string, error) {
	png, err := PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
