// Package qr renders check-in QR codes as PNG data URLs.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"campusattend/internal/domain"
)

const pngSize = 400

type generator struct {
	level qrcode.RecoveryLevel
}

// NewGenerator returns a QRGenerator producing 400x400 PNGs with high error
// correction, matching what phone cameras scan reliably at a distance.
func NewGenerator() domain.QRGenerator {
	return &generator{level: qrcode.High}
}

func (g *generator) DataURL(payload string) (string, error) {
	png, err := qrcode.Encode(payload, g.level, pngSize)
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
