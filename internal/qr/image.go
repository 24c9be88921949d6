package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// PNG renders payload at size x size pixels with the highest error correction.
func PNG(payload string, size int) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Highest, size)
	if err != nil {
		return nil, fmt.Errorf("render QR code: %w", err)
	}
	return png, nil
}

// DownloadName is the file name offered when the image is saved.
func DownloadName(firstName, lastName string) string {
	return fmt.Sprintf("qrcode-%s-%s.png", firstName, lastName)
}
