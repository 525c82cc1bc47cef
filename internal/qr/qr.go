// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package qr renders session payloads as scannable QR code images.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// Payload is the JSON document embedded in every attendance QR code.
type Payload struct {
	SessionID string `json:"sessionId"`
}

// Encoder turns session payloads into PNG data URLs.
type Encoder struct {
	size     int
	recovery qrcode.RecoveryLevel
}

// NewEncoder returns an encoder producing square images of size pixels.
// Recovery is one of "low", "medium", "high" or "highest"; empty means medium.
func NewEncoder(size int, recovery string) (*Encoder, error) {
	if size <= 0 {
		size = 256
	}
	level, err := parseRecovery(recovery)
	if err != nil {
		return nil, err
	}
	return &Encoder{size: size, recovery: level}, nil
}

func parseRecovery(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "medium":
		return qrcode.Medium, nil
	case "low":
		return qrcode.Low, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	default:
		return qrcode.Medium, fmt.Errorf("qr: unknown recovery level %q", s)
	}
}

// DataURL encodes {"sessionId": id} as a base64 PNG data URL suitable for an <img> src.
func (e *Encoder) DataURL(sessionID string) (string, error) {
	png, err := e.PNG(sessionID)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// PNG encodes {"sessionId": id} as raw PNG bytes.
func (e *Encoder) PNG(sessionID string) ([]byte, error) {
	content, err := json.Marshal(Payload{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("qr: encode payload: %w", err)
	}
	png, err := qrcode.Encode(string(content), e.recovery, e.size)
	if err != nil {
		return nil, fmt.Errorf("qr: render: %w", err)
	}
	return png, nil
}

// DecodeDataURL strips the data URL prefix and returns the PNG bytes.
func DecodeDataURL(u string) ([]byte, error) {
	if !strings.HasPrefix(u, dataURLPrefix) {
		return nil, fmt.Errorf("qr: not a png data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(u, dataURLPrefix))
}
