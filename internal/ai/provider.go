package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// Request is one prompt, optionally with an image attached.
type Request struct {
	Prompt   string
	Image    []byte
	MIMEType string
	JSON     bool // ask for a JSON object response
}

// Provider is a chat model backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// dataURI encodes an image for providers that take URLs.
func dataURI(image []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
}

// stripCodeFences removes markdown code blocks models like to wrap answers in.
func stripCodeFences(s string) string {
	cleaned := strings.TrimSpace(s)
	backticks := "```"
	if strings.HasPrefix(cleaned, backticks) {
		cleaned = strings.TrimPrefix(cleaned, backticks)
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 {
			// drop the language tag line, e.g. ```json
			if tag := strings.TrimSpace(cleaned[:nl]); !strings.ContainsAny(tag, " {[") {
				cleaned = cleaned[nl+1:]
			}
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), backticks)
	}
	return strings.TrimSpace(cleaned)
}
