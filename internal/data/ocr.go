package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"replybot/internal/biz"
	"replybot/internal/conf"
	"replybot/internal/pkg/ocr"
)

const ocrPingTimeout = 3 * time.Second

// NewOCR builds the configured OCR backend. It returns nil when OCR is disabled.
func NewOCR(c *conf.OCR, logger log.Logger) (biz.OCR, func(), error) {
	helper := log.NewHelper(logger)
	cleanup := func() {}

	cfg := ocr.DefaultConfig(c.Address)
	if c.Timeout.AsDuration() > 0 {
		cfg.Timeout = c.Timeout.AsDuration()
	}

	var recognizer ocr.Recognizer
	switch c.Driver {
	case "", "none":
		helper.Info("ocr disabled, image rules will never match")
		return nil, cleanup, nil
	case "http":
		recognizer = ocr.NewHTTPClient(cfg)
	case "grpc":
		client, err := ocr.NewGRPCClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		recognizer = client
		cleanup = func() {
			if err := client.Close(); err != nil {
				helper.Warnf("failed to close ocr connection: %v", err)
			}
		}
	case "ollama":
		ollama := ocr.DefaultOllamaConfig()
		if c.Address != "" {
			ollama.Address = c.Address
		}
		if c.Model != "" {
			ollama.Model = c.Model
		}
		if c.Timeout.AsDuration() > 0 {
			ollama.Timeout = c.Timeout.AsDuration()
		}
		recognizer = ocr.NewOllamaClient(ollama)
	default:
		return nil, nil, fmt.Errorf("unknown ocr driver %q", c.Driver)
	}

	helper.Infof("ocr backend %s at %s", c.Driver, c.Address)
	if p, ok := recognizer.(ocr.Pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), ocrPingTimeout)
		if err := p.Ping(ctx); err != nil {
			helper.Warnf("ocr backend is not reachable yet, image rules will not match until it is: %v", err)
		}
		cancel()
	}
	return ocr.NewLimited(recognizer, c.RPS, c.Burst), cleanup, nil
}
