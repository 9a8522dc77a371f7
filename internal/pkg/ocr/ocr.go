// Package ocr extracts text from images through an external recognition service.
package ocr

import (
	"context"
	"time"
)

// Recognizer returns the text found in an image. An image without text yields "".
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Pinger is implemented by backends that can report whether they are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ Pinger = (*HTTPClient)(nil)
	_ Pinger = (*GRPCClient)(nil)
	_ Pinger = (*OllamaClient)(nil)
)

// Config holds configuration shared by every OCR backend.
type Config struct {
	Address string        // base URL for http/ollama, host:port for grpc
	Model   string        // vision model, ollama only
	Timeout time.Duration // per-request timeout
}

// DefaultConfig returns a default config for addr.
func DefaultConfig(addr string) Config {
	return Config{
		Address: addr,
		Timeout: 30 * time.Second,
	}
}
