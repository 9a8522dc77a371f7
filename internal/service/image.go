package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"replybot/internal/biz"
	"replybot/internal/pkg/hash"
)

// ExistsRequest asks whether an image is already stored in a category.
type ExistsRequest struct {
	Category string `json:"category"`
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// ExistsReply is the answer to an ExistsRequest.
type ExistsReply struct {
	Exists bool `json:"exists"`
}

// InsertImageRequest records an image in a category. Identifier defaults to the image URL.
type InsertImageRequest struct {
	Category   string `json:"category"`
	Identifier string `json:"identifier,omitempty"`
	URL        string `json:"url,omitempty"`
	Data       []byte `json:"data,omitempty"`
	// Unique skips the image when an equivalent one is already stored.
	Unique bool `json:"unique,omitempty"`
}

// InsertImageReply reports whether the image was recorded.
type InsertImageReply struct {
	Inserted bool `json:"inserted"`
}

// ImageService exposes duplicate image detection.
type ImageService struct {
	detector *biz.DuplicateDetector
	fetcher  *hash.Fetcher
	log      *log.Helper
}

// NewImageService creates a new ImageService.
func NewImageService(detector *biz.DuplicateDetector, fetcher *hash.Fetcher, logger log.Logger) *ImageService {
	return &ImageService{
		detector: detector,
		fetcher:  fetcher,
		log:      log.NewHelper(logger),
	}
}

func (s *ImageService) load(ctx context.Context, url string, data []byte) ([]byte, error) {
	if len(data) > 0 {
		return data, nil
	}
	if url == "" {
		return nil, errors.BadRequest("MISSING_IMAGE", "either url or data is required")
	}
	fetched, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, errors.BadRequest("IMAGE_FETCH_FAILED", "image could not be downloaded").WithCause(err)
	}
	return fetched, nil
}

// Exists reports whether an equivalent image is stored in the category.
func (s *ImageService) Exists(ctx context.Context, in *ExistsRequest) (*ExistsReply, error) {
	data, err := s.load(ctx, in.URL, in.Data)
	if err != nil {
		return nil, err
	}
	exists, err := s.detector.Exists(ctx, in.Category, data)
	if err != nil {
		return nil, err
	}
	return &ExistsReply{Exists: exists}, nil
}

// InsertImage records an image in the category.
func (s *ImageService) InsertImage(ctx context.Context, in *InsertImageRequest) (*InsertImageReply, error) {
	data, err := s.load(ctx, in.URL, in.Data)
	if err != nil {
		return nil, err
	}
	identifier := in.Identifier
	if identifier == "" {
		identifier = in.URL
	}

	if in.Unique {
		inserted, err := s.detector.InsertIfAbsent(ctx, in.Category, identifier, data)
		if err != nil {
			return nil, err
		}
		return &InsertImageReply{Inserted: inserted}, nil
	}
	if err := s.detector.Insert(ctx, in.Category, identifier, data); err != nil {
		return nil, err
	}
	return &InsertImageReply{Inserted: true}, nil
}
