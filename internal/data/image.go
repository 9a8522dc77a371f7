package data

import (
	"fmt"

	"replybot/internal/biz"
	"replybot/internal/conf"
	"replybot/internal/pkg/hash"
)

var (
	defaultSteps       = []conf.Step{{Algorithm: "dhash-8x8", Threshold: 0.15, Normalized: true}}
	defaultInsertSteps = []conf.Step{{Algorithm: "dhash-8x8", Threshold: 0.10, Normalized: true}}
)

// NewDetectorPolicy parses image.steps and image.insert_steps.
// Without configured steps a 64-bit difference hash is used.
func NewDetectorPolicy(c *conf.Image) (*biz.DetectorPolicy, error) {
	steps, insertSteps := c.Steps, c.InsertSteps
	if len(steps) == 0 {
		steps = defaultSteps
		if len(insertSteps) == 0 {
			insertSteps = defaultInsertSteps
		}
	}

	policy := &biz.DetectorPolicy{}
	var err error
	if policy.Steps, err = parseSteps(steps); err != nil {
		return nil, err
	}
	if policy.InsertSteps, err = parseSteps(insertSteps); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

func parseSteps(steps []conf.Step) ([]biz.Step, error) {
	out := make([]biz.Step, 0, len(steps))
	for i, s := range steps {
		algo, err := hash.ParseAlgorithm(s.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out = append(out, biz.Step{Algorithm: algo, Threshold: s.Threshold, Normalized: s.Normalized})
	}
	return out, nil
}

// NewImageFetcher creates the downloader for images referenced by URL.
func NewImageFetcher(c *conf.Image) *hash.Fetcher {
	return hash.NewFetcher(c.FetchTimeout.AsDuration(), c.MaxBytes)
}
