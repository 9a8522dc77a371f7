package bloom

import (
	"context"
	"errors"
	"strconv"

	"replybot/internal/pkg/redis"
)

// bitmap is a fixed size redis bitmap addressed by offset.
// Multi-bit reads and writes run as one lua script so they are atomic.
type bitmap struct {
	store redis.Cache
	key   string
	size  uint
}

func (b *bitmap) scriptArgs(offsets []uint) ([]any, error) {
	args := make([]any, len(offsets))
	for i, offset := range offsets {
		if offset >= b.size {
			return nil, ErrTooLargeOffset
		}
		args[i] = strconv.FormatUint(uint64(offset), 10)
	}
	return args, nil
}

// allSet reports whether every offset is set. A missing key reads as unset.
func (b *bitmap) allSet(ctx context.Context, offsets []uint) (bool, error) {
	args, err := b.scriptArgs(offsets)
	if err != nil {
		return false, err
	}
	resp, err := b.store.ScriptRun(ctx, getScript, []string{b.key}, args...)
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	n, _ := resp.(int64)
	return n == 1, nil
}

func (b *bitmap) setAll(ctx context.Context, offsets []uint) error {
	args, err := b.scriptArgs(offsets)
	if err != nil {
		return err
	}
	if _, err := b.store.ScriptRun(ctx, setScript, []string{b.key}, args...); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (b *bitmap) created(ctx context.Context) (bool, error) {
	return b.store.Exists(ctx, b.key)
}

func (b *bitmap) drop(ctx context.Context) error {
	_, err := b.store.Del(ctx, b.key)
	return err
}
