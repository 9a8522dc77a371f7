package bloom

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"replybot/internal/pkg/redis"
)

func newTestFilter(t *testing.T) *Filter {
	t.Helper()
	mr := miniredis.RunT(t)
	store := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	return NewBloomFilter(store, "bloom:test", 1<<16, 4)
}

func TestFilter_AddExists(t *testing.T) {
	f := newTestFilter(t)
	ctx := context.Background()

	if ok, err := f.Initialized(ctx); err != nil || ok {
		t.Fatalf("Initialized on empty filter = %v, %v", ok, err)
	}

	for i := 0; i < 100; i++ {
		if err := f.AddWithCtx(ctx, []byte(fmt.Sprintf("item-%d", i))); err != nil {
			t.Fatalf("AddWithCtx failed: %v", err)
		}
	}

	for i := 0; i < 100; i++ {
		ok, err := f.ExistsWithCtx(ctx, []byte(fmt.Sprintf("item-%d", i)))
		if err != nil {
			t.Fatalf("ExistsWithCtx failed: %v", err)
		}
		if !ok {
			t.Errorf("item-%d should be present", i)
		}
	}

	falsePositives := 0
	for i := 0; i < 100; i++ {
		ok, _ := f.ExistsWithCtx(ctx, []byte(fmt.Sprintf("other-%d", i)))
		if ok {
			falsePositives++
		}
	}
	if falsePositives > 5 {
		t.Errorf("Too many false positives: %d", falsePositives)
	}

	if ok, _ := f.Initialized(ctx); !ok {
		t.Error("Expected filter to be initialized after Add")
	}
}

func TestFilter_Reset(t *testing.T) {
	f := newTestFilter(t)
	ctx := context.Background()

	if err := f.AddWithCtx(ctx, []byte("x")); err != nil {
		t.Fatalf("AddWithCtx failed: %v", err)
	}
	if err := f.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if ok, _ := f.ExistsWithCtx(ctx, []byte("x")); ok {
		t.Error("Expected item to be gone after Reset")
	}
}

func TestBitmap_TooLargeOffset(t *testing.T) {
	b := &bitmap{key: "k", size: 8}
	if _, err := b.scriptArgs([]uint{8}); err != ErrTooLargeOffset {
		t.Errorf("Expected ErrTooLargeOffset, got %v", err)
	}
	if args, err := b.scriptArgs([]uint{0, 7}); err != nil || len(args) != 2 || args[1] != "7" {
		t.Errorf("scriptArgs = %v, %v", args, err)
	}
}
