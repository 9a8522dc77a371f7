package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
)

type recordingInserter struct {
	inserted []string
	present  map[string]bool
}

func (r *recordingInserter) Insert(ctx context.Context, category, identifier string, img []byte) error {
	r.inserted = append(r.inserted, identifier)
	return nil
}

func (r *recordingInserter) InsertIfAbsent(ctx context.Context, category, identifier string, img []byte) (bool, error) {
	if r.present[string(img)] {
		return false, nil
	}
	if r.present == nil {
		r.present = make(map[string]bool)
	}
	r.present[string(img)] = true
	r.inserted = append(r.inserted, identifier)
	return true, nil
}

func pngBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func animatedGIFBytes(t *testing.T) []byte {
	t.Helper()
	palette := color.Palette{color.Black, color.White}
	anim := &gif.GIF{}
	for i := 0; i < 2; i++ {
		anim.Image = append(anim.Image, image.NewPaletted(image.Rect(0, 0, 4, 4), palette))
		anim.Delay = append(anim.Delay, 5)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("gif.EncodeAll failed: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImportImages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), pngBytes(t, 10))
	writeFile(t, filepath.Join(root, "sub", "b.png"), pngBytes(t, 200))
	writeFile(t, filepath.Join(root, "sub", "deeper", "c.png"), pngBytes(t, 90))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("not an image"))
	writeFile(t, filepath.Join(root, "anim.gif"), animatedGIFBytes(t))

	rec := &recordingInserter{}
	summary, err := importImages(context.Background(), rec, "meme", root, false, log.DefaultLogger)
	if err != nil {
		t.Fatalf("importImages failed: %v", err)
	}

	sort.Strings(rec.inserted)
	want := []string{filepath.Join(root, "a.png"), filepath.Join(root, "sub", "b.png")}
	if len(rec.inserted) != len(want) {
		t.Fatalf("inserted %v; want %v", rec.inserted, want)
	}
	for i := range want {
		if rec.inserted[i] != want[i] {
			t.Errorf("inserted[%d] = %s; want %s", i, rec.inserted[i], want[i])
		}
	}
	if summary.Inserted != 2 || summary.Skipped != 2 || summary.Duplicates != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestImportImages_Unique(t *testing.T) {
	root := t.TempDir()
	same := pngBytes(t, 42)
	writeFile(t, filepath.Join(root, "one.png"), same)
	writeFile(t, filepath.Join(root, "two.png"), same)
	writeFile(t, filepath.Join(root, "three.png"), pngBytes(t, 180))

	rec := &recordingInserter{}
	summary, err := importImages(context.Background(), rec, "meme", root, true, log.DefaultLogger)
	if err != nil {
		t.Fatalf("importImages failed: %v", err)
	}
	if summary.Inserted != 2 || summary.Duplicates != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestImportImages_MissingDir(t *testing.T) {
	rec := &recordingInserter{}
	if _, err := importImages(context.Background(), rec, "meme", filepath.Join(t.TempDir(), "nope"), false, log.DefaultLogger); err == nil {
		t.Fatal("Expected error for missing directory")
	}
}

func TestDepth(t *testing.T) {
	root := filepath.Join("data", "image")
	tests := []struct {
		path string
		want int
	}{
		{root, 0},
		{filepath.Join(root, "a"), 1},
		{filepath.Join(root, "a", "b"), 2},
	}
	for _, tt := range tests {
		if got := depth(root, tt.path); got != tt.want {
			t.Errorf("depth(%q) = %d; want %d", tt.path, got, tt.want)
		}
	}
}
