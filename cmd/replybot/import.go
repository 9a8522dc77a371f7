package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"replybot/internal/biz"
	"replybot/internal/data"
	"replybot/internal/pkg/hash"
)

// importMaxDepth is how deep below the root directory images are collected.
const importMaxDepth = 2

var importUnique bool

var importCmd = &cobra.Command{
	Use:   "import <category> <dir>",
	Short: "Hash every image under dir into category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := loadConfig()
		if err != nil {
			return err
		}
		id := data.NewInstanceID()
		logger := newLogger(id)

		detector, cleanup, err := wireDetector(bc.Data, bc.Image, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		summary, err := importImages(ctx, detector, args[0], args[1], importUnique, logger)
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, duplicates %d, skipped %d\n",
			summary.Inserted, summary.Duplicates, summary.Skipped)
		return err
	},
}

func init() {
	importCmd.Flags().BoolVar(&importUnique, "unique", false, "skip images equivalent to one already stored")
}

type importSummary struct {
	Inserted   int
	Duplicates int
	Skipped    int
}

// imageInserter is the part of biz.DuplicateDetector used by import.
type imageInserter interface {
	Insert(ctx context.Context, category, identifier string, img []byte) error
	InsertIfAbsent(ctx context.Context, category, identifier string, img []byte) (bool, error)
}

var _ imageInserter = (*biz.DuplicateDetector)(nil)

// importImages inserts every still image found at most importMaxDepth
// levels below root, identified by its absolute path.
func importImages(ctx context.Context, detector imageInserter, category, root string, unique bool, logger log.Logger) (importSummary, error) {
	helper := log.NewHelper(logger)
	var summary importSummary

	root, err := filepath.Abs(root)
	if err != nil {
		return summary, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && depth(root, path) >= importMaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		img, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !hash.IsDecodable(img) || hash.IsAnimated(img) {
			summary.Skipped++
			return nil
		}

		if unique {
			inserted, err := detector.InsertIfAbsent(ctx, category, path, img)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if !inserted {
				summary.Duplicates++
				helper.Debugf("duplicate %s", path)
				return nil
			}
		} else if err := detector.Insert(ctx, category, path, img); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		summary.Inserted++
		return nil
	})
	return summary, err
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
