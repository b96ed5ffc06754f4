// Package dataset writes the overview and review datasets of a run to disk.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gp_reviews/internal/domain"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

var (
	OverviewHeader = []string{"practice_id", "patients", "evening_weekend", "recommend", "recommend_n", "address"}
	ReviewHeader   = []string{"practice_id", "review_no", "review_text", "review_date", "rating", "reply_text", "reply_date"}
)

// Writer implements domain.DatasetWriter for a directory of files.
type Writer struct {
	dir    string
	format string
}

func NewWriter(dir, format string) (*Writer, error) {
	switch format {
	case FormatCSV, FormatParquet:
	default:
		return nil, fmt.Errorf("unknown dataset format %q", format)
	}
	return &Writer{dir: dir, format: format}, nil
}

func (w *Writer) Paths() (overview, reviews string) {
	return filepath.Join(w.dir, "overview."+w.format), filepath.Join(w.dir, "reviews."+w.format)
}

func (w *Writer) Write(ctx context.Context, ovs []domain.Overview, rs []domain.Review) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	ovPath, rvPath := w.Paths()
	if err := writeFile(ovPath, func(f *os.File) error {
		if w.format == FormatParquet {
			return WriteOverviewsParquet(f, ovs)
		}
		return WriteOverviewsCSV(f, ovs)
	}); err != nil {
		return fmt.Errorf("write %s: %w", ovPath, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFile(rvPath, func(f *os.File) error {
		if w.format == FormatParquet {
			return WriteReviewsParquet(f, rs)
		}
		return WriteReviewsCSV(f, rs)
	}); err != nil {
		return fmt.Errorf("write %s: %w", rvPath, err)
	}
	return nil
}

// writeFile writes to a temp file in the same directory and renames it into place.
func writeFile(path string, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
