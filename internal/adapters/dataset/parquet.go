package dataset

import (
	"io"

	goparquet "github.com/parquet-go/parquet-go"

	"gp_reviews/internal/domain"
)

// OverviewRow mirrors the overview Parquet schema. Unavailable values are null.
type OverviewRow struct {
	PracticeID     string   `parquet:"practice_id"`
	Patients       *int64   `parquet:"patients,optional"`
	EveningWeekend *string  `parquet:"evening_weekend,optional"`
	Recommend      *float64 `parquet:"recommend,optional"`
	RecommendN     *int64   `parquet:"recommend_n,optional"`
	Address        string   `parquet:"address"`
}

// ReviewRow mirrors the review Parquet schema. The sentinel of a null value is
// implied by the column: dates and reply text read "No reply", rating "No rating".
type ReviewRow struct {
	PracticeID string  `parquet:"practice_id"`
	ReviewNo   int32   `parquet:"review_no"`
	ReviewText *string `parquet:"review_text,optional"`
	ReviewDate *string `parquet:"review_date,optional"`
	Rating     *int32  `parquet:"rating,optional"`
	ReplyText  *string `parquet:"reply_text,optional"`
	ReplyDate  *string `parquet:"reply_date,optional"`
}

func OverviewRows(ovs []domain.Overview) []OverviewRow {
	rows := make([]OverviewRow, len(ovs))
	for i, o := range ovs {
		rows[i] = OverviewRow{
			PracticeID:     o.ID,
			Patients:       int64Ptr(o.Patients),
			EveningWeekend: o.EveningWeekend.Ptr(),
			Recommend:      o.RecommendFraction.Ptr(),
			RecommendN:     int64Ptr(o.RecommendSample),
			Address:        o.Address,
		}
	}
	return rows
}

func ReviewRows(rs []domain.Review) []ReviewRow {
	rows := make([]ReviewRow, len(rs))
	for i, r := range rs {
		var rating *int32
		if v, ok := r.Rating.Get(); ok {
			n := int32(v)
			rating = &n
		}
		rows[i] = ReviewRow{
			PracticeID: r.PracticeID,
			ReviewNo:   int32(r.Seq),
			ReviewText: r.Text.Ptr(),
			ReviewDate: r.Date.Ptr(),
			Rating:     rating,
			ReplyText:  r.ReplyText.Ptr(),
			ReplyDate:  r.ReplyDate.Ptr(),
		}
	}
	return rows
}

func WriteOverviewsParquet(w io.Writer, ovs []domain.Overview) error {
	pw := goparquet.NewGenericWriter[OverviewRow](w)
	if _, err := pw.Write(OverviewRows(ovs)); err != nil {
		return err
	}
	return pw.Close()
}

func WriteReviewsParquet(w io.Writer, rs []domain.Review) error {
	pw := goparquet.NewGenericWriter[ReviewRow](w)
	if _, err := pw.Write(ReviewRows(rs)); err != nil {
		return err
	}
	return pw.Close()
}

func int64Ptr(f domain.Field[int]) *int64 {
	v, ok := f.Get()
	if !ok {
		return nil
	}
	n := int64(v)
	return &n
}
