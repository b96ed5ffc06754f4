package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"gp_reviews/internal/domain"
)

// WriteOverviewsCSV writes one row per practice; unavailable fields carry their sentinel.
func WriteOverviewsCSV(w io.Writer, ovs []domain.Overview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OverviewHeader); err != nil {
		return err
	}
	for _, o := range ovs {
		if err := cw.Write([]string{
			o.ID,
			o.Patients.String(),
			o.EveningWeekend.String(),
			o.RecommendFraction.String(),
			o.RecommendSample.String(),
			o.Address,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteReviewsCSV(w io.Writer, rs []domain.Review) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReviewHeader); err != nil {
		return err
	}
	for _, r := range rs {
		if err := cw.Write([]string{
			r.PracticeID,
			strconv.Itoa(r.Seq),
			r.Text.String(),
			r.Date.String(),
			r.Rating.String(),
			r.ReplyText.String(),
			r.ReplyDate.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
