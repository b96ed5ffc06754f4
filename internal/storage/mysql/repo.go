package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gp_reviews/internal/domain"
)

// batchRows keeps a multi-row INSERT well under the placeholder limit.
const batchRows = 500

// fieldArgs splits a field into its value and reason columns.
func fieldArgs[T any](f domain.Field[T]) (any, any) {
	if v, ok := f.Get(); ok {
		return v, nil
	}
	return nil, f.Reason()
}

// fieldFrom rebuilds a field from its value and reason columns. def covers
// rows written without a reason.
func fieldFrom[T any](v sql.Null[T], reason sql.NullString, def string) domain.Field[T] {
	if v.Valid {
		return domain.Present(v.V)
	}
	if reason.Valid && reason.String != "" {
		return domain.Unavailable[T](reason.String)
	}
	return domain.Unavailable[T](def)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertOverviews(ctx context.Context, runID string, ovs []domain.Overview) error {
	for start := 0; start < len(ovs); start += batchRows {
		end := min(start+batchRows, len(ovs))
		chunk := ovs[start:end]

		values := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*11)
		for _, o := range chunk {
			values = append(values, practiceRowPlaceholders)
			patients, patientsWhy := fieldArgs(o.Patients)
			ew, ewWhy := fieldArgs(o.EveningWeekend)
			rec, recWhy := fieldArgs(o.RecommendFraction)
			recN, recNWhy := fieldArgs(o.RecommendSample)
			args = append(args,
				o.ID,
				patients, patientsWhy,
				ew, ewWhy,
				rec, recWhy,
				recN, recNWhy,
				o.Address,
				runID,
			)
		}
		q := insertPracticesPrefix + strings.Join(values, ",") + insertPracticesOnDup
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceReviews swaps a practice's stored reviews for rs in one transaction.
func (r *Repo) ReplaceReviews(ctx context.Context, runID, practiceID string, rs []domain.Review) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteReviewsSQL, practiceID); err != nil {
		return err
	}
	for start := 0; start < len(rs); start += batchRows {
		end := min(start+batchRows, len(rs))
		chunk := rs[start:end]

		values := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*13)
		for _, rv := range chunk {
			if rv.PracticeID != practiceID {
				return fmt.Errorf("review %d belongs to %q, not %q", rv.Seq, rv.PracticeID, practiceID)
			}
			values = append(values, reviewRowPlaceholders)
			text, textWhy := fieldArgs(rv.Text)
			date, dateWhy := fieldArgs(rv.Date)
			rating, ratingWhy := fieldArgs(rv.Rating)
			reply, replyWhy := fieldArgs(rv.ReplyText)
			replyDate, replyDateWhy := fieldArgs(rv.ReplyDate)
			args = append(args,
				practiceID,
				rv.Seq,
				text, textWhy,
				date, dateWhy,
				rating, ratingWhy,
				reply, replyWhy,
				replyDate, replyDateWhy,
				runID,
			)
		}
		if _, err = tx.ExecContext(ctx, insertReviewsPrefix+strings.Join(values, ","), args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeletePractice drops a practice row and its reviews together.
func (r *Repo) DeletePractice(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteReviewsSQL, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, deletePracticeSQL, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) LogMiss(ctx context.Context, m domain.Miss) error {
	var detail any
	if m.Detail != "" {
		detail = m.Detail
	}
	_, err := r.db.ExecContext(ctx, insertMissSQL, m.PracticeID, m.Stage, m.Reason, detail)
	return err
}

func (r *Repo) RecordRun(ctx context.Context, s domain.RunSummary) error {
	_, err := r.db.ExecContext(ctx, insertRunSQL,
		s.RunID,
		s.StartedAt.UTC(),
		s.FinishedAt.UTC(),
		s.Discovered,
		s.Overviews,
		s.Reviews,
		s.Misses,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPractice(row rowScanner) (domain.Overview, error) {
	var (
		ov                    domain.Overview
		patients, recommendN  sql.Null[int]
		eveningWeekend        sql.Null[string]
		recommend             sql.Null[float64]
		patientsWhy, ewWhy    sql.NullString
		recommendWhy, recNWhy sql.NullString
	)
	if err := row.Scan(
		&ov.ID,
		&patients, &patientsWhy,
		&eveningWeekend, &ewWhy,
		&recommend, &recommendWhy,
		&recommendN, &recNWhy,
		&ov.Address,
	); err != nil {
		return domain.Overview{}, err
	}
	ov.Patients = fieldFrom(patients, patientsWhy, domain.NA)
	ov.EveningWeekend = fieldFrom(eveningWeekend, ewWhy, domain.NA)
	ov.RecommendFraction = fieldFrom(recommend, recommendWhy, domain.NA)
	ov.RecommendSample = fieldFrom(recommendN, recNWhy, domain.NA)
	return ov, nil
}

func (r *Repo) GetPractice(ctx context.Context, id string) (domain.Overview, error) {
	ov, err := scanPractice(r.db.QueryRowContext(ctx, getPracticeSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Overview{}, domain.ErrNotFound
	}
	return ov, err
}

func (r *Repo) ListPractices(ctx context.Context, q domain.PracticesQuery) (domain.PracticesPage, error) {
	after := ""
	if q.Cursor != nil {
		after = *q.Cursor
	}
	rows, err := r.db.QueryContext(ctx, listPracticesSQL, after, q.Limit+1)
	if err != nil {
		return domain.PracticesPage{}, err
	}
	defer rows.Close()

	var out []domain.Overview
	for rows.Next() {
		ov, err := scanPractice(rows)
		if err != nil {
			return domain.PracticesPage{}, err
		}
		out = append(out, ov)
	}
	if err := rows.Err(); err != nil {
		return domain.PracticesPage{}, err
	}

	page := domain.PracticesPage{Items: out}
	if q.Limit > 0 && len(out) > q.Limit {
		page.Items = out[:q.Limit]
		next := page.Items[q.Limit-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

func (r *Repo) ListReviews(ctx context.Context, id string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	after := 0
	if pg.Cursor != nil {
		after = *pg.Cursor
	}
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, id, after, pg.Limit+1)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var (
			rv                     domain.Review
			text, date             sql.Null[string]
			reply, replyDate       sql.Null[string]
			rating                 sql.Null[int]
			textWhy, dateWhy       sql.NullString
			ratingWhy              sql.NullString
			replyWhy, replyDateWhy sql.NullString
		)
		if err := rows.Scan(
			&rv.PracticeID,
			&rv.Seq,
			&text, &textWhy,
			&date, &dateWhy,
			&rating, &ratingWhy,
			&reply, &replyWhy,
			&replyDate, &replyDateWhy,
		); err != nil {
			return domain.ReviewsPage{}, err
		}
		rv.Text = fieldFrom(text, textWhy, domain.NA)
		rv.Date = fieldFrom(date, dateWhy, domain.NA)
		rv.Rating = fieldFrom(rating, ratingWhy, domain.NoRating)
		rv.ReplyText = fieldFrom(reply, replyWhy, domain.NoReply)
		rv.ReplyDate = fieldFrom(replyDate, replyDateWhy, domain.NoReply)
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}

	page := domain.ReviewsPage{Items: out}
	if pg.Limit > 0 && len(out) > pg.Limit {
		page.Items = out[:pg.Limit]
		next := page.Items[pg.Limit-1].Seq
		page.NextCursor = &next
	}
	return page, nil
}
