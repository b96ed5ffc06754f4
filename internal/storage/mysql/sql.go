package mysql

const insertPracticesPrefix = "INSERT INTO practices\n" +
	"  (id, patients, patients_reason, evening_weekend, evening_weekend_reason,\n" +
	"   recommend, recommend_reason, recommend_n, recommend_n_reason, address, run_id)\nVALUES "

const practiceRowPlaceholders = "(?,?,?,?,?,?,?,?,?,?,?)"

const insertPracticesOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  patients               = VALUES(patients),\n" +
	"  patients_reason        = VALUES(patients_reason),\n" +
	"  evening_weekend        = VALUES(evening_weekend),\n" +
	"  evening_weekend_reason = VALUES(evening_weekend_reason),\n" +
	"  recommend              = VALUES(recommend),\n" +
	"  recommend_reason       = VALUES(recommend_reason),\n" +
	"  recommend_n            = VALUES(recommend_n),\n" +
	"  recommend_n_reason     = VALUES(recommend_n_reason),\n" +
	"  address                = VALUES(address),\n" +
	"  run_id                 = VALUES(run_id),\n" +
	"  updated_at             = CURRENT_TIMESTAMP\n"

const deleteReviewsSQL = `DELETE FROM practice_reviews WHERE practice_id = ?`

const deletePracticeSQL = `DELETE FROM practices WHERE id = ?`

const insertReviewsPrefix = "INSERT INTO practice_reviews\n" +
	"  (practice_id, seq, review_text, review_text_reason, review_date, review_date_reason,\n" +
	"   rating, rating_reason, reply_text, reply_text_reason, reply_date, reply_date_reason, run_id)\nVALUES "

const reviewRowPlaceholders = "(?,?,?,?,?,?,?,?,?,?,?,?,?)"

const insertMissSQL = `
INSERT INTO ingest_misses (practice_id, stage, reason, detail)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  reason  = VALUES(reason),
  detail  = VALUES(detail),
  seen_at = CURRENT_TIMESTAMP
`

const insertRunSQL = `
INSERT INTO scrape_runs
  (run_id, started_at, finished_at, discovered, overviews, reviews, misses)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const practiceColumns = `
  id,
  patients, patients_reason,
  evening_weekend, evening_weekend_reason,
  recommend, recommend_reason,
  recommend_n, recommend_n_reason,
  address`

const getPracticeSQL = `SELECT` + practiceColumns + `
FROM practices
WHERE id = ?`

// Keyset pagination on id; the extra row tells us whether there is a next page.
const listPracticesSQL = `SELECT` + practiceColumns + `
FROM practices
WHERE id > ?
ORDER BY id
LIMIT ?`

const listReviewsSQL = `
SELECT
  practice_id,
  seq,
  review_text, review_text_reason,
  review_date, review_date_reason,
  rating, rating_reason,
  reply_text, reply_text_reason,
  reply_date, reply_date_reason
FROM practice_reviews
WHERE practice_id = ? AND seq > ?
ORDER BY seq
LIMIT ?`
