package domain

import "time"

// Overview is the one-per-practice summary of quality indicators.
type Overview struct {
	ID                string
	Patients          Field[int]
	EveningWeekend    Field[string]
	RecommendFraction Field[float64] // 0..1
	RecommendSample   Field[int]
	Address           string
}

// Review is one entry of a practice's paginated review list.
// Seq is 1-based and runs across pages in page-then-position order.
type Review struct {
	PracticeID string
	Seq        int
	Text       Field[string]
	Date       Field[string] // YYYY-MM-DD
	Rating     Field[int]    // 0..5
	ReplyText  Field[string]
	ReplyDate  Field[string]
}

// Availability is the outcome of classifying a fetched page.
type Availability string

const (
	Available Availability = "available"
	Hidden    Availability = "hidden"
	NotFound  Availability = "not_found"
	NoReviews Availability = "no_reviews"
)

// Miss records why a practice produced no overview or no review list.
type Miss struct {
	PracticeID string
	Stage      string // overview|reviews
	Reason     string // hidden|not_found|no_reviews|error
	Detail     string
}

// RunResult is what one pipeline traversal hands to persistence.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Discovered int
	Overviews  []Overview
	Reviews    []Review
	// ReviewsChecked lists every practice whose review list was read in full,
	// including lists that are now empty.
	ReviewsChecked []string
	Misses         []Miss
}
