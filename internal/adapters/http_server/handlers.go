// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"gp_reviews/internal/app"
	"gp_reviews/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type practiceView struct {
	ID             string                `json:"id"`
	Patients       domain.Field[int]     `json:"patients"`
	EveningWeekend domain.Field[string]  `json:"evening_weekend"`
	Recommend      domain.Field[float64] `json:"recommend"`
	RecommendN     domain.Field[int]     `json:"recommend_n"`
	Address        string                `json:"address"`
}

type reviewView struct {
	ReviewNo  int                  `json:"review_no"`
	Text      domain.Field[string] `json:"review_text"`
	Date      domain.Field[string] `json:"review_date"`
	Rating    domain.Field[int]    `json:"rating"`
	ReplyText domain.Field[string] `json:"reply_text"`
	ReplyDate domain.Field[string] `json:"reply_date"`
}

type practicesResponse struct {
	Items      []practiceView `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

type reviewsResponse struct {
	PracticeID string       `json:"practice_id"`
	Items      []reviewView `json:"items"`
	NextCursor *int         `json:"next_cursor,omitempty"`
}

func toPracticeView(o domain.Overview) practiceView {
	return practiceView{
		ID:             o.ID,
		Patients:       o.Patients,
		EveningWeekend: o.EveningWeekend,
		Recommend:      o.RecommendFraction,
		RecommendN:     o.RecommendSample,
		Address:        o.Address,
	}
}

func toReviewView(r domain.Review) reviewView {
	return reviewView{
		ReviewNo:  r.Seq,
		Text:      r.Text,
		Date:      r.Date,
		Rating:    r.Rating,
		ReplyText: r.ReplyText,
		ReplyDate: r.ReplyDate,
	}
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/practices", h.listPractices)
	s.mux.Get("/v1/practices/{id}", h.getPractice)
	s.mux.Get("/v1/practices/{id}/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeLookupError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	log.Error().Err(err).Str("what", what).Msg("lookup failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any, name string) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msgf("failed to write %s body", name)
	}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return defaultLimit, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > maxLimit {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return 0, false
	}
	return l, true
}

func (h *Handlers) getPractice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ov, err := h.Q.GetPractice(r.Context(), id)
	if err != nil {
		writeLookupError(w, err, "practice")
		return
	}
	writeJSON(w, r, toPracticeView(ov), "getPractice")
}

func (h *Handlers) listPractices(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	q := domain.PracticesQuery{Limit: limit}
	if c := r.URL.Query().Get("cursor"); c != "" {
		q.Cursor = &c
	}
	page, err := h.Q.ListPractices(r.Context(), q)
	if err != nil {
		writeLookupError(w, err, "practices")
		return
	}

	out := practicesResponse{Items: make([]practiceView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, ov := range page.Items {
		out.Items = append(out.Items, toPracticeView(ov))
	}
	writeJSON(w, r, out, "listPractices")
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	pq := domain.PageQuery{Limit: limit}
	if cs := r.URL.Query().Get("cursor"); cs != "" {
		c, err := strconv.Atoi(cs)
		if err != nil || c < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", "cursor must be a non-negative review number")
			return
		}
		pq.Cursor = &c
	}

	page, err := h.Q.ListReviews(r.Context(), id, pq)
	if err != nil {
		writeLookupError(w, err, "reviews")
		return
	}

	out := reviewsResponse{PracticeID: id, Items: make([]reviewView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, rv := range page.Items {
		out.Items = append(out.Items, toReviewView(rv))
	}
	writeJSON(w, r, out, "listReviews")
}
