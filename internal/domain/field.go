package domain

import (
	"encoding/json"
	"fmt"
)

// Sentinels written in place of values the source page did not provide.
const (
	NA       = "NA"
	NoReply  = "No reply"
	NoRating = "No rating"
)

// Field is either a parsed value or the sentinel explaining why there is none.
type Field[T any] struct {
	value  T
	reason string
	ok     bool
}

func Present[T any](v T) Field[T] { return Field[T]{value: v, ok: true} }

func Unavailable[T any](reason string) Field[T] { return Field[T]{reason: reason} }

func (f Field[T]) Get() (T, bool) { return f.value, f.ok }

func (f Field[T]) IsPresent() bool { return f.ok }

// Reason is the sentinel for an unavailable field, "" when present.
func (f Field[T]) Reason() string { return f.reason }

// String renders the value, or the sentinel when unavailable.
func (f Field[T]) String() string {
	if !f.ok {
		return f.reason
	}
	return fmt.Sprint(f.value)
}

// Ptr returns nil for unavailable fields; used by the row-oriented sinks.
func (f Field[T]) Ptr() *T {
	if !f.ok {
		return nil
	}
	v := f.value
	return &v
}

type fieldJSON[T any] struct {
	Value       *T     `json:"value,omitempty"`
	Unavailable string `json:"unavailable,omitempty"`
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.ok {
		return json.Marshal(fieldJSON[T]{Value: &f.value})
	}
	return json.Marshal(fieldJSON[T]{Unavailable: f.reason})
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	var raw fieldJSON[T]
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Value != nil {
		*f = Present(*raw.Value)
		return nil
	}
	reason := raw.Unavailable
	if reason == "" {
		reason = NA
	}
	*f = Unavailable[T](reason)
	return nil
}
