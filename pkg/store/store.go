package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Status values a submission moves through. Only the admin path mutates them.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// PlanTiers are the selectable minimum-turnover tiers in NT$.
var PlanTiers = []int64{10000, 30000, 70000}

// Record is the submission shape both backends agree on. The remote store
// flattens its photo rows into Photos; the local store keeps them inline.
type Record struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	Username  string   `json:"username"`
	Plan      int64    `json:"plan"`
	Total     int64    `json:"total"`
	Photos    []string `json:"photos"`
	CreatedAt string   `json:"createdAt"`
	Status    string   `json:"status"`
	Note      *string  `json:"note"`
}

// File is one uploaded proof image, already normalized by the caller.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store is the capability both backends implement. Create persists rec and
// its files, returning the record with Photos filled in.
type Store interface {
	Create(ctx context.Context, rec Record, files []File) (Record, error)
	List(ctx context.Context) ([]Record, error)
	UpdateStatus(ctx context.Context, id, status string, note *string) (Record, error)
}

// ErrNotFound is returned when an id does not exist in the store that
// ultimately answered the call.
var ErrNotFound = errors.New("submission not found")

// ValidationError marks bad caller input; nothing has been written.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return e.Reason }

// StorageError means both backends failed for a single call.
type StorageError struct {
	Remote error
	Local  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("remote store failed (%v) and local store failed (%v)", e.Remote, e.Local)
}

func (e *StorageError) Unwrap() []error { return []error{e.Remote, e.Local} }

// ValidStatus reports whether s is one of the three review states.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

func validPlan(p int64) bool {
	for _, t := range PlanTiers {
		if p == t {
			return true
		}
	}
	return false
}

// NewID generates a submission id from epoch millis plus a random component.
func NewID() string {
	return fmt.Sprintf("%d_%d", time.Now().UnixMilli(), rand.Intn(1_000_000))
}

// DayKey formats t as the calendar day key stored in Record.Date.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ObjectName builds a collision-resistant stored filename from an uploaded
// file's original name, preserving the extension (default .jpg).
func ObjectName(original string) string {
	if original == "" {
		original = "upload"
	}
	clean := unsafeChars.ReplaceAllString(filepath.Base(original), "_")
	ext := filepath.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%d_%d_%s%s", time.Now().UnixMilli(), rand.Intn(1_000_000), base, ext)
}
