package core

import (
	"errors"
	"strings"
	"time"
)

// MonthKeyLayout is the year-month label used to key monthly aggregates.
const MonthKeyLayout = "2006-01"

// DateLayout is the calendar date form used on every output surface.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	// Transaction is one cleaned ledger entry.
	Transaction struct {
		Date         Date    `json:"date"`
		Concept      string  `json:"concept"`
		Description  string  `json:"description"`
		Amount       float64 `json:"amount"`
		MonthKey     string  `json:"month_key"`
		Year         int     `json:"year"`
		MonthNumber  int     `json:"month_number"`
		CategoryID   int     `json:"category_id"`
		CategoryName string  `json:"category_name"`
	}
)

var (
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyConcept    = errors.New("empty concept")
	ErrInvalidMonthKey = errors.New("invalid month key")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location and returns it at UTC midnight.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// MonthKey returns the year-month label of the date, e.g. "2025-03".
func (d Date) MonthKey() string {
	return d.Format(MonthKeyLayout)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// NextMonthKey returns the label of the month following key.
func NextMonthKey(key string) (string, error) {
	t, err := time.Parse(MonthKeyLayout, key)
	if err != nil {
		return "", ErrInvalidMonthKey
	}
	return t.AddDate(0, 1, 0).Format(MonthKeyLayout), nil
}

// Text is the document the categorizer vectorizes.
func (t Transaction) Text() string {
	if t.Description == "" {
		return t.Concept
	}
	return t.Concept + " " + t.Description
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Concept)) == 0 {
		return ErrEmptyConcept
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CloneTransactions returns a copy so later stages never write into their input.
func CloneTransactions(in []Transaction) []Transaction {
	out := make([]Transaction, len(in))
	copy(out, in)
	return out
}
