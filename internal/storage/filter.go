package storage

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/cuongbtq/booking-service/internal/booking"
)

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add appends a clause whose single %d verb becomes the argument placeholder.
func (b *whereBuilder) add(format string, arg any) {
	b.args = append(b.args, arg)
	b.clauses = append(b.clauses, fmt.Sprintf(format, len(b.args)))
}

func (b *whereBuilder) raw(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *whereBuilder) String() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// next returns the placeholder index of the next argument.
func (b *whereBuilder) next() int {
	return len(b.args) + 1
}

func jobFilterWhere(f booking.JobFilter) *whereBuilder {
	b := &whereBuilder{}

	if f.ID != 0 {
		b.add("j.id = $%d", f.ID)
	}
	if len(f.LanguageIDs) > 0 {
		b.add("j.from_language_id = ANY($%d)", pq.Array(f.LanguageIDs))
	}
	if len(f.Statuses) > 0 {
		b.add("j.status = ANY($%d)", pq.Array(statusStrings(f.Statuses)))
	}
	if len(f.JobTypes) > 0 {
		b.add("j.job_type = ANY($%d)", pq.Array(jobTypeStrings(f.JobTypes)))
	}
	if len(f.CustomerEmails) > 0 {
		b.add("j.user_id IN (SELECT id FROM users WHERE email = ANY($%d))", pq.Array(f.CustomerEmails))
	}
	if len(f.TranslatorEmails) > 0 {
		b.add(`EXISTS (SELECT 1 FROM translator_job_rel r JOIN users t ON t.id = r.user_id
			WHERE r.job_id = j.id AND r.cancel_at IS NULL AND t.email = ANY($%d))`, pq.Array(f.TranslatorEmails))
	}

	timeColumn := "j.created_at"
	if f.TimeType == "due" {
		timeColumn = "j.due"
	}
	if f.From != nil {
		b.add(timeColumn+" >= $%d", *f.From)
	}
	if f.To != nil {
		b.add(timeColumn+" <= $%d", *f.To)
	}

	if f.Flagged != nil {
		b.add("j.flagged = $%d", *f.Flagged)
	}
	if f.Physical != nil {
		b.add("j.customer_physical_type = $%d", *f.Physical)
	}
	if f.Phone != nil {
		b.add("j.customer_phone_type = $%d", *f.Phone)
	}
	if f.ConsumerType != "" {
		b.add("EXISTS (SELECT 1 FROM user_meta m WHERE m.user_id = j.user_id AND m.consumer_type = $%d)", f.ConsumerType)
	}
	if f.MissingDistance {
		b.raw("NOT EXISTS (SELECT 1 FROM distances d WHERE d.job_id = j.id AND d.distance <> '')")
	}
	if f.LowRatingOnly {
		b.raw("NOT j.ignore_feedback AND EXISTS (SELECT 1 FROM job_feedback f WHERE f.job_id = j.id AND f.rating <= 3)")
	}

	return b
}
