// Package annotation records the user's review flags on stored jobs.
package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amishk599/jobsync/internal/model"
)

// MaxNoteLength is the longest note accepted, in characters.
const MaxNoteLength = 4000

// Store is the persistence the service writes through.
type Store interface {
	Annotate(ctx context.Context, id string, set []model.Assignment) error
}

// Update is a partial flag change. Nil fields are left as they are.
type Update struct {
	Viewed     *bool   `json:"viewed"`
	Interested *bool   `json:"interested"`
	Applied    *bool   `json:"applied"`
	Note       *string `json:"note" validate:"omitempty,max=4000"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Viewed == nil && u.Interested == nil && u.Applied == nil && u.Note == nil
}

// Service applies user annotations.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a Service. A nil now uses time.Now.
func NewService(store Store, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now, logger: logger}
}

// SetFlags applies u to the job with the given id. Setting a flag stamps its
// timestamp with the current time; clearing it clears the timestamp.
func (s *Service) SetFlags(ctx context.Context, id string, u Update) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Validationf("job id is required")
	}
	if u.Note != nil && utf8.RuneCountInString(*u.Note) > MaxNoteLength {
		return model.Validationf("note exceeds %d characters", MaxNoteLength)
	}
	if u.Empty() {
		return nil
	}

	stamp := model.FormatTimestamp(s.now())
	var set []model.Assignment
	set = appendFlag(set, "viewed", u.Viewed, stamp)
	set = appendFlag(set, "interested", u.Interested, stamp)
	set = appendFlag(set, "applied", u.Applied, stamp)
	if u.Note != nil {
		set = append(set, model.Assignment{Column: "notes", Value: nullIfEmpty(*u.Note)})
	}

	if err := s.store.Annotate(ctx, id, set); err != nil {
		return fmt.Errorf("setting flags on %s: %w", id, err)
	}
	s.logger.Info("flags updated", "id", id, "columns", len(set))
	return nil
}

func appendFlag(set []model.Assignment, col string, v *bool, stamp string) []model.Assignment {
	if v == nil {
		return set
	}
	if *v {
		return append(set,
			model.Assignment{Column: col, Value: int64(1)},
			model.Assignment{Column: col + "_at", Value: stamp},
		)
	}
	return append(set,
		model.Assignment{Column: col, Value: int64(0)},
		model.Assignment{Column: col + "_at", Value: nil},
	)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Bool returns a pointer to b, for building updates.
func Bool(b bool) *bool { return &b }
