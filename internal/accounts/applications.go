package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/maruel/ksid"

	"github.com/maruel/tutordb/internal/store"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// validateApplication applies the onboarding form rules.
func validateApplication(a *store.MentorApplication) error {
	name := strings.TrimSpace(a.FullName)
	switch {
	case len([]rune(name)) < 2:
		return invalid("full name must be at least 2 characters")
	case !emailRe.MatchString(a.Email):
		return invalid("invalid email %q", a.Email)
	case len(a.Languages) == 0:
		return invalid("at least one language is required")
	case len([]rune(strings.TrimSpace(a.Bio))) < 10:
		return invalid("bio must be at least 10 characters")
	case len(a.Subjects) < 3 || len(a.Subjects) > 10:
		return invalid("between 3 and 10 subjects are required, got %d", len(a.Subjects))
	case a.TargetAudience == "":
		return invalid("target audience is required")
	case !a.NDAAgree:
		return invalid("the NDA must be accepted")
	case !strings.EqualFold(strings.TrimSpace(a.DigitalSignature), name):
		return invalid("digital signature must match the full name")
	}
	return nil
}

// SubmitApplication stores the onboarding answers of userID as a pending
// application. A user can only apply once; a second application fails with a
// [*store.ConstraintError].
func (s *Service) SubmitApplication(ctx context.Context, userID string, answers *store.MentorApplication) (*store.MentorApplication, error) {
	if answers == nil {
		return nil, invalid("answers are required")
	}
	if _, err := s.User(ctx, userID); err != nil {
		return nil, err
	}
	a := answers.Clone()
	if err := validateApplication(a); err != nil {
		return nil, err
	}
	a.ID = ksid.NewID().String()
	a.UserID = userID
	a.Status = store.ApplicationPending
	a.SubmittedAt = store.Timestamp(s.now().UTC())
	a.DecidedAt = store.Timestamp{}
	a, err := s.store.MentorApplications().Insert(ctx, a)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Submitted mentor application", "id", a.ID, "user", userID)
	return a, nil
}

// DecideApplication approves or rejects a pending application. Approval
// promotes the applicant to mentor.
func (s *Service) DecideApplication(ctx context.Context, id string, approve bool) (*store.MentorApplication, error) {
	apps := s.store.MentorApplications()
	a, err := apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("application %q: %w", id, store.ErrNotFound)
	}
	if a.Status != store.ApplicationPending {
		return nil, invalid("application %q is already %s", id, a.Status)
	}
	status := store.ApplicationRejected
	if approve {
		status = store.ApplicationApproved
		if _, err := s.store.Users().Update(ctx, a.UserID, store.Patch{"role": store.RoleMentor}); err != nil {
			return nil, err
		}
	}
	a, err = apps.Update(ctx, id, store.Patch{"status": status, "decidedAt": s.now().UTC()})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Decided mentor application", "id", id, "status", status)
	return a, nil
}
