package store

import (
	"context"
	"slices"
)

func byDateDesc(a, b Timestamp) int {
	return b.Time().Compare(a.Time())
}

// TransactionsForUser returns the user's transactions, newest first. Records
// with the same date keep their stored order.
func (s *Store) TransactionsForUser(ctx context.Context, userID string) ([]*Transaction, error) {
	txs, err := s.transactions.QueryByIndex(ctx, IndexUserID, userID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(txs, func(a, b *Transaction) int { return byDateDesc(a.Date, b.Date) })
	return txs, nil
}

// MentorApplicationForUser returns the user's application, or nil.
func (s *Store) MentorApplicationForUser(ctx context.Context, userID string) (*MentorApplication, error) {
	apps, err := s.applications.QueryByIndex(ctx, IndexUserID, userID)
	if err != nil || len(apps) == 0 {
		return nil, err
	}
	return apps[0], nil
}

// CoursesByMentor returns the courses taught by mentorID in stored order.
func (s *Store) CoursesByMentor(ctx context.Context, mentorID string) ([]*Course, error) {
	return s.courses.QueryByIndex(ctx, IndexMentorID, mentorID)
}

// ReviewsForCourse returns the reviews of a course, newest first.
func (s *Store) ReviewsForCourse(ctx context.Context, courseID string) ([]*Review, error) {
	reviews, err := s.reviews.QueryByIndex(ctx, IndexCourseID, courseID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(reviews, func(a, b *Review) int { return byDateDesc(a.CreatedAt, b.CreatedAt) })
	return reviews, nil
}

// SessionsForMentor returns the mentor's sessions, optionally restricted to
// one status, in scheduled order.
func (s *Store) SessionsForMentor(ctx context.Context, mentorID string, status SessionStatus) ([]*Session, error) {
	sessions, err := s.sessions.QueryByIndex(ctx, IndexMentorID, mentorID)
	if err != nil {
		return nil, err
	}
	if status != "" {
		sessions = slices.DeleteFunc(sessions, func(x *Session) bool { return x.Status != status })
	}
	slices.SortStableFunc(sessions, func(a, b *Session) int {
		return a.ScheduledAt.Time().Compare(b.ScheduledAt.Time())
	})
	return sessions, nil
}
