package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// Role is a user role.
type Role string

// Roles.
const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
	RoleAdmin   Role = "admin"
)

// SessionStatus is the lifecycle state of a booked session.
type SessionStatus string

// Session statuses.
const (
	SessionPending   SessionStatus = "pending"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// TransactionType classifies a coin movement.
type TransactionType string

// Transaction types.
const (
	TxPurchase       TransactionType = "purchase"
	TxSessionPayment TransactionType = "session payment"
	TxRefund         TransactionType = "refund"
	TxBonus          TransactionType = "bonus"
)

// ApplicationStatus is the review state of a mentor application.
type ApplicationStatus string

// Application statuses.
const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

var errIDRequired = errors.New("id is required")

// JSONSchema describes Timestamp as a date-time string in table headers.
func (Timestamp) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Format: "date-time"}
}

// User is a marketplace account.
type User struct {
	ID               string   `json:"id" jsonschema:"description=Unique user identifier"`
	Email            string   `json:"email,omitempty"`
	Username         string   `json:"username,omitempty"`
	Role             Role     `json:"role,omitempty"`
	InstructorType   string   `json:"instructor_type,omitempty"`
	Favorites        []string `json:"favorites,omitempty" jsonschema:"description=Favorite course IDs"`
	ExcelCoinBalance float64  `json:"excel_coin_balance,omitempty"`
	FullName         string   `json:"full_name,omitempty"`
	AvatarURL        string   `json:"avatar_url,omitempty"`
	Headline         string   `json:"headline,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	City             string   `json:"city,omitempty"`
	Bio              string   `json:"bio,omitempty"`
	Languages        []string `json:"languages,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	DOB              string   `json:"dob,omitempty"`
	PasswordHash     string   `json:"password_hash,omitempty"`
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	c.Favorites = slices.Clone(u.Favorites)
	c.Languages = slices.Clone(u.Languages)
	return &c
}

// GetID returns the primary key.
func (u *User) GetID() string {
	return u.ID
}

// Validate checks that the user is well-formed.
func (u *User) Validate() error {
	if u.ID == "" {
		return errIDRequired
	}
	switch u.Role {
	case "", RoleStudent, RoleMentor, RoleAdmin:
	default:
		return fmt.Errorf("invalid role %q", u.Role)
	}
	return nil
}

// HasFavorite reports whether courseID is in the user's favorites.
func (u *User) HasFavorite(courseID string) bool {
	return slices.Contains(u.Favorites, courseID)
}

// Availability describes when a course can be booked.
type Availability struct {
	Today        bool     `json:"today,omitempty"`
	ThisWeek     bool     `json:"this_week,omitempty"`
	WeekendsOnly bool     `json:"weekends_only,omitempty"`
	TimeSlots    []string `json:"time_slots,omitempty"`
}

// Course is a mentor's offering.
type Course struct {
	ID               string        `json:"id"`
	MentorID         string        `json:"mentor_id,omitempty"`
	Title            string        `json:"title,omitempty"`
	ShortDescription string        `json:"short_description,omitempty"`
	Subject          string        `json:"subject,omitempty"`
	SubCategory      string        `json:"sub_category,omitempty"`
	DifficultyLevel  string        `json:"difficulty_level,omitempty"`
	PricePerSession  float64       `json:"price_per_session,omitempty"`
	AverageRating    float64       `json:"average_rating,omitempty"`
	TotalReviews     int           `json:"total_reviews,omitempty"`
	CreatedAt        Timestamp     `json:"created_at,omitzero"`
	LanguagesTaught  []string      `json:"languages_taught,omitempty"`
	Features         []string      `json:"features,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	Availability     *Availability `json:"availability,omitempty"`
	SessionType      string        `json:"session_type,omitempty"`
	GroupSize        string        `json:"group_size,omitempty"`
	InstructorType   string        `json:"instructor_type,omitempty"`
	CourseImageURL   string        `json:"course_image_url,omitempty"`
}

// Clone returns a deep copy.
func (c *Course) Clone() *Course {
	n := *c
	n.LanguagesTaught = slices.Clone(c.LanguagesTaught)
	n.Features = slices.Clone(c.Features)
	n.Tags = slices.Clone(c.Tags)
	if c.Availability != nil {
		a := *c.Availability
		a.TimeSlots = slices.Clone(c.Availability.TimeSlots)
		n.Availability = &a
	}
	return &n
}

// GetID returns the primary key.
func (c *Course) GetID() string {
	return c.ID
}

// Validate checks that the course is well-formed.
func (c *Course) Validate() error {
	if c.ID == "" {
		return errIDRequired
	}
	if c.PricePerSession < 0 {
		return fmt.Errorf("negative price %v", c.PricePerSession)
	}
	return nil
}

// Review is a student's rating of a course.
type Review struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id,omitempty"`
	StudentID string    `json:"student_id,omitempty"`
	Rating    float64   `json:"rating,omitempty"`
	Text      string    `json:"text,omitempty"`
	CreatedAt Timestamp `json:"created_at,omitzero"`
}

// Clone returns a copy.
func (r *Review) Clone() *Review {
	c := *r
	return &c
}

// GetID returns the primary key.
func (r *Review) GetID() string {
	return r.ID
}

// Validate checks that the review is well-formed.
func (r *Review) Validate() error {
	if r.ID == "" {
		return errIDRequired
	}
	if r.Rating < 0 || r.Rating > 5 {
		return fmt.Errorf("rating %v out of range", r.Rating)
	}
	return nil
}

// Session is a booked lesson.
type Session struct {
	ID          string        `json:"id"`
	CourseID    string        `json:"course_id,omitempty"`
	MentorID    string        `json:"mentor_id,omitempty"`
	StudentID   string        `json:"student_id,omitempty"`
	Status      SessionStatus `json:"status,omitempty"`
	ScheduledAt Timestamp     `json:"scheduled_at,omitzero"`
}

// Clone returns a copy.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// GetID returns the primary key.
func (s *Session) GetID() string {
	return s.ID
}

// Validate checks that the session is well-formed.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errIDRequired
	}
	switch s.Status {
	case "", SessionPending, SessionConfirmed, SessionCompleted, SessionCancelled:
	default:
		return fmt.Errorf("invalid session status %q", s.Status)
	}
	return nil
}

// Message is a chat message attached to a course.
type Message struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id,omitempty"`
	SenderID  string    `json:"sender_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt Timestamp `json:"created_at,omitzero"`
}

// Clone returns a copy.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// GetID returns the primary key.
func (m *Message) GetID() string {
	return m.ID
}

// Validate checks that the message is well-formed.
func (m *Message) Validate() error {
	if m.ID == "" {
		return errIDRequired
	}
	return nil
}

// Transaction is a signed coin movement on a user's wallet.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id,omitempty"`
	Date        Timestamp       `json:"date,omitzero"`
	Type        TransactionType `json:"type,omitempty"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// Clone returns a copy.
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}

// GetID returns the primary key.
func (t *Transaction) GetID() string {
	return t.ID
}

// Validate checks that the transaction is well-formed.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return errIDRequired
	}
	switch t.Type {
	case "", TxPurchase, TxSessionPayment, TxRefund, TxBonus:
	default:
		return fmt.Errorf("invalid transaction type %q", t.Type)
	}
	return nil
}

// MentorApplication holds the onboarding answers of a user applying to teach.
type MentorApplication struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id,omitempty" jsonschema:"description=Applicant; at most one application per user"`
	Status      ApplicationStatus `json:"status,omitempty"`
	SubmittedAt Timestamp         `json:"submittedAt,omitzero"`
	DecidedAt   Timestamp         `json:"decidedAt,omitzero"`

	FullName                string   `json:"fullName,omitempty"`
	Email                   string   `json:"email,omitempty"`
	Phone                   string   `json:"phone,omitempty"`
	DOB                     string   `json:"dob,omitempty"`
	Gender                  string   `json:"gender,omitempty"`
	City                    string   `json:"city,omitempty"`
	Languages               []string `json:"languages,omitempty"`
	Bio                     string   `json:"bio,omitempty"`
	EducationLevel          string   `json:"educationLevel,omitempty"`
	Institution             string   `json:"institution,omitempty"`
	GradYear                int      `json:"gradYear,omitempty"`
	FieldOfStudy            string   `json:"fieldOfStudy,omitempty"`
	Profession              string   `json:"profession,omitempty"`
	Experience              int      `json:"experience,omitempty"`
	TeachingExperience      string   `json:"teachingExperience,omitempty"`
	PreviousTeachingDetails string   `json:"previousTeachingDetails,omitempty"`
	Subjects                []string `json:"subjects,omitempty"`
	CustomSubjects          string   `json:"customSubjects,omitempty"`
	TeachingApproach        []string `json:"teachingApproach,omitempty"`
	TargetAudience          string   `json:"targetAudience,omitempty"`
	NDAAgree                bool     `json:"ndaAgree,omitempty"`
	DigitalSignature        string   `json:"digitalSignature,omitempty"`
}

// Clone returns a deep copy.
func (a *MentorApplication) Clone() *MentorApplication {
	c := *a
	c.Languages = slices.Clone(a.Languages)
	c.Subjects = slices.Clone(a.Subjects)
	c.TeachingApproach = slices.Clone(a.TeachingApproach)
	return &c
}

// GetID returns the primary key.
func (a *MentorApplication) GetID() string {
	return a.ID
}

// Validate checks that the application is well-formed.
func (a *MentorApplication) Validate() error {
	if a.ID == "" {
		return errIDRequired
	}
	switch a.Status {
	case "", ApplicationPending, ApplicationApproved, ApplicationRejected:
	default:
		return fmt.Errorf("invalid application status %q", a.Status)
	}
	return nil
}
