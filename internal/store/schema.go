package store

// Collection names. They are also the fixture keys and the file names.
const (
	CollectionUsers              = "users"
	CollectionCourses            = "courses"
	CollectionReviews            = "reviews"
	CollectionSessions           = "sessions"
	CollectionMessages           = "messages"
	CollectionTransactions       = "transactions"
	CollectionMentorApplications = "mentorApplications"
)

// Index names shared by several collections.
const (
	IndexUserID    = "user_id"
	IndexCourseID  = "course_id"
	IndexMentorID  = "mentor_id"
	IndexStatus    = "status"
	IndexCreatedAt = "created_at"
)

var userIndexes = []indexDef[*User]{
	uniqueField("email", func(u *User) string { return u.Email }),
	uniqueField("username", func(u *User) string { return u.Username }),
	field("role", func(u *User) string { return string(u.Role) }),
	field("instructor_type", func(u *User) string { return u.InstructorType }),
}

var courseIndexes = []indexDef[*Course]{
	field(IndexMentorID, func(c *Course) string { return c.MentorID }),
	field("subject", func(c *Course) string { return c.Subject }),
	field("sub_category", func(c *Course) string { return c.SubCategory }),
	field("difficulty_level", func(c *Course) string { return c.DifficultyLevel }),
	field("price_per_session", func(c *Course) string { return IndexKey(c.PricePerSession) }),
	field("average_rating", func(c *Course) string { return IndexKey(c.AverageRating) }),
	timeField(IndexCreatedAt, func(c *Course) Timestamp { return c.CreatedAt }),
	multiField("languages_taught", func(c *Course) []string { return c.LanguagesTaught }),
	multiField("features", func(c *Course) []string { return c.Features }),
	multiField("tags", func(c *Course) []string { return c.Tags }),
}

var reviewIndexes = []indexDef[*Review]{
	field(IndexCourseID, func(r *Review) string { return r.CourseID }),
	field("student_id", func(r *Review) string { return r.StudentID }),
}

var sessionIndexes = []indexDef[*Session]{
	field(IndexCourseID, func(s *Session) string { return s.CourseID }),
	field(IndexMentorID, func(s *Session) string { return s.MentorID }),
	field("student_id", func(s *Session) string { return s.StudentID }),
	field(IndexStatus, func(s *Session) string { return string(s.Status) }),
}

var messageIndexes = []indexDef[*Message]{
	field(IndexCourseID, func(m *Message) string { return m.CourseID }),
	field("sender_id", func(m *Message) string { return m.SenderID }),
	timeField(IndexCreatedAt, func(m *Message) Timestamp { return m.CreatedAt }),
}

var transactionIndexes = []indexDef[*Transaction]{
	field(IndexUserID, func(t *Transaction) string { return t.UserID }),
	timeField("date", func(t *Transaction) Timestamp { return t.Date }),
	field("type", func(t *Transaction) string { return string(t.Type) }),
}

var applicationIndexes = []indexDef[*MentorApplication]{
	uniqueField(IndexUserID, func(a *MentorApplication) string { return a.UserID }),
	field(IndexStatus, func(a *MentorApplication) string { return string(a.Status) }),
}
