package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleProctor UserRole = "proctor"
	RoleAdmin   UserRole = "admin"
)

// User is the identity as seen by this service. It is never persisted here;
// Casdoor owns the record and class/semester/department come from its properties.
type User struct {
	ID         string   `json:"id"`
	FullName   string   `json:"full_name"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	AvatarURL  *string  `json:"avatar_url,omitempty"`
	Class      string   `json:"class,omitempty"`
	Semester   string   `json:"semester,omitempty"`
	Department string   `json:"department,omitempty"`
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RosterEntry is the minimal student view used by analytics.
type RosterEntry struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Email       string `json:"email,omitempty"`
}
