package api

import "time"

// User is an account that can authenticate and record time. The password
// hash never leaves the process.
type User struct {
	ID           int64     `json:"-"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	SiteAdmin    bool      `json:"site_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Project is a body of work time is recorded against. A project is
// addressable by any of its slugs, which are unique across all projects.
type Project struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	Slugs     []string  `json:"slugs"`
	URI       string    `json:"uri,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity categorizes what kind of work a time entry covers.
type Activity struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeEntry records a duration of work by a user against a project and one
// or more activities. DateWorked uses the YYYY-MM-DD form.
type TimeEntry struct {
	ID         int64     `json:"id"`
	Duration   int       `json:"duration"`
	User       string    `json:"user"`
	Project    string    `json:"project"`
	Activities []string  `json:"activities"`
	Notes      string    `json:"notes,omitempty"`
	IssueURI   string    `json:"issue_uri,omitempty"`
	DateWorked string    `json:"date_worked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProjectSummary is one row of the aggregated times report: total recorded
// duration and entry count for a project.
type ProjectSummary struct {
	Project  string `json:"project"`
	Duration int    `json:"duration"`
	Entries  int    `json:"entries"`
}

// DateFormat is the wire format for worked dates.
const DateFormat = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
