package domain

import "time"

// Article is a saved page together with the comprehension question generated
// for it. Answer holds the expected answer; IsRead flips once the owner
// answers the question correctly.
type Article struct {
	ID              string
	UserID          string
	URL             string
	Title           string
	Question        string
	Answer          string
	IsRead          bool
	ContentLocation string
	CreatedAt       time.Time
}
