package models

import "time"

// Event sources.
const (
	EventSourceCommunity  = "community"
	EventSourceDiscovered = "discovered"
)

// Challenge is a civic problem statement founders can rally around.
type Challenge struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	Name           string `json:"name"`
	ChallengeCount int    `json:"challenge_count"`
}

// MeetingDetails is attached to events that happen online.
type MeetingDetails struct {
	Platform string `json:"platform"`
	JoinURL  string `json:"join_url"`
}

type Event struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      *time.Time      `json:"ends_at,omitempty"`
	Location    string          `json:"location"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	URL         string          `json:"url"`
	Category    string          `json:"category"`
	Source      string          `json:"source"`
	Organizer   string          `json:"organizer"`
	Meeting     *MeetingDetails `json:"meeting,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Stats struct {
	Founders       int `json:"founders"`
	Challenges     int `json:"challenges"`
	Events         int `json:"events"`
	UpcomingEvents int `json:"upcoming_events"`
}

// Bounds is a map viewport. West > East means the box crosses the antimeridian.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// CrossesAntimeridian reports whether the box wraps past 180°.
func (b Bounds) CrossesAntimeridian() bool {
	return b.West > b.East
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lng float64) bool {
	if lat < b.South || lat > b.North {
		return false
	}
	if b.CrossesAntimeridian() {
		return lng >= b.West || lng <= b.East
	}
	return lng >= b.West && lng <= b.East
}

// EventFilter narrows event listings.
type EventFilter struct {
	Limit    int
	Category string
	Upcoming bool
	Since    *time.Time
}
