package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// UserRecord is one synthetic person as supplied by the record generator.
// It is read-only once fetched; a view never merges or patches records.
type UserRecord struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	City      string `json:"city"`
	Country   string `json:"country"`
	AvatarURL string `json:"avatar_url"`
}

// LoadStatus is the lifecycle of a view's data.
type LoadStatus int

const (
	StatusPending LoadStatus = iota
	StatusReady
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// Terminal reports whether no further transition can leave s.
func (s LoadStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

func (s LoadStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Card is the presentation model of a ready view.
type Card struct {
	FullName    string `json:"full_name"`
	GenderLabel string `json:"gender_label"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Location    string `json:"location"`
	AvatarURL   string `json:"avatar_url"`
}

// ViewState is a point-in-time snapshot of one mounted view.
type ViewState struct {
	ID        string      `json:"id"`
	Status    LoadStatus  `json:"status"`
	User      *UserRecord `json:"user,omitempty"`
	MountedAt time.Time   `json:"mounted_at"`
	SettledAt *time.Time  `json:"settled_at,omitempty"`
}
