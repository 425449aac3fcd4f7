package randomuser

import "github.com/duynhne/profile-card-service/internal/core/domain"

// envelope is the subset of the API response the service consumes.
// The API answers failures with {"error": "..."} and a 200 or 5xx status.
type envelope struct {
	Results []result `json:"results"`
	Info    struct {
		Seed    string `json:"seed"`
		Results int    `json:"results"`
		Page    int    `json:"page"`
		Version string `json:"version"`
	} `json:"info"`
	Error string `json:"error"`
}

type result struct {
	Gender string `json:"gender"`
	Name   struct {
		Title string `json:"title"`
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Location struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"location"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Picture struct {
		Large     string `json:"large"`
		Medium    string `json:"medium"`
		Thumbnail string `json:"thumbnail"`
	} `json:"picture"`
}

func (r result) toDomain() domain.UserRecord {
	return domain.UserRecord{
		FirstName: r.Name.First,
		LastName:  r.Name.Last,
		Gender:    r.Gender,
		Phone:     r.Phone,
		Email:     r.Email,
		City:      r.Location.City,
		Country:   r.Location.Country,
		AvatarURL: r.Picture.Large,
	}
}
