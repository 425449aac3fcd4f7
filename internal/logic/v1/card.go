package v1

import (
	"unicode/utf8"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// GenderLabel uppercases the first character of gender and leaves the rest as is.
func GenderLabel(gender string) string {
	if gender == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(gender)
	return upper.String(gender[:size]) + gender[size:]
}

// NewCard maps a record onto what the card displays. Fields are copied
// verbatim apart from the gender label.
func NewCard(u domain.UserRecord) domain.Card {
	return domain.Card{
		FullName:    u.FirstName + " " + u.LastName,
		GenderLabel: GenderLabel(u.Gender),
		Phone:       u.Phone,
		Email:       u.Email,
		Location:    u.City + ", " + u.Country,
		AvatarURL:   u.AvatarURL,
	}
}
