package identity

import (
    "fmt"
    "time"
)

// User is a worker who has logged in at least once. ID is the upstream user id.
type User struct {
    ID          int64
    Phone       string
    CountryCode string
    FirstName   string
    LastName    string
    Nickname    string
    CreatedAt   time.Time
    LastLogin   time.Time
}

// DisplayName prefers the nickname, then the first name, then the phone number.
func (u User) DisplayName() string {
    switch {
    case u.Nickname != "":
        return u.Nickname
    case u.FirstName != "":
        return u.FirstName
    default:
        return u.FullPhone()
    }
}

// FullPhone renders the phone with its country code, e.g. "+853 66123456".
func (u User) FullPhone() string {
    return fmt.Sprintf("+%s %s", u.CountryCode, u.Phone)
}
