package domain

// User is read-mostly reference data for the dispatch core. Friends and
// blocked lists are mutated elsewhere; the core only consults them.
type User struct {
	ID       string   `db:"id"`
	Email    string   `db:"email"`
	FullName string   `db:"full_name"`
	Friends  []string `db:"friends"`
	Blocked  []string `db:"blocked"`
}

// HasBlocked reports whether u has put other on their block list.
func (u *User) HasBlocked(other string) bool {
	for _, id := range u.Blocked {
		if id == other {
			return true
		}
	}
	return false
}
