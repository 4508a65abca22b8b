package domain

// DefaultLang is the locale used when none has been persisted
const DefaultLang = "en"

// Collection is the entire persisted ledger state, read and written as one unit
type Collection struct {
	Users       []User `json:"users"`       // All users
	CurrentUser *uint  `json:"currentUser"` // Session pointer, nil when logged out
	UserLang    string `json:"userLang"`    // Locale preference

	// Highest user id present when the collection was read. Not persisted.
	HighWater uint `json:"-"`
}

// FindUser returns a pointer into c.Users for the given id, or nil
func (c *Collection) FindUser(id uint) *User {
	for i := range c.Users {
		if c.Users[i].ID == id {
			return &c.Users[i]
		}
	}
	return nil
}

// MaxID returns the highest user id in users
func MaxID(users []User) uint {
	var max uint
	for _, u := range users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max
}
