/*
Package user contains the identity types shared by the chat client.

It defines a chat participant (User) and the contact directory shown in the
sidebar, which lists every other registered user with an online flag.
*/
package user

// User is one registered participant as returned by the chat API.
type User struct {
	// ID is the unique identifier assigned by the API.
	ID string `json:"uid"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is only present for the signed-in user.
	Email string `json:"email,omitempty"`

	// Online reports whether the API considers the user connected.
	Online bool `json:"online"`
}

// Initial returns the upper-cased first letter of the display name, used as an avatar.
func (u User) Initial() string {
	for _, r := range u.Name {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		return string(r)
	}
	return "?"
}
