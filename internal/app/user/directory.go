package user

import (
	"context"
	"strings"
)

// Lister fetches every registered user.
type Lister interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Directory is the contact list of the signed-in user.
type Directory struct {
	lister Lister
	selfID string
}

// NewDirectory creates a Directory for the user identified by selfID.
func NewDirectory(lister Lister, selfID string) *Directory {
	return &Directory{lister: lister, selfID: selfID}
}

// Contacts returns every user except the signed-in one, in API order.
func (d *Directory) Contacts(ctx context.Context) ([]User, error) {
	all, err := d.lister.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	return ExcludeSelf(all, d.selfID), nil
}

// Find looks a contact up by id, falling back to a case-insensitive display name match.
func (d *Directory) Find(ctx context.Context, idOrName string) (User, bool, error) {
	contacts, err := d.Contacts(ctx)
	if err != nil {
		return User{}, false, err
	}

	for _, u := range contacts {
		if u.ID == idOrName {
			return u, true, nil
		}
	}
	for _, u := range contacts {
		if strings.EqualFold(u.Name, idOrName) {
			return u, true, nil
		}
	}

	return User{}, false, nil
}

// ExcludeSelf returns users without the entry whose ID is selfID.
func ExcludeSelf(users []User, selfID string) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.ID == selfID {
			continue
		}
		out = append(out, u)
	}
	return out
}
