package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	users []User
	err   error
}

func (s staticLister) ListUsers(context.Context) ([]User, error) {
	return s.users, s.err
}

func TestDirectoryContactsExcludesSelf(t *testing.T) {
	d := NewDirectory(staticLister{users: []User{
		{ID: "a", Name: "ada"},
		{ID: "b", Name: "bob", Online: true},
		{ID: "c", Name: "carol"},
	}}, "a")

	contacts, err := d.Contacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "b", contacts[0].ID)
	assert.True(t, contacts[0].Online)
	assert.Equal(t, "c", contacts[1].ID)
}

func TestDirectoryFind(t *testing.T) {
	d := NewDirectory(staticLister{users: []User{{ID: "a"}, {ID: "b", Name: "Bob"}}}, "a")

	u, ok, err := d.Find(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", u.ID)

	_, ok, err = d.Find(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok, "self is not a contact")
}

func TestDirectoryError(t *testing.T) {
	d := NewDirectory(staticLister{err: errors.New("down")}, "a")
	_, err := d.Contacts(context.Background())
	assert.Error(t, err)
}

func TestInitial(t *testing.T) {
	assert.Equal(t, "B", User{Name: "bob"}.Initial())
	assert.Equal(t, "?", User{}.Initial())
}
