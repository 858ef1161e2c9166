package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"duochat/internal/app/session"
	"duochat/internal/app/user"
	"duochat/internal/pkg/errs"
	"duochat/internal/view"
)

// contactsCmd lists every other registered user.
var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List contacts with their online status",
	Args:  cobra.NoArgs,
	RunE:  runContacts,
}

// historyCmd prints a conversation without joining it.
var historyCmd = &cobra.Command{
	Use:   "history <contact>",
	Short: "Print the conversation with a contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runContacts(cmd *cobra.Command, _ []string) error {
	sess, client, err := signedIn()
	if err != nil {
		return err
	}
	defer client.Close()

	contacts, err := user.NewDirectory(client, sess.UID).Contacts(cmd.Context())
	if err != nil {
		return err
	}

	r := view.NewRenderer(sess.UID, nil, rt.styles, nil)
	fmt.Fprintln(cmd.OutOrStdout(), r.Contacts(contacts))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	sess, client, err := signedIn()
	if err != nil {
		return err
	}
	defer client.Close()

	peer, err := findPeer(cmd, client, sess, args[0])
	if err != nil {
		return err
	}

	msgs, err := client.ListMessages(cmd.Context(), sess.UID, peer.ID)
	if err != nil {
		return err
	}

	r := view.NewRenderer(sess.UID, names(sess, peer), rt.styles, nil)
	fmt.Fprintln(cmd.OutOrStdout(), r.Conversation(msgs))
	return nil
}

func findPeer(cmd *cobra.Command, lister user.Lister, sess *session.Session, idOrName string) (user.User, error) {
	peer, ok, err := user.NewDirectory(lister, sess.UID).Find(cmd.Context(), idOrName)
	if err != nil {
		return user.User{}, err
	}
	if !ok {
		return user.User{}, errs.NewError(errs.ErrPeerNotFound, idOrName)
	}
	return peer, nil
}

func names(sess *session.Session, peer user.User) map[string]string {
	return map[string]string{sess.UID: sess.Label(), peer.ID: peer.Name}
}
