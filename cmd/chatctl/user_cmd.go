package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
)

var errAborted = errors.New("aborted")

func newUsersCmd(a *app) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "users",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.svc.GetAllUsers(cmd.Context())
			if err != nil {
				return err
			}

			return a.print(users)
		},
	}
}

func newUserCmd(a *app) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "user ID",
		Short: "Show a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}

			user, err := a.svc.GetUserProfile(cmd.Context(), userID)
			if err != nil {
				return err
			}

			return a.print(user)
		},
	}
}

// targetUser returns the user named by the optional argument, defaulting to
// the logged in user.
func (a *app) targetUser(cmd *cobra.Command, args []string) (int64, error) {
	if len(args) > 0 {
		return parseID(args[0])
	}

	return a.currentUserID(cmd.Context())
}

func newUpdateProfileCmd(a *app) *cobra.Command {
	var (
		username      string
		email         string
		password      string
		picture       string
		removePicture bool
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "update-profile [ID]",
		Short: "Change the profile of a user, by default the logged in one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.targetUser(cmd, args)
			if err != nil {
				return err
			}

			//nolint:exhaustruct
			update := chatclient.UserUpdate{RemoveProfile: removePicture}

			if cmd.Flags().Changed("username") {
				update.Username = &username
			}

			if cmd.Flags().Changed("email") {
				update.Email = &email
			}

			if cmd.Flags().Changed("password") {
				update.Password = &password
			}

			if picture != "" {
				if update.Picture, err = domain.ReadFile(picture); err != nil {
					return err
				}
			}

			user, err := a.svc.UpdateUserProfile(cmd.Context(), userID, update)
			if err != nil {
				return err
			}

			return a.print(user)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "new user name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "new email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password")
	cmd.Flags().StringVar(&picture, "picture", "", "new profile picture")
	cmd.Flags().BoolVar(&removePicture, "remove-picture", false, "remove the profile picture")
	cmd.MarkFlagsMutuallyExclusive("picture", "remove-picture")

	return cmd
}

func newDeleteAccountCmd(a *app) *cobra.Command {
	var yes bool

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "delete-account [ID]",
		Short: "Delete an account, by default the logged in one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.targetUser(cmd, args)
			if err != nil {
				return err
			}

			if !yes {
				ok, err := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).
					Confirm(fmt.Sprintf("Delete account %d", userID))
				if err != nil {
					return err
				}

				if !ok {
					return errAborted
				}
			}

			if err := a.svc.DeleteAccount(cmd.Context(), userID); err != nil {
				return err
			}

			return a.print(notice{Message: fmt.Sprintf("Account %d deleted", userID)})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}
