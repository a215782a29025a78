package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		email    string
		password string
		attempts int
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

			var flow chatsvc.SubmitFlow[domain.User]

			for attempt := 1; ; attempt++ {
				var err error

				if email == "" {
					if email, err = p.Line("Email"); err != nil {
						return err
					}
				}

				if password == "" {
					if password, err = p.Password("Password"); err != nil {
						return err
					}
				}

				user, err := flow.Submit(cmd.Context(), func(ctx context.Context) (domain.User, error) {
					return a.svc.Login(ctx, email, password)
				})
				if err == nil {
					return a.print(user)
				}

				if attempt >= attempts || !rejected(err) {
					return err
				}

				fmt.Fprintln(cmd.ErrOrStderr(), err)
				flow.ClearError()

				password = ""
			}
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email, prompted when empty")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password, prompted when empty")
	cmd.Flags().IntVar(&attempts, "attempts", 3, "password prompts before giving up")

	return cmd
}

// rejected reports whether the backend or the input checks turned the
// credentials down, as opposed to the backend being unreachable.
func rejected(err error) bool {
	return domain.IsKind(err, domain.KindValidation) || domain.IsKind(err, domain.KindHTTP)
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		registration chatsvc.Registration
		picture      string
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

			var err error

			if registration.Username == "" {
				if registration.Username, err = p.Line("Username"); err != nil {
					return err
				}
			}

			if registration.Email == "" {
				if registration.Email, err = p.Line("Email"); err != nil {
					return err
				}
			}

			if registration.Password == "" {
				if registration.Password, err = p.Password("Password"); err != nil {
					return err
				}
			}

			if picture != "" {
				if registration.Picture, err = domain.ReadFile(picture); err != nil {
					return err
				}
			}

			user, err := a.svc.Register(cmd.Context(), registration)
			if err != nil {
				return err
			}

			return a.print(user)
		},
	}

	cmd.Flags().StringVarP(&registration.Username, "username", "u", "", "user name, prompted when empty")
	cmd.Flags().StringVarP(&registration.Email, "email", "e", "", "account email, prompted when empty")
	cmd.Flags().StringVarP(&registration.Password, "password", "p", "", "account password, prompted when empty")
	cmd.Flags().StringVar(&picture, "picture", "", "profile picture to upload")

	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.svc.Logout(cmd.Context()); err != nil {
				return err
			}

			return a.print(notice{Message: "Logged out"})
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.currentUserID(cmd.Context())
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
