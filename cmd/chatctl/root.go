package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	errNotLoggedIn = errors.New("not logged in, run chatctl login first")
	errInvalidID   = errors.New("invalid id")
)

func newRootCmd(a *app) *cobra.Command {
	var showStats bool

	//nolint:exhaustruct
	root := &cobra.Command{
		Use:   "chatctl",
		Short: "Command line client for the voice chat backend",
		Long: `chatctl talks to a voice chat REST backend. It keeps the session
token between invocations and retries every call across the request
variants the backend is known to accept.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(a.format); err != nil {
				return err
			}

			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if showStats {
				if err := a.printStats(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			return a.close()
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(a.in)
	root.SetOut(a.out)

	root.PersistentFlags().StringVarP(&a.format, "output", "o", formatYAML, "output format: yaml or json")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level, including every fallback attempt")
	root.PersistentFlags().BoolVar(&showStats, "stats", false, "print request attempt counters to stderr after the command")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newUsersCmd(a),
		newUserCmd(a),
		newUpdateProfileCmd(a),
		newDeleteAccountCmd(a),
		newMessagesCmd(a),
		newSendCmd(a),
		newEditMessageCmd(a),
		newDeleteAudioCmd(a),
		newDeleteMessageCmd(a),
		newDownloadCmd(a),
	)

	return root
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, arg)
	}

	return id, nil
}
