package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkrupp/voicechat/internal/domain"
)

// stdoutPath writes a download to standard output instead of a file.
const stdoutPath = "-"

var errFileExists = errors.New("file exists, use --force to overwrite")

type downloadFunc func(ctx context.Context, arg string) (*domain.Download, string, error)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		path  string
		force bool
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download uploaded files, recordings and attachments",
	}

	cmd.PersistentFlags().StringVarP(&path, "file", "f", "", `target path, "-" for stdout (default derived from the name)`)
	cmd.PersistentFlags().BoolVar(&force, "force", false, "overwrite an existing file")

	sub := func(use, short string, fetch downloadFunc) *cobra.Command {
		//nolint:exhaustruct
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				download, name, err := fetch(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				target := path
				if target == "" {
					target = name
				}

				if target == stdoutPath {
					_, err := cmd.OutOrStdout().Write(download.Data)

					return err
				}

				if err := save(target, download.Data, force); err != nil {
					return err
				}

				return a.print(notice{Message: describeDownload(target, download)})
			},
		}
	}

	cmd.AddCommand(
		sub("upload NAME", "Download a file stored under /uploads", func(ctx context.Context, arg string) (*domain.Download, string, error) {
			download, err := a.svc.DownloadUpload(ctx, arg)

			return download, filepath.Base(arg), err
		}),
		sub("audio MESSAGE_ID", "Download the recording of a message", messageDownload("audio",
			func(ctx context.Context, messageID int64) (*domain.Download, error) {
				return a.svc.DownloadAudio(ctx, messageID)
			})),
		sub("media MESSAGE_ID", "Download the attachment of a message", messageDownload("media",
			func(ctx context.Context, messageID int64) (*domain.Download, error) {
				return a.svc.DownloadMedia(ctx, messageID)
			})),
	)

	return cmd
}

// messageDownload names the file message-<id>-<kind> plus an extension
// matching the returned content type.
func messageDownload(
	kind string,
	fetch func(ctx context.Context, messageID int64) (*domain.Download, error),
) downloadFunc {
	return func(ctx context.Context, arg string) (*domain.Download, string, error) {
		messageID, err := parseID(arg)
		if err != nil {
			return nil, "", err
		}

		download, err := fetch(ctx, messageID)
		if err != nil {
			return nil, "", err
		}

		name := fmt.Sprintf("message-%d-%s", messageID, kind)
		if exts, _ := mime.ExtensionsByType(download.ContentType); len(exts) > 0 {
			name += exts[0]
		}

		return download, name, nil
	}
}

func save(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w", path, errFileExists)
	}

	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("write file: %w", err), f.Close())
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}
