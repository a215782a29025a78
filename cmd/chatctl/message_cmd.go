package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
)

func newMessagesCmd(a *app) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "messages PEER_ID",
		Short: "Show the conversation with another user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerID, err := parseID(args[0])
			if err != nil {
				return err
			}

			userID, err := a.currentUserID(cmd.Context())
			if err != nil {
				return err
			}

			peer := chatsvc.Async(cmd.Context(), func(ctx context.Context) (domain.User, error) {
				return a.svc.GetUserProfile(ctx, peerID)
			})

			messages := chatsvc.Async(cmd.Context(), func(ctx context.Context) ([]domain.Message, error) {
				return a.svc.GetChatMessages(ctx, userID, peerID)
			})

			peerResult, messagesResult := <-peer, <-messages

			if err := peerResult.Err; err != nil {
				return err
			}

			if err := messagesResult.Err; err != nil {
				return err
			}

			return a.print(conversation{Peer: peerResult.Value, Messages: messagesResult.Value})
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	var (
		audio string
		media string
		note  string
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "send RECEIVER_ID",
		Short: "Send a voice message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiverID, err := parseID(args[0])
			if err != nil {
				return err
			}

			senderID, err := a.currentUserID(cmd.Context())
			if err != nil {
				return err
			}

			//nolint:exhaustruct
			req := chatclient.SendMessageRequest{
				SenderID:   senderID,
				ReceiverID: receiverID,
			}

			if req.Audio, err = domain.ReadFile(audio); err != nil {
				return err
			}

			if media != "" {
				if req.Media, err = domain.ReadFile(media); err != nil {
					return err
				}
			}

			if cmd.Flags().Changed("note") {
				req.TextNote = &note
			}

			message, err := a.svc.SendMessage(cmd.Context(), req)
			if err != nil {
				return err
			}

			return a.print(message)
		},
	}

	cmd.Flags().StringVarP(&audio, "audio", "a", "", "voice recording to send")
	cmd.Flags().StringVarP(&media, "media", "m", "", "picture or video to attach")
	cmd.Flags().StringVarP(&note, "note", "n", "", "text note")
	_ = cmd.MarkFlagRequired("audio")

	return cmd
}

func newEditMessageCmd(a *app) *cobra.Command {
	var (
		audio string
		media string
		note  string
	)

	//nolint:exhaustruct
	cmd := &cobra.Command{
		Use:   "edit-message ID",
		Short: "Change the note, recording or attachment of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, err := parseID(args[0])
			if err != nil {
				return err
			}

			var update chatclient.MessageUpdate

			if cmd.Flags().Changed("note") {
				update.TextNote = &note
			}

			if audio != "" {
				if update.Audio, err = domain.ReadFile(audio); err != nil {
					return err
				}
			}

			if media != "" {
				if update.Media, err = domain.ReadFile(media); err != nil {
					return err
				}
			}

			message, err := a.svc.UpdateMessage(cmd.Context(), messageID, update)
			if err != nil {
				return err
			}

			return a.print(message)
		},
	}

	cmd.Flags().StringVarP(&audio, "audio", "a", "", "replacement recording")
	cmd.Flags().StringVarP(&media, "media", "m", "", "replacement attachment")
	cmd.Flags().StringVarP(&note, "note", "n", "", "new text note")

	return cmd
}

func newDeleteAudioCmd(a *app) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "delete-audio ID",
		Short: "Remove the recording of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, err := parseID(args[0])
			if err != nil {
				return err
			}

			message, err := a.svc.DeleteAudio(cmd.Context(), messageID)
			if err != nil {
				return err
			}

			return a.print(message)
		},
	}
}

func newDeleteMessageCmd(a *app) *cobra.Command {
	//nolint:exhaustruct
	return &cobra.Command{
		Use:   "delete-message ID",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := a.svc.DeleteMessage(cmd.Context(), messageID); err != nil {
				return err
			}

			return a.print(notice{Message: fmt.Sprintf("Message %d deleted", messageID)})
		},
	}
}
