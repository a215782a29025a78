package fakesvc_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/repo/kv"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
	. "github.com/mkrupp/voicechat/internal/svc/fakesvc"
	"github.com/mkrupp/voicechat/internal/svc/imagesvc"
	"github.com/mkrupp/voicechat/internal/svc/sessionsvc"
)

func newChatService(t *testing.T, srv *httptest.Server) *chatsvc.RemoteChatService {
	t.Helper()

	client, err := chatclient.NewHTTPClient(
		chatclient.HTTPClientConfig{Picture: imagesvc.ImageConfig{Interpolator: "catmullrom"}},
		newDoer(srv),
		nil,
	)
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	session, err := sessionsvc.NewKVSessionService(kv.MemoryRepositoryFactory())
	if err != nil {
		t.Fatalf("NewKVSessionService() error = %v", err)
	}

	t.Cleanup(func() { _ = session.Close() })

	return chatsvc.NewRemoteChatService(client, session)
}

func strPtr(s string) *string {
	return &s
}

func TestClientAgainstFakeBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.UserUpdateMethods = "POST"
	cfg.DirectDelete = false

	ht, srv := newFakeServer(t, cfg)
	svc := newChatService(t, srv)
	ctx := context.Background()

	bob, err := svc.Register(ctx, chatsvc.Registration{Username: "bob", Email: "bob@b.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("Register(bob) error = %v", err)
	}

	ana, err := svc.Register(ctx, chatsvc.Registration{
		Username: "ana",
		Email:    "ana@b.com",
		Password: "secret12",
		Picture:  domain.NewFile("ana.gif", []byte("GIF89a")),
	})
	if err != nil {
		t.Fatalf("Register(ana) error = %v", err)
	}

	if ana.ID != 2 || ana.ProfilePictureURL == nil || !strings.HasSuffix(*ana.ProfilePictureURL, "_ana.gif") {
		t.Errorf("Register(ana) = %+v", ana)
	}

	if id, ok, _ := svc.CurrentUserID(ctx); !ok || id != ana.ID {
		t.Errorf("CurrentUserID() = %d, %t, want %d", id, ok, ana.ID)
	}

	users, err := svc.GetAllUsers(ctx)
	if err != nil || len(users) != 2 || users[0].Username != "bob" {
		t.Fatalf("GetAllUsers() = %+v, %v", users, err)
	}

	updated, err := svc.UpdateUserProfile(ctx, ana.ID, chatclient.UserUpdate{Username: strPtr("ana maria"), RemoveProfile: true})
	if err != nil {
		t.Fatalf("UpdateUserProfile() error = %v", err)
	}

	if updated.Username != "ana maria" || updated.ProfilePictureURL != nil {
		t.Errorf("UpdateUserProfile() = %+v", updated)
	}

	sent, err := svc.SendMessage(ctx, chatclient.SendMessageRequest{
		SenderID:   ana.ID,
		ReceiverID: bob.ID,
		Audio:      domain.NewFile("hola.m4a", []byte("audio")),
		Media:      domain.NewFile("foto.png", []byte("picture")),
		TextNote:   strPtr("hola"),
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if sent.ID != 1 || sent.AudioURL == nil || sent.MediaURL == nil || sent.Timestamp == nil {
		t.Errorf("SendMessage() = %+v", sent)
	}

	audio, err := svc.DownloadAudio(ctx, sent.ID)
	if err != nil || string(audio.Data) != "audio" || audio.ContentType != "audio/mp4" {
		t.Errorf("DownloadAudio() = %+v, %v", audio, err)
	}

	media, err := svc.DownloadMedia(ctx, sent.ID)
	if err != nil || string(media.Data) != "picture" || media.ContentType != "image/png" {
		t.Errorf("DownloadMedia() = %+v, %v", media, err)
	}

	edited, err := svc.UpdateMessage(ctx, sent.ID, chatclient.MessageUpdate{TextNote: strPtr("adiós")})
	if err != nil || edited.TextNote == nil || *edited.TextNote != "adiós" {
		t.Errorf("UpdateMessage() = %+v, %v", edited, err)
	}

	withoutAudio, err := svc.DeleteAudio(ctx, sent.ID)
	if err != nil || withoutAudio.AudioURL != nil || withoutAudio.MediaURL == nil {
		t.Errorf("DeleteAudio() = %+v, %v", withoutAudio, err)
	}

	if _, err := svc.DownloadAudio(ctx, sent.ID); !domain.IsKind(err, domain.KindHTTP) {
		t.Errorf("DownloadAudio() after delete error = %v, want an HTTP failure", err)
	}

	messages, err := svc.GetChatMessages(ctx, bob.ID, ana.ID)
	if err != nil || len(messages) != 1 || messages[0].ID != sent.ID {
		t.Fatalf("GetChatMessages() = %+v, %v", messages, err)
	}

	if err := svc.DeleteMessage(ctx, sent.ID); err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}

	if messages, err := svc.GetChatMessages(ctx, ana.ID, bob.ID); err != nil || len(messages) != 0 {
		t.Errorf("GetChatMessages() after delete = %+v, %v", messages, err)
	}

	if err := svc.DeleteAccount(ctx, ana.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}

	before := ht.Requests()

	_, err = svc.GetUserProfile(ctx, bob.ID)
	if !domain.IsKind(err, domain.KindMissingCredential) {
		t.Errorf("GetUserProfile() after delete error = %v, want a missing credential failure", err)
	}

	if ht.Requests() != before {
		t.Error("a request was sent without credentials")
	}
}

func TestClientFallsBackToBareTokens(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AuthMode = AuthModeBare

	ht, srv := newFakeServer(t, cfg)
	svc := newChatService(t, srv)
	ctx := context.Background()

	ana, err := svc.Register(ctx, chatsvc.Registration{Username: "ana", Email: "ana@b.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	before := ht.Requests()

	if _, err := svc.GetUserProfile(ctx, ana.ID); err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}

	if got := ht.Requests() - before; got != 2 {
		t.Errorf("requests = %d, want a Bearer attempt and a bare one", got)
	}
}

func TestClientReportsSanitizedFailures(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.UserUpdateMethods = "PUT"

	_, srv := newFakeServer(t, cfg)
	svc := newChatService(t, srv)
	ctx := context.Background()

	ana, err := svc.Register(ctx, chatsvc.Registration{Username: "ana", Email: "ana@b.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := svc.UpdateUserProfile(ctx, ana.ID, chatclient.UserUpdate{Email: strPtr("ana@b.com")}); err != nil {
		t.Fatalf("UpdateUserProfile() error = %v", err)
	}

	_, err = svc.Login(ctx, "ana@b.com", "wrongpass")

	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Status != 401 {
		t.Fatalf("Login() error = %v, want a 401 failure", err)
	}

	if strings.ContainsAny(failure.Error(), "<>") {
		t.Errorf("failure message is not sanitized: %q", failure.Error())
	}

	_, err = svc.SendMessage(ctx, chatclient.SendMessageRequest{SenderID: ana.ID, ReceiverID: 99, Audio: domain.NewFile("a.m4a", nil)})
	if !errors.As(err, &failure) || failure.Status != 404 || !strings.Contains(failure.Error(), "user not found") {
		t.Errorf("SendMessage() error = %v, want a 404 failure", err)
	}
}
