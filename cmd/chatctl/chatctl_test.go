package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkrupp/voicechat/internal/domain"
)

func execute(t *testing.T, svc *mockChatService, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	a := newApp(strings.NewReader(stdin), &out)
	a.svc = svc

	root := newRootCmd(a)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return out.String(), errOut.String(), err
}

func strPtr(s string) *string {
	return &s
}

func TestLoginPromptsAgainAfterRejection(t *testing.T) {
	t.Parallel()

	svc := &mockChatService{
		login: func(email, password string) (domain.User, error) {
			if email != "ana@b.com" || password != "good" {
				return domain.User{}, domain.NewFailure(domain.KindHTTP, "Login", "Login failed: invalid credentials", nil)
			}

			return domain.User{ID: 2, Email: email, Username: "ana"}, nil
		},
	}

	out, errOut, err := execute(t, svc, "ana@b.com\nbad\ngood\n", "login")
	if err != nil {
		t.Fatalf("login error = %v", err)
	}

	if !strings.Contains(out, "username: ana") || !strings.Contains(out, "id: 2") {
		t.Errorf("output = %q", out)
	}

	if !strings.Contains(errOut, "invalid credentials") || strings.Count(errOut, "Password:") != 2 {
		t.Errorf("prompts = %q", errOut)
	}

	if calls := svc.Calls(); len(calls) != 2 {
		t.Errorf("calls = %v, want 2 logins", calls)
	}
}

func TestLoginGivesUpOnTransportFailure(t *testing.T) {
	t.Parallel()

	svc := &mockChatService{err: domain.NewFailure(domain.KindTransport, "Login", "Login failed: connection refused", nil)}

	_, _, err := execute(t, svc, "", "login", "-e", "ana@b.com", "-p", "secret12")
	if !domain.IsKind(err, domain.KindTransport) {
		t.Errorf("login error = %v, want transport failure", err)
	}

	if calls := svc.Calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want a single login", calls)
	}
}

func TestRegisterReadsPicture(t *testing.T) {
	t.Parallel()

	picture := filepath.Join(t.TempDir(), "me.png")
	if err := os.WriteFile(picture, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}

	svc := &mockChatService{user: domain.User{ID: 1, Email: "ana@b.com", Username: "ana"}}

	_, _, err := execute(t, svc, "secret12\n", "register", "-u", "ana", "-e", "ana@b.com", "--picture", picture)
	if err != nil {
		t.Fatalf("register error = %v", err)
	}

	got := svc.registration
	if got.Username != "ana" || got.Password != "secret12" || got.Picture == nil || got.Picture.Name != "me.png" {
		t.Errorf("registration = %+v", got)
	}
}

func TestCommandsRequiringLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "whoami", args: []string{"whoami"}},
		{name: "messages", args: []string{"messages", "2"}},
		{name: "send", args: []string{"send", "2", "--audio", "note.m4a"}},
		{name: "update-profile without id", args: []string{"update-profile", "-u", "ana"}},
		{name: "delete-account without id", args: []string{"delete-account", "--yes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockChatService{}

			if _, _, err := execute(t, svc, "", tt.args...); !errors.Is(err, errNotLoggedIn) {
				t.Errorf("error = %v, want %v", err, errNotLoggedIn)
			}

			if calls := svc.Calls(); len(calls) != 0 {
				t.Errorf("calls = %v, want none", calls)
			}
		})
	}
}

func TestUpdateProfileSendsOnlyChangedFields(t *testing.T) {
	t.Parallel()

	svc := &mockChatService{userID: 2, loggedIn: true, user: domain.User{ID: 2, Username: "ana"}}

	if _, _, err := execute(t, svc, "", "update-profile", "--username", "", "--remove-picture"); err != nil {
		t.Fatalf("update-profile error = %v", err)
	}

	update := svc.userUpdate
	if update.Username == nil || *update.Username != "" || update.Email != nil || update.Password != nil {
		t.Errorf("update = %+v", update)
	}

	if !update.RemoveProfile || update.Picture != nil {
		t.Errorf("picture update = %+v", update)
	}
}

func TestDeleteAccountAsksForConfirmation(t *testing.T) {
	t.Parallel()

	svc := &mockChatService{}

	if _, _, err := execute(t, svc, "n\n", "delete-account", "3"); !errors.Is(err, errAborted) {
		t.Errorf("error = %v, want %v", err, errAborted)
	}

	if calls := svc.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}

	out, _, err := execute(t, svc, "yes\n", "delete-account", "3")
	if err != nil || !strings.Contains(out, "Account 3 deleted") {
		t.Errorf("delete-account = %q, %v", out, err)
	}
}

func TestMessagesAsJSON(t *testing.T) {
	t.Parallel()

	svc := &mockChatService{
		userID:   1,
		loggedIn: true,
		user:     domain.User{ID: 2, Username: "bob"},
		messages: []domain.Message{{ID: 7, SenderID: 1, ReceiverID: 2, TextNote: strPtr("hola")}},
	}

	out, _, err := execute(t, svc, "", "messages", "2", "-o", "json")
	if err != nil {
		t.Fatalf("messages error = %v", err)
	}

	var got conversation
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}

	if got.Peer.Username != "bob" || len(got.Messages) != 1 || *got.Messages[0].TextNote != "hola" {
		t.Errorf("conversation = %+v", got)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audio := filepath.Join(dir, "note.m4a")

	if err := os.WriteFile(audio, []byte("audio"), 0o600); err != nil {
		t.Fatal(err)
	}

	svc := &mockChatService{userID: 1, loggedIn: true, message: domain.Message{ID: 9}}

	if _, _, err := execute(t, svc, "", "send", "2", "-a", audio, "-n", "hi"); err != nil {
		t.Fatalf("send error = %v", err)
	}

	sent := svc.sent
	if sent.SenderID != 1 || sent.ReceiverID != 2 || sent.Audio == nil || sent.Media != nil || *sent.TextNote != "hi" {
		t.Errorf("sent = %+v", sent)
	}

	if _, _, err := execute(t, svc, "", "send", "2"); err == nil {
		t.Error("send without --audio expected error")
	}
}

func TestDownloadWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	svc := &mockChatService{download: &domain.Download{Data: []byte("png data"), ContentType: "image/png"}}

	target := filepath.Join(dir, "message-4-media.png")

	out, _, err := execute(t, svc, "", "download", "media", "4", "-f", target)
	if err != nil {
		t.Fatalf("download error = %v", err)
	}

	if !strings.Contains(out, "8 B") || !strings.Contains(out, "image/png") {
		t.Errorf("output = %q", out)
	}

	data, err := os.ReadFile(target)
	if err != nil || string(data) != "png data" {
		t.Errorf("file = %q, %v", data, err)
	}

	if _, _, err := execute(t, svc, "", "download", "media", "4", "-f", target); !errors.Is(err, errFileExists) {
		t.Errorf("second download error = %v, want %v", err, errFileExists)
	}

	if _, _, err := execute(t, svc, "", "download", "media", "4", "-f", target, "--force"); err != nil {
		t.Errorf("forced download error = %v", err)
	}
}

func TestDownloadToStdout(t *testing.T) {
	t.Parallel()

	svc := &mockChatService{download: &domain.Download{Data: []byte("raw"), ContentType: "audio/mp4"}}

	out, _, err := execute(t, svc, "", "download", "audio", "4", "-f", "-")
	if err != nil || out != "raw" {
		t.Errorf("download = %q, %v", out, err)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	t.Parallel()

	svc := &mockChatService{}

	if _, _, err := execute(t, svc, "", "users", "-o", "xml"); !errors.Is(err, errUnknownFormat) {
		t.Errorf("error = %v, want %v", err, errUnknownFormat)
	}

	if calls := svc.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{arg: "7", want: 7},
		{arg: "0", wantErr: true},
		{arg: "-1", wantErr: true},
		{arg: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			t.Parallel()

			got, err := parseID(tt.arg)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("parseID(%q) = %d, %v", tt.arg, got, err)
			}
		})
	}
}
