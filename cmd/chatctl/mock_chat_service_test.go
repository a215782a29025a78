package main

import (
	"context"
	"sync"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
)

type mockChatService struct {
	m     sync.Mutex
	calls []string

	userID   int64
	loggedIn bool

	login         func(email, password string) (domain.User, error)
	registration  chatsvc.Registration
	user          domain.User
	users         []domain.User
	userUpdate    chatclient.UserUpdate
	messages      []domain.Message
	message       domain.Message
	sent          chatclient.SendMessageRequest
	messageUpdate chatclient.MessageUpdate
	download      *domain.Download
	err           error
}

var _ chatsvc.ChatService = (*mockChatService)(nil)

func (s *mockChatService) record(op string) {
	s.m.Lock()
	defer s.m.Unlock()

	s.calls = append(s.calls, op)
}

func (s *mockChatService) Calls() []string {
	s.m.Lock()
	defer s.m.Unlock()

	return append([]string(nil), s.calls...)
}

func (s *mockChatService) Login(_ context.Context, email, password string) (domain.User, error) {
	s.record("Login")

	if s.login != nil {
		return s.login(email, password)
	}

	return s.user, s.err
}

func (s *mockChatService) Register(_ context.Context, registration chatsvc.Registration) (domain.User, error) {
	s.record("Register")
	s.registration = registration

	return s.user, s.err
}

func (s *mockChatService) Logout(context.Context) error {
	s.record("Logout")

	return s.err
}

func (s *mockChatService) GetAllUsers(context.Context) ([]domain.User, error) {
	s.record("GetAllUsers")

	return s.users, s.err
}

func (s *mockChatService) GetUserProfile(context.Context, int64) (domain.User, error) {
	s.record("GetUserProfile")

	return s.user, s.err
}

func (s *mockChatService) UpdateUserProfile(_ context.Context, _ int64, update chatclient.UserUpdate) (domain.User, error) {
	s.record("UpdateUserProfile")
	s.userUpdate = update

	return s.user, s.err
}

func (s *mockChatService) DeleteAccount(context.Context, int64) error {
	s.record("DeleteAccount")

	return s.err
}

func (s *mockChatService) GetChatMessages(context.Context, int64, int64) ([]domain.Message, error) {
	s.record("GetChatMessages")

	return s.messages, s.err
}

func (s *mockChatService) SendMessage(_ context.Context, req chatclient.SendMessageRequest) (domain.Message, error) {
	s.record("SendMessage")
	s.sent = req

	return s.message, s.err
}

func (s *mockChatService) UpdateMessage(_ context.Context, _ int64, update chatclient.MessageUpdate) (domain.Message, error) {
	s.record("UpdateMessage")
	s.messageUpdate = update

	return s.message, s.err
}

func (s *mockChatService) DeleteAudio(context.Context, int64) (domain.Message, error) {
	s.record("DeleteAudio")

	return s.message, s.err
}

func (s *mockChatService) DeleteMessage(context.Context, int64) error {
	s.record("DeleteMessage")

	return s.err
}

func (s *mockChatService) DownloadUpload(context.Context, string) (*domain.Download, error) {
	s.record("DownloadUpload")

	return s.download, s.err
}

func (s *mockChatService) DownloadAudio(context.Context, int64) (*domain.Download, error) {
	s.record("DownloadAudio")

	return s.download, s.err
}

func (s *mockChatService) DownloadMedia(context.Context, int64) (*domain.Download, error) {
	s.record("DownloadMedia")

	return s.download, s.err
}

func (s *mockChatService) CurrentUserID(context.Context) (int64, bool, error) {
	return s.userID, s.loggedIn, nil
}
