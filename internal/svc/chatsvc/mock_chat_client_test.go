package chatsvc_test

import (
	"context"
	"sync"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
)

type mockCall struct {
	Op   string
	Auth string
}

type mockChatClient struct {
	m     sync.Mutex
	calls []mockCall

	login    *chatclient.LoginResponse
	register *chatclient.RegisterResponse
	users    []any
	user     map[string]any
	messages []any
	message  *chatclient.MessageResponse
	err      error
}

var _ chatclient.ChatClient = (*mockChatClient)(nil)

func (m *mockChatClient) record(op, auth string) error {
	m.m.Lock()
	defer m.m.Unlock()

	m.calls = append(m.calls, mockCall{Op: op, Auth: auth})

	return m.err
}

func (m *mockChatClient) Calls() []mockCall {
	m.m.Lock()
	defer m.m.Unlock()

	return append([]mockCall(nil), m.calls...)
}

func (m *mockChatClient) Login(_ context.Context, _, _ string) (*chatclient.LoginResponse, error) {
	if err := m.record(chatclient.OpLogin, ""); err != nil {
		return nil, err
	}

	return m.login, nil
}

func (m *mockChatClient) Register(_ context.Context, _, _, _ string, _ *domain.File) (*chatclient.RegisterResponse, error) {
	if err := m.record(chatclient.OpRegister, ""); err != nil {
		return nil, err
	}

	return m.register, nil
}

func (m *mockChatClient) GetAllUsers(_ context.Context) ([]any, error) {
	if err := m.record(chatclient.OpGetUsers, ""); err != nil {
		return nil, err
	}

	return m.users, nil
}

func (m *mockChatClient) GetUser(_ context.Context, _ int64, auth string) (map[string]any, error) {
	if err := m.record(chatclient.OpGetUser, auth); err != nil {
		return nil, err
	}

	return m.user, nil
}

func (m *mockChatClient) UpdateUser(_ context.Context, _ int64, _ chatclient.UserUpdate, auth string) (map[string]any, error) {
	if err := m.record(chatclient.OpUpdateUser, auth); err != nil {
		return nil, err
	}

	return m.user, nil
}

func (m *mockChatClient) DeleteUser(_ context.Context, _ int64, auth string) (map[string]any, error) {
	if err := m.record(chatclient.OpDeleteUser, auth); err != nil {
		return nil, err
	}

	return map[string]any{}, nil
}

func (m *mockChatClient) GetChatMessages(_ context.Context, _, _ int64, auth string) ([]any, error) {
	if err := m.record(chatclient.OpGetMessages, auth); err != nil {
		return nil, err
	}

	return m.messages, nil
}

func (m *mockChatClient) SendMessage(_ context.Context, _ chatclient.SendMessageRequest, auth string) (*chatclient.MessageResponse, error) {
	if err := m.record(chatclient.OpSendMessage, auth); err != nil {
		return nil, err
	}

	return m.message, nil
}

func (m *mockChatClient) UpdateMessage(_ context.Context, _ int64, _ chatclient.MessageUpdate, auth string) (*chatclient.MessageResponse, error) {
	if err := m.record(chatclient.OpUpdateMessage, auth); err != nil {
		return nil, err
	}

	return m.message, nil
}

func (m *mockChatClient) DeleteAudio(_ context.Context, _ int64, auth string) (*chatclient.MessageResponse, error) {
	if err := m.record(chatclient.OpDeleteAudio, auth); err != nil {
		return nil, err
	}

	return m.message, nil
}

func (m *mockChatClient) DeleteMessage(_ context.Context, _ int64, auth string) (map[string]any, error) {
	if err := m.record(chatclient.OpDeleteMessage, auth); err != nil {
		return nil, err
	}

	return map[string]any{}, nil
}

func (m *mockChatClient) DownloadUpload(_ context.Context, _ string) (*domain.Download, error) {
	return m.download()
}

func (m *mockChatClient) DownloadAudio(_ context.Context, _ int64) (*domain.Download, error) {
	return m.download()
}

func (m *mockChatClient) DownloadMedia(_ context.Context, _ int64) (*domain.Download, error) {
	return m.download()
}

func (m *mockChatClient) download() (*domain.Download, error) {
	if err := m.record(chatclient.OpDownload, ""); err != nil {
		return nil, err
	}

	return &domain.Download{Data: []byte("data"), ContentType: "audio/mp4"}, nil
}
