package chatsvc

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/infra/transport/fallback"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
	"github.com/mkrupp/voicechat/internal/svc/sessionsvc"
)

// RemoteChatService implements ChatService on a chatclient.ChatClient and a
// sessionsvc.SessionService.
type RemoteChatService struct {
	client   chatclient.ChatClient
	session  sessionsvc.SessionService
	validate *validator.Validate
	log      logging.Logger
}

var _ ChatService = (*RemoteChatService)(nil)

// NewRemoteChatService creates a new RemoteChatService.
func NewRemoteChatService(client chatclient.ChatClient, session sessionsvc.SessionService) *RemoteChatService {
	return &RemoteChatService{
		client:   client,
		session:  session,
		validate: newValidator(),
		log:      logging.GetLogger("svc.chatsvc"),
	}
}

// Login implements ChatService.Login. Fields missing from the returned user
// fall back to the submitted email, then to the name or default username.
func (s *RemoteChatService) Login(ctx context.Context, email, password string) (user domain.User, err error) {
	log := s.log.With(logging.Group("login", "email", email))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "logged in", "user_id", user.ID)
		}
	}()

	if err := validateInput(s.validate, chatclient.OpLogin, Credentials{Email: email, Password: password}); err != nil {
		return domain.User{}, err
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}

	user, err = domain.CoerceUser(resp.User)
	if err != nil {
		return domain.User{}, err
	}

	if _, ok := domain.AsString(resp.User["email"]); !ok {
		user.Email = email
	}

	if err := s.remember(ctx, chatclient.OpLogin, resp.Token, user.ID); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// Register implements ChatService.Register. Fields missing from the
// returned user fall back to the submitted username and email.
func (s *RemoteChatService) Register(ctx context.Context, registration Registration) (user domain.User, err error) {
	log := s.log.With(logging.Group("register",
		"username", registration.Username,
		"email", registration.Email,
	))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "register failed", "error", err)
		} else {
			log.DebugContext(ctx, "registered", "user_id", user.ID)
		}
	}()

	if err := validateInput(s.validate, chatclient.OpRegister, registration); err != nil {
		return domain.User{}, err
	}

	resp, err := s.client.Register(ctx, registration.Username, registration.Email, registration.Password, registration.Picture)
	if err != nil {
		return domain.User{}, err
	}

	user, err = domain.CoerceUser(resp.User)
	if err != nil {
		return domain.User{}, err
	}

	if _, ok := domain.AsString(resp.User["username"]); !ok {
		user.Username = registration.Username
	}

	if _, ok := domain.AsString(resp.User["email"]); !ok {
		user.Email = registration.Email
	}

	if err := s.remember(ctx, chatclient.OpRegister, resp.Token, user.ID); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

// Logout implements ChatService.Logout.
func (s *RemoteChatService) Logout(ctx context.Context) error {
	if err := s.session.Clear(ctx); err != nil {
		return storageFailure("Logout", err)
	}

	return nil
}

// GetAllUsers implements ChatService.GetAllUsers.
func (s *RemoteChatService) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	raw, err := s.client.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	users, errs := domain.CoerceList(raw, domain.CoerceUser)
	s.logDropped(ctx, chatclient.OpGetUsers, errs)

	return users, nil
}

// GetUserProfile implements ChatService.GetUserProfile.
func (s *RemoteChatService) GetUserProfile(ctx context.Context, userID int64) (domain.User, error) {
	auth, err := s.authorization(ctx, chatclient.OpGetUser)
	if err != nil {
		return domain.User{}, err
	}

	raw, err := s.client.GetUser(ctx, userID, auth)
	if err != nil {
		return domain.User{}, err
	}

	return domain.CoerceUser(raw)
}

// UpdateUserProfile implements ChatService.UpdateUserProfile.
func (s *RemoteChatService) UpdateUserProfile(
	ctx context.Context,
	userID int64,
	update chatclient.UserUpdate,
) (domain.User, error) {
	auth, err := s.authorization(ctx, chatclient.OpUpdateUser)
	if err != nil {
		return domain.User{}, err
	}

	raw, err := s.client.UpdateUser(ctx, userID, update, auth)
	if err != nil {
		return domain.User{}, err
	}

	return domain.CoerceUser(raw)
}

// DeleteAccount implements ChatService.DeleteAccount.
func (s *RemoteChatService) DeleteAccount(ctx context.Context, userID int64) error {
	auth, err := s.authorization(ctx, chatclient.OpDeleteUser)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteUser(ctx, userID, auth); err != nil {
		return err
	}

	if err := s.session.Clear(ctx); err != nil {
		return storageFailure(chatclient.OpDeleteUser, err)
	}

	s.log.DebugContext(ctx, "account deleted", "user_id", userID)

	return nil
}

// GetChatMessages implements ChatService.GetChatMessages.
func (s *RemoteChatService) GetChatMessages(ctx context.Context, user1ID, user2ID int64) ([]domain.Message, error) {
	auth, err := s.authorization(ctx, chatclient.OpGetMessages)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GetChatMessages(ctx, user1ID, user2ID, auth)
	if err != nil {
		return nil, err
	}

	messages, errs := domain.CoerceList(raw, domain.CoerceMessage)
	s.logDropped(ctx, chatclient.OpGetMessages, errs)

	return messages, nil
}

// SendMessage implements ChatService.SendMessage.
func (s *RemoteChatService) SendMessage(ctx context.Context, req chatclient.SendMessageRequest) (domain.Message, error) {
	auth, err := s.authorization(ctx, chatclient.OpSendMessage)
	if err != nil {
		return domain.Message{}, err
	}

	resp, err := s.client.SendMessage(ctx, req, auth)
	if err != nil {
		return domain.Message{}, err
	}

	return resp.Message, nil
}

// UpdateMessage implements ChatService.UpdateMessage.
func (s *RemoteChatService) UpdateMessage(
	ctx context.Context,
	messageID int64,
	update chatclient.MessageUpdate,
) (domain.Message, error) {
	auth, err := s.authorization(ctx, chatclient.OpUpdateMessage)
	if err != nil {
		return domain.Message{}, err
	}

	resp, err := s.client.UpdateMessage(ctx, messageID, update, auth)
	if err != nil {
		return domain.Message{}, err
	}

	return resp.Message, nil
}

// DeleteAudio implements ChatService.DeleteAudio.
func (s *RemoteChatService) DeleteAudio(ctx context.Context, messageID int64) (domain.Message, error) {
	auth, err := s.authorization(ctx, chatclient.OpDeleteAudio)
	if err != nil {
		return domain.Message{}, err
	}

	resp, err := s.client.DeleteAudio(ctx, messageID, auth)
	if err != nil {
		return domain.Message{}, err
	}

	return resp.Message, nil
}

// DeleteMessage implements ChatService.DeleteMessage.
func (s *RemoteChatService) DeleteMessage(ctx context.Context, messageID int64) error {
	auth, err := s.authorization(ctx, chatclient.OpDeleteMessage)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteMessage(ctx, messageID, auth)

	return err
}

// DownloadUpload implements ChatService.DownloadUpload.
func (s *RemoteChatService) DownloadUpload(ctx context.Context, filename string) (*domain.Download, error) {
	return s.client.DownloadUpload(ctx, filename)
}

// DownloadAudio implements ChatService.DownloadAudio.
func (s *RemoteChatService) DownloadAudio(ctx context.Context, messageID int64) (*domain.Download, error) {
	return s.client.DownloadAudio(ctx, messageID)
}

// DownloadMedia implements ChatService.DownloadMedia.
func (s *RemoteChatService) DownloadMedia(ctx context.Context, messageID int64) (*domain.Download, error) {
	return s.client.DownloadMedia(ctx, messageID)
}

// CurrentUserID implements ChatService.CurrentUserID.
func (s *RemoteChatService) CurrentUserID(ctx context.Context) (int64, bool, error) {
	userID, ok, err := s.session.CurrentUserID(ctx)
	if err != nil {
		return 0, false, storageFailure("Current user", err)
	}

	return userID, ok, nil
}

// authorization returns the Authorization header value for the stored token.
func (s *RemoteChatService) authorization(ctx context.Context, op string) (string, error) {
	token, err := s.session.Token(ctx)

	switch {
	case errors.Is(err, domain.ErrNoToken), errors.Is(err, domain.ErrTokenExpired):
		return "", domain.NewFailure(domain.KindMissingCredential, op, op+" failed: "+err.Error(), err)
	case err != nil:
		return "", storageFailure(op, err)
	}

	return fallback.BearerAuth.Format(fallback.BareToken(token)), nil
}

// remember persists the session after a successful login or registration.
// Without a token only the user ID is recorded.
func (s *RemoteChatService) remember(ctx context.Context, op string, token *string, userID int64) error {
	var err error

	switch {
	case token != nil && *token != "":
		err = s.session.Save(ctx, *token, userID)
	case userID != 0:
		err = s.session.SaveCurrentUserID(ctx, userID)
	}

	if err != nil {
		return storageFailure(op, err)
	}

	return nil
}

func (s *RemoteChatService) logDropped(ctx context.Context, op string, errs []error) {
	if len(errs) == 0 {
		return
	}

	s.log.DebugContext(ctx, "dropped malformed elements",
		"op", op,
		"count", len(errs),
		"error", errors.Join(errs...),
	)
}

func storageFailure(op string, err error) *domain.Failure {
	return domain.NewFailure(domain.KindStorage, op, op+" failed: "+err.Error(), err)
}
