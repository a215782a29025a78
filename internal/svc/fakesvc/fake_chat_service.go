package fakesvc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/repo/blob"
	"github.com/mkrupp/voicechat/internal/repo/chat"
	"github.com/mkrupp/voicechat/internal/util/mimetype"
)

var (
	ErrMissingFields      = errors.New("missing fields")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrFileNotAllowed     = errors.New("file type not allowed")
	ErrAudioRequired      = errors.New("audio file is required")
	ErrFileNotFound       = errors.New("file not found")
)

// Blob subdirectories of uploaded files.
const (
	SubdirProfiles = "profiles"
	SubdirAudios   = "audios"
	SubdirMedia    = "media"
)

// Registration is the form of a new account.
type Registration struct {
	Email    string
	Username string
	Password string
	Picture  *domain.File
}

// ProfileUpdate holds the changed fields of an account. Nil fields are kept.
type ProfileUpdate struct {
	Email         *string
	Username      *string
	Password      *string
	Picture       *domain.File
	RemovePicture bool
}

// NewMessage is a voice message to be stored.
type NewMessage struct {
	SenderID   int64
	ReceiverID int64
	TextNote   *string
	Audio      *domain.File
	Media      *domain.File
}

// MessageUpdate holds the changed parts of a message. Nil parts are kept.
type MessageUpdate struct {
	TextNote *string
	Audio    *domain.File
	Media    *domain.File
}

// FakeChatService keeps the accounts and messages of the fake chat backend.
//
// Operations taking a callerID check ownership when callerID is non-zero.
// A zero callerID means the request was not authenticated, which only
// happens with AuthModeNone.
type FakeChatService struct {
	repo     chat.Repository
	profiles blob.Repository
	audios   blob.Repository
	media    blob.Repository
	cost     int
	log      logging.Logger
}

// NewFakeChatService creates a FakeChatService with repositories from the factories.
func NewFakeChatService(
	ctx context.Context,
	repoFactory chat.RepositoryFactory,
	blobFactory blob.RepositoryFactory,
	cfg FakeConfig,
) (*FakeChatService, error) {
	repo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new chat repo: %w", err)
	}

	blobs := make(map[string]blob.Repository, 3)

	for _, subdir := range []string{SubdirProfiles, SubdirAudios, SubdirMedia} {
		if blobs[subdir], err = blobFactory(ctx, subdir); err != nil {
			return nil, errors.Join(fmt.Errorf("new blob repo %s: %w", subdir, err), repo.Close())
		}
	}

	cost := cfg.PasswordCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}

	return &FakeChatService{
		repo:     repo,
		profiles: blobs[SubdirProfiles],
		audios:   blobs[SubdirAudios],
		media:    blobs[SubdirMedia],
		cost:     cost,
		log:      logging.GetLogger("svc.fakesvc.service"),
	}, nil
}

// Register creates an account. A picture of a type the backend does not
// accept is ignored.
func (s *FakeChatService) Register(ctx context.Context, reg Registration) (user *chat.UserRecord, err error) {
	log := s.log.With(logging.Group("user", "email", reg.Email, "username", reg.Username))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "register failed", "error", err)
		} else {
			log.InfoContext(ctx, "user registered", "id", user.ID)
		}
	}()

	if reg.Email == "" || reg.Username == "" || reg.Password == "" {
		return nil, fmt.Errorf("%w: email, username, password", ErrMissingFields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	//nolint:exhaustruct
	user = &chat.UserRecord{
		Email:        reg.Email,
		Username:     reg.Username,
		PasswordHash: hash,
	}

	if reg.Picture != nil && mimetype.Allowed(reg.Picture.Name) {
		if user.Picture, err = s.store(ctx, s.profiles, reg.Picture); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.discard(ctx, s.profiles, user.Picture)

		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login checks the credentials and returns the account.
func (s *FakeChatService) Login(ctx context.Context, email, password string) (*chat.UserRecord, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email, password", ErrMissingFields)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, chat.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ListUsers returns every account.
func (s *FakeChatService) ListUsers(ctx context.Context) ([]*chat.UserRecord, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// GetUser returns one account.
func (s *FakeChatService) GetUser(ctx context.Context, id int64) (*chat.UserRecord, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// UpdateUser applies a profile update. Empty strings leave a field unchanged.
func (s *FakeChatService) UpdateUser(
	ctx context.Context,
	callerID, id int64,
	update ProfileUpdate,
) (user *chat.UserRecord, err error) {
	if callerID != 0 && callerID != id {
		return nil, ErrForbidden
	}

	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var changes chat.UserChanges

	if update.Email != nil && *update.Email != "" {
		changes.Email = update.Email
	}

	if update.Username != nil && *update.Username != "" {
		changes.Username = update.Username
	}

	if update.Password != nil && *update.Password != "" {
		if changes.PasswordHash, err = bcrypt.GenerateFromPassword([]byte(*update.Password), s.cost); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	switch {
	case update.Picture != nil:
		if !mimetype.Allowed(update.Picture.Name) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotAllowed, update.Picture.Name)
		}

		key, err := s.store(ctx, s.profiles, update.Picture)
		if err != nil {
			return nil, err
		}

		changes.Picture = &key
	case update.RemovePicture:
		changes.Picture = new(string)
	}

	user, err = s.repo.UpdateUser(ctx, id, changes)
	if err != nil {
		if changes.Picture != nil {
			s.discard(ctx, s.profiles, *changes.Picture)
		}

		return nil, fmt.Errorf("update user: %w", err)
	}

	if changes.Picture != nil {
		s.discard(ctx, s.profiles, current.Picture)
	}

	return user, nil
}

// DeleteUser removes an account, its picture and its messages.
func (s *FakeChatService) DeleteUser(ctx context.Context, callerID, id int64) error {
	if callerID != 0 && callerID != id {
		return ErrForbidden
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.discard(ctx, s.profiles, user.Picture)

	return nil
}

// SendMessage stores a message. The audio file is mandatory; a media file
// of a type the backend does not accept is ignored.
func (s *FakeChatService) SendMessage(ctx context.Context, callerID int64, msg NewMessage) (_ *chat.MessageRecord, err error) {
	if msg.SenderID == 0 || msg.ReceiverID == 0 {
		return nil, fmt.Errorf("%w: sender_id, receiver_id", ErrMissingFields)
	}

	if callerID != 0 && callerID != msg.SenderID {
		return nil, ErrForbidden
	}

	for _, id := range []int64{msg.SenderID, msg.ReceiverID} {
		if _, err := s.repo.GetUser(ctx, id); err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
	}

	if msg.Audio == nil || msg.Audio.Name == "" {
		return nil, ErrAudioRequired
	} else if !mimetype.Allowed(msg.Audio.Name) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotAllowed, msg.Audio.Name)
	}

	//nolint:exhaustruct
	record := &chat.MessageRecord{
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		TextNote:   msg.TextNote,
		AudioType:  mimetype.Media(msg.Audio.Name),
	}

	if record.Audio, err = s.store(ctx, s.audios, msg.Audio); err != nil {
		return nil, err
	}

	if msg.Media != nil && mimetype.Allowed(msg.Media.Name) {
		if record.Media, err = s.store(ctx, s.media, msg.Media); err != nil {
			s.discard(ctx, s.audios, record.Audio)

			return nil, err
		}

		record.MediaType = mimetype.Media(msg.Media.Name)
	}

	if err := s.repo.CreateMessage(ctx, record); err != nil {
		s.discard(ctx, s.audios, record.Audio)
		s.discard(ctx, s.media, record.Media)

		return nil, fmt.Errorf("create message: %w", err)
	}

	s.log.DebugContext(ctx, "message stored", logging.Group("message",
		"id", record.ID,
		"sender_id", record.SenderID,
		"receiver_id", record.ReceiverID,
	))

	return record, nil
}

// Conversation returns the messages exchanged by two users, oldest first.
func (s *FakeChatService) Conversation(ctx context.Context, user1ID, user2ID int64) ([]*chat.MessageRecord, error) {
	messages, err := s.repo.ListConversation(ctx, user1ID, user2ID)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}

	return messages, nil
}

func (s *FakeChatService) ownedMessage(ctx context.Context, callerID, id int64, receiverAllowed bool) (*chat.MessageRecord, error) {
	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	if callerID != 0 && callerID != msg.SenderID && (!receiverAllowed || callerID != msg.ReceiverID) {
		return nil, ErrForbidden
	}

	return msg, nil
}

// UpdateMessage edits a message of the caller. New files replace old ones.
func (s *FakeChatService) UpdateMessage(
	ctx context.Context,
	callerID, id int64,
	update MessageUpdate,
) (_ *chat.MessageRecord, err error) {
	msg, err := s.ownedMessage(ctx, callerID, id, false)
	if err != nil {
		return nil, err
	}

	changes := chat.MessageChanges{TextNote: update.TextNote} //nolint:exhaustruct

	for _, part := range []struct {
		file    *domain.File
		repo    blob.Repository
		key     **string
		ctype   *string
		current string
	}{
		{update.Audio, s.audios, &changes.Audio, &changes.AudioType, msg.Audio},
		{update.Media, s.media, &changes.Media, &changes.MediaType, msg.Media},
	} {
		if part.file == nil {
			continue
		}

		if !mimetype.Allowed(part.file.Name) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotAllowed, part.file.Name)
		}

		key, storeErr := s.store(ctx, part.repo, part.file)
		if storeErr != nil {
			return nil, storeErr
		}

		defer func(current string) {
			if err == nil {
				s.discard(ctx, part.repo, current)
			} else {
				s.discard(ctx, part.repo, key)
			}
		}(part.current)

		*part.key = &key
		*part.ctype = mimetype.Media(part.file.Name)
	}

	updated, err := s.repo.UpdateMessage(ctx, id, changes)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	return updated, nil
}

// DeleteAudio removes the recording of a message of the caller.
func (s *FakeChatService) DeleteAudio(ctx context.Context, callerID, id int64) (*chat.MessageRecord, error) {
	msg, err := s.ownedMessage(ctx, callerID, id, false)
	if err != nil {
		return nil, err
	}

	if msg.Audio == "" {
		return nil, ErrFileNotFound
	}

	//nolint:exhaustruct
	updated, err := s.repo.UpdateMessage(ctx, id, chat.MessageChanges{Audio: new(string)})
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	s.discard(ctx, s.audios, msg.Audio)

	return updated, nil
}

// DeleteMessage removes a message the caller sent or received, with its files.
func (s *FakeChatService) DeleteMessage(ctx context.Context, callerID, id int64) error {
	msg, err := s.ownedMessage(ctx, callerID, id, true)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	s.discard(ctx, s.audios, msg.Audio)
	s.discard(ctx, s.media, msg.Media)

	return nil
}

// Picture returns an uploaded profile picture by its file name.
func (s *FakeChatService) Picture(ctx context.Context, name string) (*domain.Download, error) {
	return s.fetch(ctx, s.profiles, name, mimetype.Picture(name))
}

// Audio returns the recording of a message.
func (s *FakeChatService) Audio(ctx context.Context, id int64) (*domain.Download, error) {
	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	return s.fetch(ctx, s.audios, msg.Audio, msg.AudioType)
}

// Media returns the attachment of a message.
func (s *FakeChatService) Media(ctx context.Context, id int64) (*domain.Download, error) {
	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	return s.fetch(ctx, s.media, msg.Media, msg.MediaType)
}

// Close releases the chat repository.
func (s *FakeChatService) Close() error {
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close chat repo: %w", err)
	}

	return nil
}

func (s *FakeChatService) fetch(ctx context.Context, repo blob.Repository, key, contentType string) (*domain.Download, error) {
	if key == "" {
		return nil, ErrFileNotFound
	}

	data, err := repo.Fetch(ctx, key)
	if errors.Is(err, blob.ErrBlobNotFound) || errors.Is(err, blob.ErrInvalidKey) {
		return nil, errors.Join(ErrFileNotFound, err)
	} else if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	if contentType == "" {
		contentType = mimetype.OctetStream
	}

	return &domain.Download{Data: data, ContentType: contentType}, nil
}

// store saves an upload under a unique key ending in its sanitized name.
func (s *FakeChatService) store(ctx context.Context, repo blob.Repository, file *domain.File) (string, error) {
	key := uuid.NewString() + "_" + SafeName(file.Name)

	if err := repo.Store(ctx, key, file.Data); err != nil {
		return "", fmt.Errorf("store %s: %w", file.Name, err)
	}

	return key, nil
}

// discard deletes a stored file, logging failures.
func (s *FakeChatService) discard(ctx context.Context, repo blob.Repository, key string) {
	if key == "" {
		return
	}

	if err := repo.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrBlobNotFound) {
		s.log.WarnContext(ctx, "delete file failed", "key", key, "error", err)
	}
}

// SafeName reduces a client supplied file name to its base name made of
// ASCII letters, digits, dots, dashes and underscores.
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)

	safe = strings.TrimLeft(safe, ".")
	if safe == "" {
		return "file"
	}

	return safe
}
