package sessionsvc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/repo/kv"
)

// ErrEmptyToken is returned when saving an empty token.
var ErrEmptyToken = errors.New("empty token")

// KVSessionService implements SessionService on a key-value repository.
type KVSessionService struct {
	mu   sync.RWMutex
	repo kv.Repository
	log  logging.Logger
	now  func() time.Time
}

var _ SessionService = (*KVSessionService)(nil)

// NewKVSessionService creates a new KVSessionService with a repository from the given factory.
func NewKVSessionService(repoFactory kv.RepositoryFactory) (*KVSessionService, error) {
	repo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new kv repo: %w", err)
	}

	return &KVSessionService{
		repo: repo,
		log:  logging.GetLogger("svc.sessionsvc"),
		now:  time.Now,
	}, nil
}

// WithClock replaces the clock used for token expiry checks.
func (s *KVSessionService) WithClock(now func() time.Time) *KVSessionService {
	s.now = now

	return s
}

// Token implements SessionService.Token.
func (s *KVSessionService) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok, err := s.repo.Get(ctx, KeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}

	if !ok || token == "" {
		return "", domain.ErrNoToken
	}

	if err := CheckToken(token, s.now()); err != nil {
		s.log.DebugContext(ctx, "stored token expired", logging.Secret("token", token))

		return "", err
	}

	return token, nil
}

// SaveToken implements SessionService.SaveToken.
func (s *KVSessionService) SaveToken(ctx context.Context, token string) error {
	return s.put(ctx, token, 0, false)
}

// CurrentUserID implements SessionService.CurrentUserID.
func (s *KVSessionService) CurrentUserID(ctx context.Context) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok, err := s.repo.Get(ctx, KeyCurrentUserID)
	if err != nil {
		return 0, false, fmt.Errorf("get current user id: %w", err)
	}

	if !ok {
		return 0, false, nil
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse current user id: %w", err)
	}

	return userID, true, nil
}

// SaveCurrentUserID implements SessionService.SaveCurrentUserID.
func (s *KVSessionService) SaveCurrentUserID(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Put(ctx, map[string]string{KeyCurrentUserID: strconv.FormatInt(userID, 10)}); err != nil {
		return fmt.Errorf("put current user id: %w", err)
	}

	return nil
}

// Save implements SessionService.Save.
func (s *KVSessionService) Save(ctx context.Context, token string, userID int64) error {
	return s.put(ctx, token, userID, true)
}

// put stores the token. With paired set, a userID of 0 removes the stored
// user ID so that it cannot outlive the token it belonged to.
func (s *KVSessionService) put(ctx context.Context, token string, userID int64, paired bool) (err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "save session failed", "error", err)
		} else {
			s.log.DebugContext(ctx, "session saved", logging.Secret("token", token), "user_id", userID)
		}
	}()

	if paired && userID == 0 {
		if err := s.repo.Delete(ctx, KeyCurrentUserID); err != nil {
			return fmt.Errorf("delete current user id: %w", err)
		}
	}

	entries := map[string]string{KeyAuthToken: token}
	if userID != 0 {
		entries[KeyCurrentUserID] = strconv.FormatInt(userID, 10)
	}

	if err := s.repo.Put(ctx, entries); err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	return nil
}

// Clear implements SessionService.Clear.
func (s *KVSessionService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, KeyAuthToken, KeyCurrentUserID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.log.DebugContext(ctx, "session cleared")

	return nil
}

// Close implements SessionService.Close.
func (s *KVSessionService) Close() error {
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close kv repo: %w", err)
	}

	return nil
}
