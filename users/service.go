package users

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/log"
)

func errUserNotFound(id string) error {
	return errors.New(fmt.Sprintf("no user for id %s", id), errors.NotFound())
}

var errInvalidCredentials = errors.New("invalid credentials", errors.Unauthorized())

type Service struct {
	repository Repository
	resets     ResetRepository

	encoder  TokenEncoder
	notifier Notifier
	logger   log.Logger

	baseURL string
}

func NewService(
	repo Repository,
	resets ResetRepository,
	encoder TokenEncoder,
	notifier Notifier,
	logger log.Logger,
	baseURL string,
) *Service {
	return &Service{
		repository: repo,
		resets:     resets,

		encoder:  encoder,
		notifier: notifier,
		logger:   logger,

		baseURL: baseURL,
	}
}

// Register creates a new account. The id doubles as the email address. Users
// are never created as admins through this path.
func (s *Service) Register(id, name, password string) (User, error) {
	if err := validateID(id); err != nil {
		return User{}, err
	}
	if password == "" {
		return User{}, errors.New("password cannot be empty", errors.BadRequest())
	}

	existing, err := s.repository.Get(id)
	if err != nil {
		return User{}, err
	} else if existing.ID != "" {
		return User{}, errors.New(fmt.Sprintf("user %s already exists", id), errors.Conflict())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:      id,
		Name:    name,
		Hash:    hash,
		IsAdmin: false,
	}
	if err := s.repository.Upsert(&user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate validates an id/password pair. A missing user and a wrong
// password are indistinguishable to the caller. A user with a pending
// password reset cannot authenticate until the reset completes.
func (s *Service) Authenticate(id, password string) (User, error) {
	user, err := s.repository.Get(id)
	if err != nil {
		return User{}, err
	} else if user.ID == "" {
		return User{}, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.Hash, []byte(password)); err != nil {
		return User{}, errInvalidCredentials
	}

	pending, err := s.resets.GetByEmail(id)
	if err != nil {
		return User{}, err
	} else if pending.Email != "" {
		return User{}, errors.New("password reset required", errors.Forbidden())
	}

	return user, nil
}

// Token authenticates and returns a signed token for the user.
func (s *Service) Token(id, password string) (string, error) {
	user, err := s.Authenticate(id, password)
	if err != nil {
		return "", err
	}

	return s.encoder.Encode(user.ID)
}

func (s *Service) Get(id string) (User, error) {
	user, err := s.repository.Get(id)
	if err != nil {
		return User{}, err
	} else if user.ID == "" {
		return User{}, errUserNotFound(id)
	}

	return user, nil
}

// Resolve maps a viewer id to a User. Anonymous/public ids resolve to a
// record-less user carrying only the id, so downstream resolvers can treat
// every viewer uniformly.
func (s *Service) Resolve(viewerID string) (User, error) {
	if IsPublic(viewerID) {
		return User{ID: viewerID}, nil
	}

	return s.Get(viewerID)
}

// RequestReset records a pending reset for the user and mails the reset link.
// Sending is fire and forget: failures are logged, never returned.
func (s *Service) RequestReset(id string) error {
	user, err := s.repository.Get(id)
	if err != nil {
		return err
	} else if user.ID == "" {
		return errUserNotFound(id)
	}

	code, err := randToken(32)
	if err != nil {
		return err
	}
	if err := s.resets.Put(Reset{Email: id, Code: code}); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset?id=%s", s.baseURL, code)
	go func() {
		if err := s.notifier.SendPasswordReset(id, link); err != nil {
			s.logger.Errorf("could not send reset email to %s: %v", id, err)
		}
	}()

	return nil
}

// ResetInfo resolves a reset code back to the email it was issued for.
func (s *Service) ResetInfo(code string) (string, error) {
	reset, err := s.resets.GetByCode(code)
	if err != nil {
		return "", err
	} else if reset.Email == "" {
		return "", errors.New("this password reset link is outdated", errors.NotFound())
	}

	return reset.Email, nil
}

// ResetPassword replaces the user's credential hash and clears the pending
// reset entry.
func (s *Service) ResetPassword(id, password string) error {
	user, err := s.repository.Get(id)
	if err != nil {
		return err
	} else if user.ID == "" {
		return errUserNotFound(id)
	}

	if password == "" {
		return errors.New("password cannot be empty", errors.BadRequest())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Hash = hash
	if err := s.repository.Upsert(&user); err != nil {
		return err
	}

	return s.resets.Delete(id)
}

// Promote grants or revokes the admin flag. CLI only.
func (s *Service) Promote(id string, admin bool) (User, error) {
	user, err := s.Get(id)
	if err != nil {
		return User{}, err
	}

	user.IsAdmin = admin
	if err := s.repository.Upsert(&user); err != nil {
		return User{}, err
	}

	return user, nil
}

func (s *Service) List() ([]User, error) {
	return s.repository.List()
}

func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty", errors.BadRequest())
	}
	if strings.HasPrefix(id, PublicUserPrefix) {
		return errors.New("id prefix is reserved", errors.BadRequest())
	}
	if strings.Contains(id, "|") {
		return errors.New("id cannot contain '|'", errors.BadRequest())
	}
	return nil
}

func randToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
