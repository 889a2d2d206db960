package users

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/log"
)

type inMemRepository struct {
	users map[string]User
}

func (r *inMemRepository) Get(id string) (User, error) {
	return r.users[id], nil
}

func (r *inMemRepository) Upsert(user *User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *inMemRepository) Delete(id string) error {
	delete(r.users, id)
	return nil
}

func (r *inMemRepository) List() ([]User, error) {
	list := make([]User, 0, len(r.users))
	for _, u := range r.users {
		list = append(list, u)
	}
	return list, nil
}

type inMemResetRepository struct {
	resets map[string]Reset
}

func (r *inMemResetRepository) Put(reset Reset) error {
	r.resets[reset.Email] = reset
	return nil
}

func (r *inMemResetRepository) GetByEmail(email string) (Reset, error) {
	return r.resets[email], nil
}

func (r *inMemResetRepository) GetByCode(code string) (Reset, error) {
	for _, reset := range r.resets {
		if reset.Code == code {
			return reset, nil
		}
	}
	return Reset{}, nil
}

func (r *inMemResetRepository) Delete(email string) error {
	delete(r.resets, email)
	return nil
}

type channelNotifier struct {
	sent chan string
}

func (n channelNotifier) SendPasswordReset(email, link string) error {
	n.sent <- fmt.Sprintf("%s %s", email, link)
	return nil
}

type fakeEncoder struct{}

func (fakeEncoder) Encode(userID string) (string, error) {
	return "token-for-" + userID, nil
}

func createService() (*Service, *inMemResetRepository, channelNotifier) {
	resets := &inMemResetRepository{resets: make(map[string]Reset)}
	notifier := channelNotifier{sent: make(chan string, 1)}
	service := NewService(
		&inMemRepository{users: make(map[string]User)},
		resets,
		fakeEncoder{},
		notifier,
		log.New("test"),
		"http://localhost:3000",
	)
	return service, resets, notifier
}

func TestRegister(t *testing.T) {
	service, _, _ := createService()

	user, err := service.Register("alice@x.org", "Alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.org", user.ID)
	assert.False(t, user.IsAdmin, "registration never creates admins")
	assert.NotEmpty(t, user.Hash)

	_, err = service.Register("alice@x.org", "Alice again", "other")
	errors.AssertCode(t, err, http.StatusConflict)

	_, err = service.Register("", "Nobody", "s3cret")
	errors.AssertCode(t, err, http.StatusBadRequest)

	_, err = service.Register("bob@x.org", "Bob", "")
	errors.AssertCode(t, err, http.StatusBadRequest)

	_, err = service.Register(PublicUserPrefix+"1", "Sneaky", "s3cret")
	errors.AssertCode(t, err, http.StatusBadRequest, "the public prefix is reserved")

	_, err = service.Register("a|b@x.org", "Pipe", "s3cret")
	errors.AssertCode(t, err, http.StatusBadRequest)
}

func TestAuthenticate(t *testing.T) {
	service, _, _ := createService()

	_, err := service.Register("alice@x.org", "Alice", "s3cret")
	require.NoError(t, err)

	user, err := service.Authenticate("alice@x.org", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	_, err = service.Authenticate("alice@x.org", "wrong")
	errors.AssertCode(t, err, http.StatusUnauthorized)

	_, err = service.Authenticate("nobody@x.org", "s3cret")
	errors.AssertCode(t, err, http.StatusUnauthorized, "missing user and wrong password look the same")

	token, err := service.Token("alice@x.org", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "token-for-alice@x.org", token)
}

func TestPasswordReset(t *testing.T) {
	service, resets, notifier := createService()

	_, err := service.Register("alice@x.org", "Alice", "s3cret")
	require.NoError(t, err)

	err = service.RequestReset("nobody@x.org")
	errors.AssertCode(t, err, http.StatusNotFound)

	require.NoError(t, service.RequestReset("alice@x.org"))

	select {
	case mail := <-notifier.sent:
		assert.Contains(t, mail, "alice@x.org")
		assert.Contains(t, mail, "http://localhost:3000/reset?id=")
	case <-time.After(time.Second):
		t.Fatal("no reset mail sent")
	}

	// A pending reset blocks authentication until it completes.
	_, err = service.Authenticate("alice@x.org", "s3cret")
	errors.AssertCode(t, err, http.StatusForbidden)

	code := resets.resets["alice@x.org"].Code
	email, err := service.ResetInfo(code)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.org", email)

	_, err = service.ResetInfo("stale-code")
	errors.AssertCode(t, err, http.StatusNotFound)

	require.NoError(t, service.ResetPassword("alice@x.org", "n3w-s3cret"))

	_, err = service.Authenticate("alice@x.org", "s3cret")
	errors.AssertCode(t, err, http.StatusUnauthorized)
	user, err := service.Authenticate("alice@x.org", "n3w-s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}

func TestRandToken(t *testing.T) {
	first, err := randToken(32)
	require.NoError(t, err)
	second, err := randToken(32)
	require.NoError(t, err)

	assert.Len(t, first, 43, "32 random bytes, url-safe without padding")
	assert.NotEqual(t, first, second)
}

func TestResolve(t *testing.T) {
	service, _, _ := createService()

	_, err := service.Register("alice@x.org", "Alice", "s3cret")
	require.NoError(t, err)

	user, err := service.Resolve("alice@x.org")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	public, err := service.Resolve(PublicUserPrefix + "42")
	require.NoError(t, err)
	assert.Equal(t, PublicUserPrefix+"42", public.ID)
	assert.Empty(t, public.Name, "public viewers have no record")

	_, err = service.Resolve("nobody@x.org")
	errors.AssertCode(t, err, http.StatusNotFound)
}

func TestPromote(t *testing.T) {
	service, _, _ := createService()

	_, err := service.Register("alice@x.org", "Alice", "s3cret")
	require.NoError(t, err)

	user, err := service.Promote("alice@x.org", true)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	user, err = service.Promote("alice@x.org", false)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)

	_, err = service.Promote("nobody@x.org", true)
	errors.AssertCode(t, err, http.StatusNotFound)
}
