package users

import (
	"context"
	"net/http"
	"strings"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/jwt"
)

// PublicUserPrefix is the reserved id prefix marking the anonymous viewer.
// Ids carrying it never map to an account record.
const PublicUserPrefix = "Public_User_"

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Hash    []byte `json:"-"`
	IsAdmin bool   `json:"isAdmin"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsPublic tells whether an id designates the anonymous public viewer, either
// because there is no session at all or because the id uses the reserved
// prefix.
func IsPublic(id string) bool {
	return id == "" || strings.HasPrefix(id, PublicUserPrefix)
}

type Repository interface {
	// Get returns the zero User when no user exists for the id.
	Get(id string) (User, error)
	Upsert(*User) error
	Delete(id string) error
	List() ([]User, error)
}

// Reset is a pending password-reset entry.
type Reset struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

type ResetRepository interface {
	Put(Reset) error
	GetByEmail(email string) (Reset, error)
	GetByCode(code string) (Reset, error)
	Delete(email string) error
}

// Notifier sends the password-reset email. Implementations must not block the
// request path; failures are logged by the service, never surfaced.
type Notifier interface {
	SendPasswordReset(email, link string) error
}

type TokenEncoder interface {
	Encode(userID string) (string, error)
}

const contextKey = "viewer"

// NewContext stores the resolved viewer for downstream endpoints.
func NewContext(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey, user)
}

func FromContext(ctx context.Context) (User, error) {
	v := ctx.Value(contextKey)
	if v == nil {
		return User{}, errors.New("no viewer", errors.WithCode(http.StatusUnauthorized))
	}

	user, ok := v.(User)
	if !ok {
		return User{}, errors.New("invalid viewer", errors.WithCode(http.StatusUnauthorized))
	}

	return user, nil
}

func extractUserID(ctx context.Context) (string, error) {
	claims := ctx.Value(kitjwt.JWTClaimsContextKey)
	if claims == nil {
		return "", errors.New("no user", errors.Unauthorized())
	}

	ggClaims, ok := claims.(*jwt.Claims)
	if !ok {
		return "", errors.New("invalid claims", errors.Unauthorized())
	}

	return ggClaims.UserID, nil
}
