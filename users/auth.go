package users

import (
	"context"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
)

// Authenticator resolves the viewer behind the jwt claims and makes it
// available to the wrapped endpoint.
type Authenticator struct {
	service *Service
}

func NewAuthenticator(s *Service) *Authenticator {
	return &Authenticator{
		service: s,
	}
}

// Authenticated requires a valid token mapping to a known account.
func (a *Authenticator) Authenticated(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		userID, err := extractUserID(ctx)
		if err != nil {
			return nil, err
		}

		user, err := a.service.Get(userID)
		if err != nil {
			return nil, err
		}

		return next(NewContext(ctx, user), request)
	}
}

// Viewer resolves the viewer when a token is present and falls back to the
// anonymous public viewer otherwise. Routes serving public graphs use it.
func (a *Authenticator) Viewer(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if ctx.Value(kitjwt.JWTClaimsContextKey) == nil {
			return next(NewContext(ctx, User{}), request)
		}

		userID, err := extractUserID(ctx)
		if err != nil {
			return nil, err
		}

		user, err := a.service.Resolve(userID)
		if err != nil {
			return nil, err
		}

		return next(NewContext(ctx, user), request)
	}
}
