package users

import (
	"context"

	"github.com/gograph/gograph/errors"
)

var errInvalidRequest = errors.New("invalid request", errors.BadRequest())

type Endpoint struct {
	service *Service
}

func NewEndpoint(s *Service) Endpoint {
	return Endpoint{
		service: s,
	}
}

type registerRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (ep Endpoint) Register(_ context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(registerRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	return ep.service.Register(req.ID, req.Name, req.Password)
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

func (ep Endpoint) Login(_ context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(loginRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	token, err := ep.service.Token(req.ID, req.Password)
	if err != nil {
		return nil, err
	}

	return map[string]string{"access_token": token}, nil
}

func (ep Endpoint) Me(ctx context.Context, _ interface{}) (interface{}, error) {
	return FromContext(ctx)
}

type resetRequest struct {
	ID string `json:"id"`
}

func (ep Endpoint) RequestReset(_ context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(resetRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	if err := ep.service.RequestReset(req.ID); err != nil {
		return nil, err
	}

	return map[string]string{"message": "email sent"}, nil
}

func (ep Endpoint) ResetInfo(_ context.Context, r interface{}) (interface{}, error) {
	code, ok := r.(string)
	if !ok {
		return nil, errInvalidRequest
	}

	email, err := ep.service.ResetInfo(code)
	if err != nil {
		return nil, err
	}

	return map[string]string{"email": email}, nil
}

type resetPasswordRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

func (ep Endpoint) ResetPassword(_ context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(resetPasswordRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	if err := ep.service.ResetPassword(req.ID, req.Password); err != nil {
		return nil, err
	}

	return map[string]string{"message": "password updated"}, nil
}
