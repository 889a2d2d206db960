package groups

import (
	"context"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/users"
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

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (ep Endpoint) Create(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(createRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.Create(caller.ID, req.Name, req.Description)
}

func (ep Endpoint) Get(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.Get(caller.ID, key)
}

func (ep Endpoint) Delete(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.Delete(caller.ID, key); err != nil {
		return nil, err
	}

	return map[string]string{"message": "group deleted"}, nil
}

type memberRequest struct {
	Key
	Member string `json:"member"`
}

func (ep Endpoint) AddMember(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(memberRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.AddMember(caller.ID, req.Key, req.Member)
}

func (ep Endpoint) RemoveMember(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(memberRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.RemoveMember(caller.ID, req.Key, req.Member)
}

type descriptionRequest struct {
	Key
	Description string `json:"description"`
}

func (ep Endpoint) ChangeDescription(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(descriptionRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.ChangeDescription(caller.ID, req.Key, req.Description)
}

type listRequest struct {
	Scope Scope
	Sort  Sort
	Page  int
}

func (ep Endpoint) List(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(listRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.List(caller, req.Scope, req.Sort, req.Page)
}
