package graphs

import (
	"context"
	"encoding/json"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/groups"
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

type uploadRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

func (ep Endpoint) Upload(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(uploadRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.Upload(caller.ID, req.Name, req.Payload)
}

type updateRequest struct {
	Key
	Payload json.RawMessage `json:"payload"`
}

func (ep Endpoint) Update(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(updateRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.Update(caller.ID, req.Key, req.Payload)
}

func (ep Endpoint) Get(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.Get(viewer.ID, key)
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

	return map[string]string{"message": "graph deleted"}, nil
}

type visibilityRequest struct {
	Key
	Public bool `json:"public"`
}

func (ep Endpoint) SetVisibility(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(visibilityRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if req.Public {
		return ep.service.MakePublic(caller.ID, req.Key)
	}
	return ep.service.MakePrivate(caller.ID, req.Key)
}

func (ep Endpoint) Exists(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if caller.ID != key.Owner {
		return nil, errors.New("you can only check your own graph names", errors.Forbidden())
	}

	exists, err := ep.service.Exists(caller.ID, key.Name)
	if err != nil {
		return nil, err
	}

	return map[string]bool{"exists": exists}, nil
}

type listRequest struct {
	Scope  Scope
	Filter Filter
	Page   int
}

func (ep Endpoint) List(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(listRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.List(viewer, req.Scope, req.Filter, req.Page)
}

type groupGraphsRequest struct {
	Group  groups.Key
	Filter Filter
	Page   int
}

func (ep Endpoint) ListGroupGraphs(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(groupGraphsRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.ListGroupGraphs(viewer, req.Group, req.Filter, req.Page)
}

type shareRequest struct {
	Graph Key
	Group groups.Key
}

func (ep Endpoint) Share(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(shareRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.Share(caller.ID, req.Graph, req.Group); err != nil {
		return nil, err
	}

	return map[string]string{"message": "graph shared"}, nil
}

func (ep Endpoint) Unshare(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(shareRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.Unshare(caller.ID, req.Graph, req.Group); err != nil {
		return nil, err
	}

	return map[string]string{"message": "graph unshared"}, nil
}

func (ep Endpoint) GroupsForGraph(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.GroupsForGraph(caller.ID, key)
}

type saveLayoutRequest struct {
	Graph  Key
	Name   string          `json:"name"`
	Points json.RawMessage `json:"points"`
}

func (ep Endpoint) SaveLayout(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(saveLayoutRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.SaveLayout(caller.ID, req.Graph, req.Name, req.Points)
}

func (ep Endpoint) GetLayout(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(LayoutKey)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.GetLayout(viewer.ID, key)
}

func (ep Endpoint) ListLayouts(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.ListLayouts(viewer.ID, key)
}

type renameLayoutRequest struct {
	Layout LayoutKey
	Name   string `json:"name"`
}

func (ep Endpoint) RenameLayout(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(renameLayoutRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.RenameLayout(caller.ID, req.Layout, req.Name)
}

func (ep Endpoint) DeleteLayout(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(LayoutKey)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.DeleteLayout(caller.ID, key); err != nil {
		return nil, err
	}

	return map[string]string{"message": "layout deleted"}, nil
}

type shareLayoutRequest struct {
	Layout LayoutKey
	Group  groups.Key
}

func (ep Endpoint) ShareLayout(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(shareLayoutRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.ShareLayout(caller.ID, req.Layout, req.Group); err != nil {
		return nil, err
	}

	return map[string]string{"message": "layout shared"}, nil
}

func (ep Endpoint) UnshareLayout(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(shareLayoutRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.UnshareLayout(caller.ID, req.Layout, req.Group); err != nil {
		return nil, err
	}

	return map[string]string{"message": "layout unshared"}, nil
}

func (ep Endpoint) GroupsForLayout(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(LayoutKey)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	list, err := ep.service.GroupsForLayout(caller.ID, key)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"groups": list}, nil
}

func (ep Endpoint) PublishLayout(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(LayoutKey)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.MakeLayoutPublic(caller.ID, key)
}

func (ep Endpoint) PropagateLayout(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(LayoutKey)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.ShareLayoutWithGroups(caller.ID, key)
}

type defaultLayoutRequest struct {
	Graph  Key
	Layout LayoutKey
}

func (ep Endpoint) SetDefaultLayout(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(defaultLayoutRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.SetDefaultLayout(viewer.ID, req.Layout); err != nil {
		return nil, err
	}

	return map[string]string{"message": "default layout set"}, nil
}

func (ep Endpoint) RemoveDefaultLayout(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := ep.service.RemoveDefaultLayout(viewer.ID, key); err != nil {
		return nil, err
	}

	return map[string]string{"message": "default layout cleared"}, nil
}

func (ep Endpoint) DefaultLayout(ctx context.Context, r interface{}) (interface{}, error) {
	key, ok := r.(Key)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	return ep.service.DefaultLayout(viewer.ID, key)
}

func (ep Endpoint) SearchTags(ctx context.Context, r interface{}) (interface{}, error) {
	prefix, ok := r.(string)
	if !ok {
		return nil, errInvalidRequest
	}

	tags, err := ep.service.SearchTags(prefix)
	if err != nil {
		return nil, err
	}

	return map[string][]string{"tags": tags}, nil
}

func (ep Endpoint) TagsForUser(ctx context.Context, r interface{}) (interface{}, error) {
	user, ok := r.(string)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	tags, err := ep.service.TagsForUser(caller.ID, user)
	if err != nil {
		return nil, err
	}

	return map[string][]string{"tags": tags}, nil
}

func (ep Endpoint) GraphsForTag(ctx context.Context, r interface{}) (interface{}, error) {
	tag, ok := r.(string)
	if !ok {
		return nil, errInvalidRequest
	}

	viewer, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	graphs, err := ep.service.GraphsForTag(viewer, tag)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"graphs": graphs}, nil
}

type tagVisibilityRequest struct {
	Tag    string
	Public bool `json:"public"`
}

func (ep Endpoint) SetVisibilityForTag(ctx context.Context, r interface{}) (interface{}, error) {
	req, ok := r.(tagVisibilityRequest)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	changed, err := ep.service.SetVisibilityForTag(caller.ID, caller.ID, req.Tag, req.Public)
	if err != nil {
		return nil, err
	}

	return map[string]int{"changed": changed}, nil
}

func (ep Endpoint) DeleteAllForTag(ctx context.Context, r interface{}) (interface{}, error) {
	tag, ok := r.(string)
	if !ok {
		return nil, errInvalidRequest
	}

	caller, err := users.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	deleted, err := ep.service.DeleteAllForTag(caller.ID, caller.ID, tag)
	if err != nil {
		return nil, err
	}

	return map[string]int{"deleted": deleted}, nil
}
