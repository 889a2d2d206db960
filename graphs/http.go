package graphs

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/groups"
	"github.com/gograph/gograph/jwt"
	"github.com/gograph/gograph/users"
)

// Server defines the interface to register the http handlers.
type Server interface {
	RegisterHandler(path, method string, f http.Handler)
}

func RegisterHTTPRoutes(srv Server, service *Service, auth *users.Authenticator, jwtKey []byte) {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerBefore(kitjwt.HTTPToContext()),
	}

	// Mutations require an account; view routes resolve the viewer when a
	// token is present and serve the anonymous public viewer otherwise.
	authenticated := func(ep endpoint.Endpoint) endpoint.Endpoint {
		return jwt.Middleware(jwtKey)(auth.Authenticated(ep))
	}
	viewer := func(ep endpoint.Endpoint) endpoint.Endpoint {
		return jwt.OptionalMiddleware(jwtKey)(auth.Viewer(ep))
	}

	ep := NewEndpoint(service)

	handler := func(e endpoint.Endpoint, dec kithttp.DecodeRequestFunc) http.Handler {
		return kithttp.NewServer(e, dec, kithttp.EncodeJSONResponse, opts...)
	}

	srv.RegisterHandler("/graphs", "POST", handler(authenticated(ep.Upload), decodeUploadRequest))
	srv.RegisterHandler("/graphs", "GET", handler(viewer(ep.List), decodeListRequest))
	srv.RegisterHandler("/graphs/:owner/:name", "GET", handler(viewer(ep.Get), decodeKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/exists", "GET", handler(authenticated(ep.Exists), decodeKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name", "PUT", handler(authenticated(ep.Update), decodeUpdateRequest))
	srv.RegisterHandler("/graphs/:owner/:name", "DELETE", handler(authenticated(ep.Delete), decodeKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/visibility", "PUT", handler(authenticated(ep.SetVisibility), decodeVisibilityRequest))

	srv.RegisterHandler("/graphs/:owner/:name/share", "POST", handler(authenticated(ep.Share), decodeShareRequest))
	srv.RegisterHandler("/graphs/:owner/:name/share", "DELETE", handler(authenticated(ep.Unshare), decodeShareRequest))
	srv.RegisterHandler("/graphs/:owner/:name/share", "GET", handler(authenticated(ep.GroupsForGraph), decodeKeyRequest))

	srv.RegisterHandler("/graphs/:owner/:name/layouts", "POST", handler(authenticated(ep.SaveLayout), decodeSaveLayoutRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts", "GET", handler(viewer(ep.ListLayouts), decodeKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname", "GET", handler(viewer(ep.GetLayout), decodeLayoutKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname", "PUT", handler(authenticated(ep.RenameLayout), decodeRenameLayoutRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname", "DELETE", handler(authenticated(ep.DeleteLayout), decodeLayoutKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname/share", "POST", handler(authenticated(ep.ShareLayout), decodeShareLayoutRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname/share", "DELETE", handler(authenticated(ep.UnshareLayout), decodeShareLayoutRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname/share", "GET", handler(authenticated(ep.GroupsForLayout), decodeLayoutKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname/visibility", "PUT", handler(authenticated(ep.PublishLayout), decodeLayoutKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/layouts/:lowner/:lname/propagate", "POST", handler(authenticated(ep.PropagateLayout), decodeLayoutKeyRequest))

	srv.RegisterHandler("/graphs/:owner/:name/default-layout", "GET", handler(viewer(ep.DefaultLayout), decodeKeyRequest))
	srv.RegisterHandler("/graphs/:owner/:name/default-layout", "PUT", handler(authenticated(ep.SetDefaultLayout), decodeDefaultLayoutRequest))
	srv.RegisterHandler("/graphs/:owner/:name/default-layout", "DELETE", handler(authenticated(ep.RemoveDefaultLayout), decodeKeyRequest))

	srv.RegisterHandler("/groups/:owner/:name/graphs", "GET", handler(authenticated(ep.ListGroupGraphs), decodeGroupGraphsRequest))

	srv.RegisterHandler("/tags", "GET", handler(viewer(ep.SearchTags), decodePrefixRequest))
	srv.RegisterHandler("/users/:user/tags", "GET", handler(authenticated(ep.TagsForUser), decodeUserRequest))
	srv.RegisterHandler("/tags/:tag/graphs", "GET", handler(viewer(ep.GraphsForTag), decodeTagRequest))
	srv.RegisterHandler("/tags/:tag/graphs", "DELETE", handler(authenticated(ep.DeleteAllForTag), decodeTagRequest))
	srv.RegisterHandler("/tags/:tag/visibility", "PUT", handler(authenticated(ep.SetVisibilityForTag), decodeTagVisibilityRequest))
}

func params(ctx context.Context) (map[string]string, error) {
	p, ok := ctx.Value("params").(map[string]string)
	if !ok {
		return nil, errors.New("no params in request", errors.BadRequest())
	}
	return p, nil
}

func keyFromContext(ctx context.Context) (Key, error) {
	p, err := params(ctx)
	if err != nil {
		return Key{}, err
	}

	key := Key{Owner: p["owner"], Name: p["name"]}
	if key.Owner == "" || key.Name == "" {
		return Key{}, errors.New("incomplete graph key", errors.BadRequest())
	}

	return key, nil
}

func layoutKeyFromContext(ctx context.Context) (LayoutKey, error) {
	graph, err := keyFromContext(ctx)
	if err != nil {
		return LayoutKey{}, err
	}

	p, _ := params(ctx)
	key := LayoutKey{Owner: p["lowner"], Graph: graph, Name: p["lname"]}
	if key.Owner == "" || key.Name == "" {
		return LayoutKey{}, errors.New("incomplete layout key", errors.BadRequest())
	}

	return key, nil
}

func decodeUploadRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeUpdateRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := keyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return updateRequest{Key: key, Payload: body.Payload}, nil
}

func decodeKeyRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()
	return keyFromContext(ctx)
}

func decodeLayoutKeyRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()
	return layoutKeyFromContext(ctx)
}

func decodeVisibilityRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := keyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Public bool `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return visibilityRequest{Key: key, Public: body.Public}, nil
}

func decodeListRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	query := r.URL.Query()

	scope, err := ParseScope(query.Get("scope"))
	if err != nil {
		return nil, err
	}

	filter, err := filterFromQuery(query.Get("mode"), query.Get("q"), query.Get("tags"))
	if err != nil {
		return nil, err
	}

	return listRequest{
		Scope:  scope,
		Filter: filter,
		Page:   pageFromQuery(query.Get("page")),
	}, nil
}

func decodeGroupGraphsRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	p, err := params(ctx)
	if err != nil {
		return nil, err
	}
	group := groups.Key{Owner: p["owner"], Name: p["name"]}
	if group.Owner == "" || group.Name == "" {
		return nil, errors.New("incomplete group key", errors.BadRequest())
	}

	query := r.URL.Query()
	filter, err := filterFromQuery(query.Get("mode"), query.Get("q"), query.Get("tags"))
	if err != nil {
		return nil, err
	}

	return groupGraphsRequest{
		Group:  group,
		Filter: filter,
		Page:   pageFromQuery(query.Get("page")),
	}, nil
}

func decodeShareRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := keyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	group, err := decodeGroupBody(r)
	if err != nil {
		return nil, err
	}

	return shareRequest{Graph: key, Group: group}, nil
}

func decodeSaveLayoutRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := keyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Name   string          `json:"name"`
		Points json.RawMessage `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return saveLayoutRequest{Graph: key, Name: body.Name, Points: body.Points}, nil
}

func decodeRenameLayoutRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := layoutKeyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return renameLayoutRequest{Layout: key, Name: body.Name}, nil
}

func decodeShareLayoutRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := layoutKeyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	group, err := decodeGroupBody(r)
	if err != nil {
		return nil, err
	}

	return shareLayoutRequest{Layout: key, Group: group}, nil
}

func decodeDefaultLayoutRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	graph, err := keyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Owner string `json:"owner"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Owner == "" || body.Name == "" {
		return nil, errors.New("incomplete layout key", errors.BadRequest())
	}

	return defaultLayoutRequest{
		Graph:  graph,
		Layout: LayoutKey{Owner: body.Owner, Graph: graph, Name: body.Name},
	}, nil
}

func decodePrefixRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()
	return r.URL.Query().Get("q"), nil
}

func decodeUserRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	p, err := params(ctx)
	if err != nil {
		return nil, err
	}
	return p["user"], nil
}

func decodeTagRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	p, err := params(ctx)
	if err != nil {
		return nil, err
	}
	return p["tag"], nil
}

func decodeTagVisibilityRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	p, err := params(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Public bool `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return tagVisibilityRequest{Tag: p["tag"], Public: body.Public}, nil
}

func decodeGroupBody(r *http.Request) (groups.Key, error) {
	var body struct {
		GroupOwner string `json:"groupOwner"`
		GroupName  string `json:"groupName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return groups.Key{}, err
	}

	group := groups.Key{Owner: body.GroupOwner, Name: body.GroupName}
	if group.Owner == "" || group.Name == "" {
		return groups.Key{}, errors.New("incomplete group key", errors.BadRequest())
	}

	return group, nil
}

func filterFromQuery(mode, q, tags string) (Filter, error) {
	searchMode, err := ParseSearchMode(mode)
	if err != nil {
		return Filter{}, err
	}

	filter := Filter{Mode: searchMode, Terms: splitQuery(q, " "), Tags: splitQuery(tags, ",")}
	return filter, nil
}

func splitQuery(s, sep string) []string {
	if s == "" {
		return nil
	}

	var parts []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// pageFromQuery never fails: anything unparsable maps to 0, which the
// service clamps to the first page.
func pageFromQuery(s string) int {
	page, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return page
}

func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	statusCode := http.StatusInternalServerError
	if err, ok := err.(errors.Error); ok {
		statusCode = err.Code()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}
