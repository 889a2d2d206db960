package groups

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/gograph/gograph/errors"
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

	authenticationMiddleware := jwt.Middleware(jwtKey)
	ep := NewEndpoint(service)

	createHandler := kithttp.NewServer(
		authenticationMiddleware(auth.Authenticated(ep.Create)),
		decodeCreateRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	listHandler := kithttp.NewServer(
		authenticationMiddleware(auth.Authenticated(ep.List)),
		decodeListRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	getHandler := kithttp.NewServer(
		authenticationMiddleware(auth.Authenticated(ep.Get)),
		decodeKeyRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	deleteHandler := kithttp.NewServer(
		authenticationMiddleware(auth.Authenticated(ep.Delete)),
		decodeKeyRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	addMemberHandler := kithttp.NewServer(
		authenticationMiddleware(auth.Authenticated(ep.AddMember)),
		decodeMemberRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	removeMemberHandler := kithttp.NewServer(
		authenticationMiddleware(auth.Authenticated(ep.RemoveMember)),
		decodeMemberRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	descriptionHandler := kithttp.NewServer(
		authenticationMiddleware(auth.Authenticated(ep.ChangeDescription)),
		decodeDescriptionRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	srv.RegisterHandler("/groups", "POST", createHandler)
	srv.RegisterHandler("/groups", "GET", listHandler)
	srv.RegisterHandler("/groups/:owner/:name", "GET", getHandler)
	srv.RegisterHandler("/groups/:owner/:name", "DELETE", deleteHandler)
	srv.RegisterHandler("/groups/:owner/:name/members", "POST", addMemberHandler)
	srv.RegisterHandler("/groups/:owner/:name/members", "DELETE", removeMemberHandler)
	srv.RegisterHandler("/groups/:owner/:name/description", "PUT", descriptionHandler)
}

func keyFromContext(ctx context.Context) (Key, error) {
	params, ok := ctx.Value("params").(map[string]string)
	if !ok {
		return Key{}, errors.New("no params in request", errors.BadRequest())
	}

	key := Key{Owner: params["owner"], Name: params["name"]}
	if key.Owner == "" || key.Name == "" {
		return Key{}, errors.New("incomplete group key", errors.BadRequest())
	}

	return key, nil
}

func decodeCreateRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeKeyRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()
	return keyFromContext(ctx)
}

func decodeMemberRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := keyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Member string `json:"member"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return memberRequest{Key: key, Member: body.Member}, nil
}

func decodeDescriptionRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	key, err := keyFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	return descriptionRequest{Key: key, Description: body.Description}, nil
}

func decodeListRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	query := r.URL.Query()

	scope, err := ParseScope(query.Get("scope"))
	if err != nil {
		return nil, err
	}

	order, err := ParseSort(query.Get("sort"))
	if err != nil {
		return nil, err
	}

	page := 1
	if p := query.Get("page"); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil {
			return nil, errors.New("page must be a number", errors.BadRequest())
		}
	}

	return listRequest{Scope: scope, Sort: order, Page: page}, nil
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
