package users

import (
	"context"
	"encoding/json"
	"net/http"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/jwt"
)

// Server defines the interface to register the http handlers.
type Server interface {
	RegisterHandler(path, method string, f http.Handler)
}

func RegisterHTTPRoutes(srv Server, service *Service, jwtKey []byte) {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(encodeError),
		kithttp.ServerBefore(kitjwt.HTTPToContext()),
	}

	authenticationMiddleware := jwt.Middleware(jwtKey)
	authenticator := NewAuthenticator(service)
	ep := NewEndpoint(service)

	registerHandler := kithttp.NewServer(
		ep.Register,
		decodeRegisterRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	loginHandler := kithttp.NewServer(
		ep.Login,
		decodeLoginRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	meHandler := kithttp.NewServer(
		authenticationMiddleware(authenticator.Authenticated(ep.Me)),
		decodeMeRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	requestResetHandler := kithttp.NewServer(
		ep.RequestReset,
		decodeResetRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	resetInfoHandler := kithttp.NewServer(
		ep.ResetInfo,
		decodeResetInfoRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	resetPasswordHandler := kithttp.NewServer(
		ep.ResetPassword,
		decodeResetPasswordRequest,
		kithttp.EncodeJSONResponse,
		opts...,
	)

	srv.RegisterHandler("/auth/register", "POST", registerHandler)
	srv.RegisterHandler("/auth/login", "POST", loginHandler)
	srv.RegisterHandler("/auth/me", "GET", meHandler)
	srv.RegisterHandler("/auth/reset", "POST", requestResetHandler)
	srv.RegisterHandler("/auth/reset", "GET", resetInfoHandler)
	srv.RegisterHandler("/auth/reset/password", "POST", resetPasswordHandler)
}

func decodeRegisterRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeLoginRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeMeRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()
	return nil, nil
}

func decodeResetRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeResetInfoRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()
	return r.URL.Query().Get("id"), nil
}

func decodeResetPasswordRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	defer r.Body.Close()

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}

	return req, nil
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
