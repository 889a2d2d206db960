package errors

import (
	"fmt"
)

// Error is the error type shared by all the services. On top of the message
// it carries a status code and, optionally, the underlying cause.
type Error interface {
	error

	Code() int
	Message() string
	Cause() error
}

// DefaultCode defines the code that will be used when none is given. It is
// set to 500, Internal Server Error.
var DefaultCode = 500

type gError struct {
	code  int
	msg   string
	cause *gError
}

func (err *gError) Error() string {
	if err.cause == nil {
		return err.msg
	}

	return fmt.Sprintf("%s: %v", err.msg, err.cause)
}

func (err *gError) Code() int {
	return err.code
}

func (err *gError) Message() string {
	return err.msg
}

func (err *gError) Cause() error {
	if err.cause == nil {
		return nil
	}
	return err.cause
}

type ErrorEnricher func(error) error

func WithCode(code int) ErrorEnricher {
	return func(err error) error {
		if err == nil {
			return nil
		}

		if err, ok := err.(*gError); ok {
			err.code = code
			return err
		}

		return &gError{
			msg:   err.Error(),
			code:  code,
			cause: nil,
		}
	}
}

func WithCause(cause error) ErrorEnricher {
	var gCause *gError
	switch cause := cause.(type) {
	case *gError:
		gCause = cause
	default:
		gCause = &gError{msg: cause.Error(), code: DefaultCode, cause: nil}
	}

	return func(err error) error {
		if err == nil {
			return nil
		}

		if gErr, ok := err.(*gError); ok {
			gErr.cause = gCause
			return gErr
		}

		return &gError{
			msg:   err.Error(),
			code:  gCause.code,
			cause: gCause,
		}
	}
}

func New(msg string, fs ...ErrorEnricher) error {
	var err error
	err = &gError{
		msg:   msg,
		code:  DefaultCode,
		cause: nil,
	}

	for _, f := range fs {
		err = f(err)
	}

	return err
}

// Code extracts the status code of an error, falling back to DefaultCode for
// plain errors.
func Code(err error) int {
	if err, ok := err.(Error); ok {
		return err.Code()
	}
	return DefaultCode
}
