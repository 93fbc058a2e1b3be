package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"trading-journal/internal/api"
	"trading-journal/internal/types"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(types.PlatformMT5, "fetch account", nil))

	err := Wrap(types.PlatformMT5, "fetch account", errors.New("boom"))
	assert.EqualError(t, err, "mt5 fetch account: boom")
	assert.True(t, IsPlatformError(err))

	again := Wrap(types.PlatformCTrader, "sync", err)
	assert.Same(t, err, again)

	auth := Wrap(types.PlatformDXtrade, "authenticate", &api.HTTPError{StatusCode: 401, Method: "POST", URL: "/login"})
	assert.ErrorIs(t, auth, ErrAuthFailed)
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(types.PlatformMT4, "login", "1", "password", "x"))

	err := Require(types.PlatformMT4, "login", "1", "password", " ")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), "password")
}
