package httpsys_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/httpsys/pkg/httpsys"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		code uint32
		want string
	}{
		{httpsys.ErrorSuccess, "ERROR_SUCCESS"},
		{httpsys.ErrorAlreadyExists, "ERROR_ALREADY_EXISTS"},
		{httpsys.ErrorFileNotFound, "ERROR_FILE_NOT_FOUND"},
		{httpsys.ErrorIOPending, "ERROR_IO_PENDING"},
		{httpsys.ErrorConnectionInvalid, "ERROR_CONNECTION_INVALID"},
		{0xDEAD, "0x0000DEAD"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, httpsys.StatusText(tt.code))
		})
	}
}

func TestErrorMatchesByCode(t *testing.T) {
	err := httpsys.NewError(httpsys.ErrorAlreadyExists, "The prefix '%s' is already registered.", "http://+:80/")
	wrapped := fmt.Errorf("start listener: %w", err)

	assert.True(t, errors.Is(wrapped, httpsys.ErrAlreadyExists))
	assert.False(t, errors.Is(wrapped, httpsys.ErrAccessDenied))

	code, ok := httpsys.StatusCode(wrapped)
	assert.True(t, ok)
	assert.Equal(t, httpsys.ErrorAlreadyExists, code)

	assert.Equal(t, "The prefix 'http://+:80/' is already registered.", err.Message())
	assert.Contains(t, err.Error(), "status 183")
}

func TestErrorWithoutMessage(t *testing.T) {
	err := httpsys.NewError(httpsys.ErrorAccessDenied, "")

	assert.Equal(t, "ERROR_ACCESS_DENIED", err.Message())
	assert.Equal(t, "httpsys: ERROR_ACCESS_DENIED (5)", err.Error())
}

func TestStatusCodeWithoutNativeError(t *testing.T) {
	_, ok := httpsys.StatusCode(errors.New("plain"))
	assert.False(t, ok)

	_, ok = httpsys.StatusCode(httpsys.ErrClosed)
	assert.False(t, ok)
}
