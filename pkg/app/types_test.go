package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-macfiles/internal/types"
	"github.com/deploymenttheory/go-macfiles/pkg/services"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"invalid value", fmt.Errorf("x: %w", services.ErrInvalidValue), ErrCodeInvalidInput},
		{"format", fmt.Errorf("x: %w", types.ErrFormat), ErrCodeFormatViolation},
		{"block", types.ErrBlockNotFound, ErrCodeFormatViolation},
		{"range", types.ErrOutOfRange, ErrCodeFormatViolation},
		{"unsupported", types.ErrUnsupported, ErrCodeNotSupported},
		{"missing key", types.ErrKeyNotFound, ErrCodeNotFound},
		{"missing file", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, ErrCodeNotFound},
		{"permission", fs.ErrPermission, ErrCodePermission},
		{"timeout", context.DeadlineExceeded, ErrCodeTimeout},
		{"other", errors.New("disk on fire"), ErrCodeStoreAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("failed", tt.err)
			var ce *CommonError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.code, ce.Code)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Classify("failed", nil))

	original := NewError(ErrCodeInvalidInput, "bad", nil)
	assert.Same(t, original, Classify("failed", original))
}

func TestCommonError(t *testing.T) {
	cause := errors.New("cause")
	assert.Equal(t, "message: cause", NewError(ErrCodeNotFound, "message", cause).Error())
	assert.Equal(t, "message", NewError(ErrCodeNotFound, "message", nil).Error())
}

func TestStoreTarget(t *testing.T) {
	target := StoreTarget{}
	assert.Error(t, target.Validate())

	target = StoreTarget{Path: "/tmp/.DS_Store"}
	assert.NoError(t, target.Validate())
	assert.Equal(t, "/tmp/.DS_Store", target.String())

	target.Filename = "App.app"
	assert.Equal(t, `/tmp/.DS_Store (entry "App.app")`, target.String())
}

func TestParseProperty(t *testing.T) {
	code, err := ParseProperty("Iloc")
	require.NoError(t, err)
	assert.Equal(t, types.PropIconLocation, code)

	_, err = ParseProperty("Il")
	var ce *CommonError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrCodeInvalidInput, ce.Code)
}

func TestContextLog(t *testing.T) {
	var errOut bytes.Buffer
	ctx := NewContext(nil)
	ctx.Err = &errOut

	ctx.Log("hidden")
	ctx.Verbose = true
	ctx.Log("shown")
	ctx.Error("broken")
	ctx.Quiet = true
	ctx.Error("silenced")

	assert.Equal(t, "shown\nError: broken\n", errOut.String())
}
