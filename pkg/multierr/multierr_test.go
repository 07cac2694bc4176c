package multierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type errString string

func (s errString) Error() string { return string(s) }

func TestError_Error(t *testing.T) {
	tests := []struct {
		name         string
		errs         []error
		wantEqual    string
		wantContains []string
	}{
		{
			name:      "empty",
			wantEqual: "<empty multierr>",
		},
		{
			name:      "single error renders bare",
			errs:      []error{errors.New("test error")},
			wantEqual: "test error",
		},
		{
			name: "multiple errors render all members",
			errs: []error{errors.New("error A"), errors.New("error B")},
			wantContains: []string{
				"2 errors occurred",
				"error A",
				"error B",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			e := Error(tt.errs)
			if tt.wantContains == nil {
				assert.Equal(tt.wantEqual, e.Error())
				return
			}
			for _, want := range tt.wantContains {
				assert.Contains(e.Error(), want)
			}
		})
	}
}

func TestError_Append(t *testing.T) {
	tests := []struct {
		name string
		e    Error
		add  error
	}{
		{name: "append to non-empty", e: Error{errors.New("a")}, add: errors.New("b")},
		{name: "append to nil", e: nil, add: errors.New("a")},
		{name: "append nil is a no-op", e: Error{errors.New("a")}, add: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			before := len(tt.e)
			tt.e.Append(tt.add)
			if tt.add != nil {
				assert.Len(tt.e, before+1)
				assert.ErrorIs(tt.e, tt.add)
			} else {
				assert.Len(tt.e, before)
			}
		})
	}
}

func TestError_Appendf(t *testing.T) {
	assert := assert.New(t)
	inner := errString("inner")

	var e Error
	e.Appendf("wrapping: %w", inner)

	assert.Len(e, 1)
	assert.ErrorIs(e, inner)
	assert.Contains(e.Error(), "wrapping: inner")
}

func TestError_ErrOrNil(t *testing.T) {
	single := errors.New("a")
	multi := Error{errors.New("a"), errors.New("b")}
	tests := []struct {
		name string
		e    Error
		want error
	}{
		{name: "nil is nil", e: nil, want: nil},
		{name: "empty is nil", e: Error{}, want: nil},
		{name: "single is unwrapped", e: Error{single}, want: single},
		{name: "multi stays aggregate", e: multi, want: multi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.want, tt.e.ErrOrNil())
		})
	}
}

func TestError_Is(t *testing.T) {
	t.Run("matches any member", func(t *testing.T) {
		assert := assert.New(t)
		target := errString("b")
		e := Error{errString("a"), target}
		assert.ErrorIs(e, target)
	})

	t.Run("no match", func(t *testing.T) {
		assert := assert.New(t)
		e := Error{errString("a")}
		assert.NotErrorIs(e, errString("b"))
	})

	t.Run("matches through nested aggregate", func(t *testing.T) {
		assert := assert.New(t)
		target := errString("a")
		e := Error{Error{target}, errors.New("other")}
		assert.ErrorIs(e, target)
	})
}

func TestError_As(t *testing.T) {
	t.Run("matches typed member", func(t *testing.T) {
		assert := assert.New(t)
		e := Error{errors.New("a"), errString("b")}
		var s errString
		assert.ErrorAs(e, &s)
		assert.Equal(errString("b"), s)
	})

	t.Run("no typed member", func(t *testing.T) {
		assert := assert.New(t)
		e := Error{errors.New("a")}
		var s errString
		assert.False(e.As(&s))
	})
}
