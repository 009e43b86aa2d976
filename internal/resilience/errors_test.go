package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{408, Transient},
		{429, Transient},
		{500, Transient},
		{502, Transient},
		{503, Transient},
		{504, Transient},
		{400, Terminal},
		{401, Terminal},
		{403, Terminal},
		{404, Terminal},
		{410, Terminal},
	}
	for _, tt := range tests {
		err := &HTTPStatusError{StatusCode: tt.status, URL: "http://example.com"}
		assert.Equal(t, tt.want, Classify(err, true), "status %d", tt.status)
		// Classification is pure: repeated calls agree.
		assert.Equal(t, Classify(err, true), Classify(err, true))
	}
}

func TestClassifyWrappedStatus(t *testing.T) {
	err := eris.Wrap(&HTTPStatusError{StatusCode: 503, URL: "http://x"}, "catalog: firm 123")
	assert.Equal(t, Transient, Classify(err, false))

	err = eris.Wrap(&HTTPStatusError{StatusCode: 403, URL: "http://x"}, "catalog: firm 123")
	assert.Equal(t, Terminal, Classify(err, true))
}

func TestClassifyNetworkErrors(t *testing.T) {
	assert.Equal(t, Transient, Classify(syscall.ECONNRESET, false))
	assert.Equal(t, Transient, Classify(syscall.ECONNREFUSED, false))
	assert.Equal(t, Transient, Classify(eris.New("read tcp: i/o timeout"), false))
	assert.Equal(t, Transient, Classify(eris.New("connection reset by peer"), false))
}

func TestClassifyUnknown(t *testing.T) {
	err := eris.New("something odd")
	assert.Equal(t, Transient, Classify(err, true))
	assert.Equal(t, Terminal, Classify(err, false))
	assert.Equal(t, Terminal, Classify(nil, true))
}

func TestTransientErrorWrapping(t *testing.T) {
	inner := eris.New("flaky thing")
	te := NewTransientError(inner)
	assert.Equal(t, inner.Error(), te.Error())
	assert.Equal(t, Transient, Classify(te, false))
	assert.True(t, IsTransient(te))
	assert.False(t, IsTransient(nil))
}
