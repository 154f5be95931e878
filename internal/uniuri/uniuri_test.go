package uniuri_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoUserAdmin/GoUserAdmin/internal/uniuri"
)

func TestNew(t *testing.T) {
	a, b := uniuri.New(), uniuri.New()

	assert.Len(t, a, uniuri.StdLen)
	assert.NotEqual(t, a, b)

	for _, c := range []byte(a) {
		assert.True(t, bytes.IndexByte(uniuri.StdChars, c) >= 0, "unexpected character %q", c)
	}
}

func TestNewLenChars(t *testing.T) {
	assert.Nil(t, uniuri.NewLenChars(0, uniuri.StdChars))
	assert.Len(t, uniuri.NewLen(40), 40)

	out := uniuri.NewLenChars(200, []byte("ab"))
	assert.Len(t, out, 200)
	assert.Equal(t, 200, bytes.Count(out, []byte("a"))+bytes.Count(out, []byte("b")))

	assert.Panics(t, func() { uniuri.NewLenChars(4, []byte("a")) })
}
