package hack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringRoundTrip(t *testing.T) {
	b := []byte("mysqlbulk")
	s := String(b)
	assert.Equal(t, "mysqlbulk", s)
	assert.Equal(t, b, StringBytes(s))
}

func TestEmpty(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Nil(t, StringBytes(""))
}
