package at24mac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteErrorMessage(t *testing.T) {
	cause := errors.New("nack")
	err := &WriteError{Address: 0x0a, Length: 20, Written: 6, Err: cause}
	assert.Equal(t, "at24mac: write of 20 bytes at 0x0a stopped after 6 bytes: nack", err.Error())
	assert.ErrorIs(t, err, cause)
}
