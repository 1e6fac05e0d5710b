package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrependsNameAndAvatar(t *testing.T) {
	got := Format("Alice", 'A', []byte("hello"), 1024)
	assert.Equal(t, "Alice[A] hello", string(got))
}

func TestFormatTruncatesBodyNotPrefix(t *testing.T) {
	got := Format("Bob", 'B', []byte("this is a long message"), 10)
	assert.Len(t, got, 10)
	assert.Equal(t, "Bob[B] ", string(got[:len("Bob[B] ")]))
}

func TestFormatHandlesOversizePrefix(t *testing.T) {
	got := Format("AVeryLongNameIndeed", 'Z', []byte("hi"), 5)
	assert.LessOrEqual(t, len(got), 5)
}
