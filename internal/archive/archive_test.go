package archive

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWriteCloser struct {
	writeErr error
	closeErr error
	wrote    []byte
	closed   bool
}

func (s *stubWriteCloser) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.wrote = append(s.wrote, p...)
	return len(p), nil
}

func (s *stubWriteCloser) Close() error {
	s.closed = true
	return s.closeErr
}

func TestWriteObject(t *testing.T) {
	t.Run("writes and closes", func(t *testing.T) {
		wc := &stubWriteCloser{}
		require.NoError(t, writeObject(wc, []byte(`{"a":1}`)))
		assert.Equal(t, []byte(`{"a":1}`), wc.wrote)
		assert.True(t, wc.closed)
	})

	t.Run("failed write still closes the session", func(t *testing.T) {
		wc := &stubWriteCloser{writeErr: fmt.Errorf("bucket gone")}
		err := writeObject(wc, []byte("data"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "writing object")
		assert.True(t, wc.closed)
	})

	t.Run("close failure surfaces", func(t *testing.T) {
		wc := &stubWriteCloser{closeErr: fmt.Errorf("upload aborted")}
		err := writeObject(wc, []byte("data"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closing writer")
	})
}
