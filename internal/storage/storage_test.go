package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPutAndDelete(t *testing.T) {
	root := t.TempDir()
	p := NewLocal(root)

	url, err := p.Put(context.Background(), "recordings/a1/q3.webm", strings.NewReader("voice"), 5, "audio/webm")
	require.NoError(t, err)
	require.Equal(t, "/uploads/recordings/a1/q3.webm", url)

	data, err := os.ReadFile(filepath.Join(root, "recordings", "a1", "q3.webm"))
	require.NoError(t, err)
	require.Equal(t, "voice", string(data))

	require.NoError(t, p.Delete(context.Background(), "recordings/a1/q3.webm"))
	require.NoError(t, p.Delete(context.Background(), "recordings/a1/q3.webm"), "deleting twice is not an error")
}

func TestLocalKeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	p := NewLocal(root)

	url, err := p.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"), 1, "")
	require.NoError(t, err)
	require.Equal(t, "/uploads/etc/passwd", url)
	_, err = os.Stat(filepath.Join(root, "etc", "passwd"))
	require.NoError(t, err)

	_, err = p.Put(context.Background(), "/", strings.NewReader("x"), 1, "")
	require.ErrorIs(t, err, ErrInvalidKey)
}
