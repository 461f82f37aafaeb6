package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("LLMPROXY_TEST_KEY", "sk-env")

	p := NewEnvProvider()
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"litellm form", "os.environ/LLMPROXY_TEST_KEY", "sk-env", nil},
		{"short form", "env:LLMPROXY_TEST_KEY", "sk-env", nil},
		{"unset", "env:LLMPROXY_TEST_MISSING", "", ErrSecretNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, p.Supports(tt.ref))
			got, err := p.GetSecret(context.Background(), tt.ref)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.False(t, p.Supports("sk-literal"))
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openai")
	require.NoError(t, os.WriteFile(path, []byte("  sk-file\n"), 0o600))

	p := NewFileProvider(true)
	got, err := p.GetSecret(context.Background(), "file:"+path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", got)

	_, err = p.GetSecret(context.Background(), "file:"+filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, ErrSecretNotFound)

	loose := filepath.Join(dir, "loose")
	require.NoError(t, os.WriteFile(loose, []byte("sk"), 0o600))
	require.NoError(t, os.Chmod(loose, 0o644))
	_, err = p.GetSecret(context.Background(), "file:"+loose)
	require.Error(t, err)

	got, err = NewFileProvider(false).GetSecret(context.Background(), "file:"+loose)
	require.NoError(t, err)
	assert.Equal(t, "sk", got)
}

func TestManager_Resolve(t *testing.T) {
	t.Setenv("LLMPROXY_ROTATING", "v1")
	m := NewManager([]SecretProvider{NewEnvProvider(), NewFileProvider(false)}, CacheConfig{TTL: time.Hour})
	ctx := context.Background()

	got, err := m.Resolve(ctx, "sk-literal")
	require.NoError(t, err)
	assert.Equal(t, "sk-literal", got)
	assert.False(t, m.IsReference("sk-literal"))

	got, err = m.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = m.Resolve(ctx, "os.environ/LLMPROXY_ROTATING")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	// cached until refreshed
	t.Setenv("LLMPROXY_ROTATING", "v2")
	got, _ = m.Resolve(ctx, "os.environ/LLMPROXY_ROTATING")
	assert.Equal(t, "v1", got)

	m.Refresh()
	got, _ = m.Resolve(ctx, "os.environ/LLMPROXY_ROTATING")
	assert.Equal(t, "v2", got)
}

func TestManager_ResolveError(t *testing.T) {
	m := NewDefaultManager()
	_, err := m.Resolve(context.Background(), "env:LLMPROXY_NOT_SET_ANYWHERE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSecretNotFound))
}

func TestRedactRef(t *testing.T) {
	assert.Equal(t, "env:OPENAI_KEY", redactRef("env:OPENAI_KEY"))
	assert.Equal(t, "***", redactRef("sk1"))
	assert.Equal(t, "sk...yz", redactRef("sk-abcdxyz"))
}
