package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
)

func sampleDeployments() []Deployment {
	return []Deployment{
		{ID: "a", ModelName: "gpt-4o", ProviderKind: ProviderOpenAI, Model: "gpt-4o", Weight: 1},
		{ID: "b", ModelName: "gpt-4o", ProviderKind: ProviderAzure, Model: "gpt4o", Weight: 2, Priority: 1},
		{ID: "c", ModelName: "llama", ProviderKind: ProviderOpenAICompatible, Model: "llama-3", Weight: 1},
	}
}

func TestNew_GroupsByModelName(t *testing.T) {
	r, err := New(sampleDeployments(), nil, nil)
	require.NoError(t, err)

	g, err := r.Resolve("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", g.Name)
	assert.Equal(t, []string{"a", "b"}, g.IDs())

	g, err = r.Resolve("llama")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, g.IDs())

	assert.Equal(t, []string{"gpt-4o", "llama"}, r.ModelNames())
	assert.Len(t, r.Deployments(), 3)
}

func TestNew_ExplicitGroupsAndAliases(t *testing.T) {
	specs := []GroupSpec{
		{Name: "mixed", DeploymentIDs: []string{"c", "a"}},
		{Name: "gpt-4o", DeploymentIDs: []string{"c", "a"}},
	}
	r, err := New(sampleDeployments(), specs, map[string]string{"best": "mixed"})
	require.NoError(t, err)

	g, err := r.Resolve("best")
	require.NoError(t, err)
	assert.Equal(t, "mixed", g.Name)
	assert.Equal(t, []string{"c", "a"}, g.IDs())

	// explicit membership extends the implicit group without duplicates
	g, err = r.Resolve("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, g.IDs())
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		deps    func([]Deployment) []Deployment
		specs   []GroupSpec
		aliases map[string]string
	}{
		{
			name: "duplicate id",
			deps: func(d []Deployment) []Deployment { d[1].ID = "a"; return d },
		},
		{
			name: "zero weight",
			deps: func(d []Deployment) []Deployment { d[0].Weight = 0; return d },
		},
		{
			name: "negative max concurrent",
			deps: func(d []Deployment) []Deployment { d[0].MaxConcurrent = -1; return d },
		},
		{
			name: "missing id",
			deps: func(d []Deployment) []Deployment { d[2].ID = ""; return d },
		},
		{
			name:  "empty group",
			specs: []GroupSpec{{Name: "empty"}},
		},
		{
			name:  "unknown member",
			specs: []GroupSpec{{Name: "g", DeploymentIDs: []string{"zzz"}}},
		},
		{
			name:    "alias to unknown group",
			aliases: map[string]string{"x": "nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := sampleDeployments()
			if tt.deps != nil {
				deps = tt.deps(deps)
			}
			_, err := New(deps, tt.specs, tt.aliases)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRegistry), "got %v", err)
		})
	}
}

func TestResolve_UnknownModel(t *testing.T) {
	r, err := New(sampleDeployments(), nil, nil)
	require.NoError(t, err)

	_, err = r.Resolve("claude")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	var ume *UnknownModelError
	require.True(t, errors.As(err, &ume))
	assert.Equal(t, "claude", ume.Model)
}

func TestGet(t *testing.T) {
	r, err := New(sampleDeployments(), nil, nil)
	require.NoError(t, err)

	d, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, ProviderAzure, d.ProviderKind)
	assert.Equal(t, 2, d.Weight)

	_, err = r.Get("zzz")
	assert.True(t, errors.Is(err, ErrUnknownDeployment))
}

func TestNew_CopiesInput(t *testing.T) {
	deps := sampleDeployments()
	deps[0].Headers = map[string]string{"X-Team": "a"}

	r, err := New(deps, nil, nil)
	require.NoError(t, err)

	deps[0].Weight = 99
	deps[0].Headers["X-Team"] = "changed"

	d, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Weight)
	assert.Equal(t, "a", d.Headers["X-Team"])
}

func TestStore_Replace(t *testing.T) {
	first, err := New(sampleDeployments(), nil, nil)
	require.NoError(t, err)
	second, err := New(sampleDeployments()[2:], nil, nil)
	require.NoError(t, err)

	s := NewStore(first)
	_, err = s.Resolve("gpt-4o")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg := s.Load()
				assert.NotNil(t, reg)
				_, _ = reg.Resolve("llama")
			}
		}()
	}
	s.Replace(second)
	s.Replace(second)
	wg.Wait()

	assert.Same(t, second, s.Load())
	_, err = s.Resolve("gpt-4o")
	assert.True(t, errors.Is(err, ErrUnknownModel))
	_, err = s.Get("c")
	assert.NoError(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		ModelList: []config.DeploymentConfig{
			{ID: "east", ModelName: "gpt-4o", Provider: "azure", Model: "gpt4o",
				APIBase: "https://east.example.com", APIVersion: "2024-06-01", APIKey: "env:AZ", Weight: 2},
			{ID: "oa", ModelName: "gpt-4o", Provider: "openai", Model: "gpt-4o",
				APIBase: config.DefaultOpenAIBase, Weight: 1, MaxConcurrent: 4},
		},
		RouterSettings: config.RouterSettings{ModelGroupAlias: map[string]string{"gpt4": "gpt-4o"}},
	}

	r, err := FromConfig(cfg)
	require.NoError(t, err)

	g, err := r.Resolve("gpt4")
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "oa"}, g.IDs())

	d, err := r.Get("east")
	require.NoError(t, err)
	assert.Equal(t, "https://east.example.com", d.Endpoint)
	assert.Equal(t, "env:AZ", d.CredentialRef)
	assert.Equal(t, "2024-06-01", d.APIVersion)

	d, err = r.Get("oa")
	require.NoError(t, err)
	assert.Equal(t, 4, d.MaxConcurrent)
}
