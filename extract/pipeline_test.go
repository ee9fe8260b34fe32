package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nutripal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	credential string
	model      string
}

// fakeProvider answers per model from a canned table.
type fakeProvider struct {
	mu        sync.Mutex
	models    []string
	responses map[string]string
	errs      map[string]error
	block     map[string]bool
	calls     []call
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Models() []string { return f.models }

func (f *fakeProvider) Generate(ctx context.Context, credential, model, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{credential: credential, model: model})
	f.mu.Unlock()

	if f.block[model] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := f.errs[model]; err != nil {
		return "", err
	}
	return f.responses[model], nil
}

func (f *fakeProvider) modelsCalled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.model)
	}
	return out
}

const eggJSON = `[{"name":"egg","grams":50,"calories":70,"protein":6,"carbs":0.5,"fat":5,"fiber":0}]`

func TestPipeline_Extract(t *testing.T) {
	tests := []struct {
		name       string
		provider   *fakeProvider
		keys       []string
		preferred  string
		wantItems  int
		wantModels []string
		wantCred   bool
	}{
		{
			name: "first candidate succeeds",
			provider: &fakeProvider{
				models:    []string{"m1", "m2"},
				responses: map[string]string{"m1": eggJSON},
			},
			keys:       []string{"k"},
			wantItems:  1,
			wantModels: []string{"m1"},
		},
		{
			name: "falls back past soft failures",
			provider: &fakeProvider{
				models:    []string{"m1", "m2", "m3", "m4"},
				responses: map[string]string{"m2": "no json here", "m3": `[{"name":"egg","grams":0}]`, "m4": eggJSON},
				errs:      map[string]error{"m1": errors.New("503 model overloaded")},
			},
			keys:       []string{"k"},
			wantItems:  1,
			wantModels: []string{"m1", "m2", "m3", "m4"},
		},
		{
			name: "preferred model tried first and only once",
			provider: &fakeProvider{
				models:    []string{"m1", "m2"},
				responses: map[string]string{"m2": eggJSON},
			},
			keys:       []string{"k"},
			preferred:  "m2",
			wantItems:  1,
			wantModels: []string{"m2"},
		},
		{
			name: "credential rejection aborts the chain",
			provider: &fakeProvider{
				models:    []string{"m1", "m2"},
				responses: map[string]string{"m2": eggJSON},
				errs:      map[string]error{"m1": RejectedCredential(errors.New("API key not valid"))},
			},
			keys:       []string{"k"},
			wantModels: []string{"m1"},
			wantCred:   true,
		},
		{
			name: "all candidates fail softly",
			provider: &fakeProvider{
				models: []string{"m1", "m2"},
				errs:   map[string]error{"m1": errors.New("boom"), "m2": errors.New("boom")},
			},
			keys:       []string{"k"},
			wantModels: []string{"m1", "m2"},
		},
		{
			name: "no credentials yields empty result without calls",
			provider: &fakeProvider{
				models:    []string{"m1"},
				responses: map[string]string{"m1": eggJSON},
			},
			wantModels: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := nutripal.NewFileAttemptLogger(nil)
			p := NewPipeline(tt.provider, NewKeyRing(tt.keys), Options{
				PreferredModel: tt.preferred,
				AttemptTimeout: time.Second,
				Logger:         logger,
			})

			items, err := p.Extract(context.Background(), "two eggs")

			if tt.wantCred {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCredential)
				var ce *CredentialError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, 0, ce.Index)
				assert.NotContains(t, err.Error(), "\"k\"")
				assert.Nil(t, items)
			} else {
				require.NoError(t, err)
				require.NotNil(t, items)
				assert.Len(t, items, tt.wantItems)
			}

			assert.Equal(t, tt.wantModels, tt.provider.modelsCalled())
			assert.Len(t, logger.Attempts(), len(tt.wantModels))
		})
	}
}

func TestPipeline_ExtractRotatesCredentials(t *testing.T) {
	provider := &fakeProvider{models: []string{"m1"}, responses: map[string]string{"m1": eggJSON}}
	p := NewPipeline(provider, NewKeyRing([]string{"a", "b", "c"}), Options{})

	for i := 0; i < 3; i++ {
		_, err := p.Extract(context.Background(), "egg")
		require.NoError(t, err)
	}

	var creds []string
	for _, c := range provider.calls {
		creds = append(creds, c.credential)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, creds)
}

func TestPipeline_ExtractAttemptTimeoutIsSoft(t *testing.T) {
	provider := &fakeProvider{
		models:    []string{"slow", "fast"},
		responses: map[string]string{"fast": eggJSON},
		block:     map[string]bool{"slow": true},
	}
	p := NewPipeline(provider, NewKeyRing([]string{"k"}), Options{AttemptTimeout: 20 * time.Millisecond})

	items, err := p.Extract(context.Background(), "egg")

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, []string{"slow", "fast"}, provider.modelsCalled())
}

func TestPipeline_ExtractStopsWhenCallerCancels(t *testing.T) {
	provider := &fakeProvider{
		models:    []string{"slow", "fast"},
		responses: map[string]string{"fast": eggJSON},
		block:     map[string]bool{"slow": true},
	}
	p := NewPipeline(provider, NewKeyRing([]string{"k"}), Options{AttemptTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	items, err := p.Extract(ctx, "egg")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, items)
	assert.Equal(t, []string{"slow"}, provider.modelsCalled())
}

func TestPipeline_ExtractEmptyText(t *testing.T) {
	provider := &fakeProvider{models: []string{"m1"}}
	p := NewPipeline(provider, NewKeyRing([]string{"k"}), Options{})

	items, err := p.Extract(context.Background(), "   ")

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, provider.modelsCalled())
}
