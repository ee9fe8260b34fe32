package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"nutripal/nutrition"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `{"foods":[
	{"id":"apple","name":"Apple","serving":"1 medium","category":"Fruits","calories":95,"protein":0.5,"carbs":25,"fat":0.3,"fiber":4.4},
	{"id":"apple-pie","name":"Apple Pie","serving":"1 slice","category":"Desserts","calories":296},
	{"id":"eggs","name":"Eggs","serving":"1 large","category":"Protein","calories":72,"protein":6.3}
]}`

type failingSource struct{ err error }

func (f failingSource) ReadFoods(ctx context.Context) ([]nutrition.Food, error) { return nil, f.err }

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		wantLen int
		wantErr bool
	}{
		{name: "list", src: List{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}, wantLen: 2},
		{name: "embedded default", src: EmbeddedSource{}, wantLen: 35},
		{name: "source error", src: failingSource{err: errors.New("not found")}, wantErr: true},
		{name: "duplicate id", src: List{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}, wantErr: true},
		{name: "duplicate name", src: List{{ID: "a", Name: "Egg"}, {ID: "b", Name: "egg"}}, wantErr: true},
		{name: "missing id", src: List{{Name: "Egg"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(context.Background(), tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, c.Len())
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantIDs []string
		wantErr string
	}{
		{name: "wrapped document", doc: testCatalog, wantIDs: []string{"apple", "apple-pie", "eggs"}},
		{name: "bare array", doc: ` [{"id":"egg","name":"Egg","calories":72}] `, wantIDs: []string{"egg"}},
		{name: "truncated", doc: `{"foods":`, wantErr: "failed to decode catalog document"},
		{name: "bad array", doc: `[{"id":1}]`, wantErr: "failed to decode food list"},
		{name: "empty", doc: "  \n", wantErr: "empty catalog document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			foods, err := Decode(bytes.NewBufferString(tt.doc))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			var ids []string
			for _, f := range foods {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDecodeRejectsOversizedDocument(t *testing.T) {
	doc := bytes.Repeat([]byte(" "), maxDocumentBytes+1)

	_, err := Decode(bytes.NewReader(doc))

	assert.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestListIsCopied(t *testing.T) {
	l := List{{ID: "a", Name: "A"}}
	foods, err := l.ReadFoods(context.Background())
	require.NoError(t, err)

	foods[0].Name = "changed"

	assert.Equal(t, "A", l[0].Name)
}

func TestCatalogQueries(t *testing.T) {
	foods, err := Decode(bytes.NewBufferString(testCatalog))
	require.NoError(t, err)
	c, err := New(foods)
	require.NoError(t, err)

	t.Run("resolve by id", func(t *testing.T) {
		f, ok := c.Resolve("eggs")
		require.True(t, ok)
		assert.Equal(t, "Eggs", f.Name)
		assert.Equal(t, 72.0, f.Calories)

		_, ok = c.Resolve("Eggs")
		assert.False(t, ok)
	})

	t.Run("lookup ignores case and space", func(t *testing.T) {
		f, ok := c.Lookup("  apple PIE ")
		require.True(t, ok)
		assert.Equal(t, "apple-pie", f.ID)

		_, ok = c.Lookup("pie")
		assert.False(t, ok)
	})

	t.Run("all sorted by name", func(t *testing.T) {
		var names []string
		for _, f := range c.All() {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"Apple", "Apple Pie", "Eggs"}, names)
	})

	t.Run("search", func(t *testing.T) {
		assert.Len(t, c.Search("apple", 0), 2)
		assert.Len(t, c.Search("apple", 1), 1)
		assert.Len(t, c.Search("protein", 0), 1)
		assert.Empty(t, c.Search("  ", 0))
		assert.Empty(t, c.Search("kale", 0))
	})

	t.Run("satisfies aggregation resolver", func(t *testing.T) {
		var r nutrition.FoodResolver = c
		total := nutrition.Aggregate([]nutrition.LogItem{nutrition.NewReferenceItem("apple", "Apple", 2)}, r)
		assert.Equal(t, 190.0, total.Calories)
	})
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foods.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))
	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"foods":[`), 0o644))

	foods, err := NewFileSource(path).ReadFoods(context.Background())
	require.NoError(t, err)
	assert.Len(t, foods, 3)
	assert.Equal(t, 95.0, foods[0].Calories)

	missing := filepath.Join(dir, "missing.json")
	_, err = NewFileSource(missing).ReadFoods(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, missing)

	_, err = NewFileSource(badPath).ReadFoods(context.Background())
	assert.ErrorContains(t, err, badPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileSource(path).ReadFoods(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type mockS3 struct {
	body  string
	err   error
	input *s3.GetObjectInput
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(m.body))}, nil
}

func TestS3Source(t *testing.T) {
	m := &mockS3{body: testCatalog}
	foods, err := NewS3Source(m, "bucket", "catalog/foods.json").ReadFoods(context.Background())
	require.NoError(t, err)
	assert.Len(t, foods, 3)
	assert.Equal(t, "bucket", aws.ToString(m.input.Bucket))
	assert.Equal(t, "catalog/foods.json", aws.ToString(m.input.Key))

	_, err = NewS3Source(&mockS3{err: errors.New("NoSuchKey")}, "bucket", "k").ReadFoods(context.Background())
	assert.ErrorContains(t, err, "s3://bucket/k")

	_, err = NewS3Source(&mockS3{body: "not json"}, "bucket", "bad.json").ReadFoods(context.Background())
	assert.ErrorContains(t, err, "s3://bucket/bad.json")
}
