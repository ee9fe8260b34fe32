package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItems(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      []Item
		wantError error
	}{
		{
			name: "prose around the array",
			raw:  `Sure! [{"name":"egg","grams":50,"calories":70,"protein":6,"carbs":0.5,"fat":5,"fiber":0}]`,
			want: []Item{{Name: "egg", Grams: 50, Calories: 70, Protein: 6, Carbs: 0.5, Fat: 5}},
		},
		{
			name: "code fences",
			raw:  "```json\n[{\"name\":\"rice\",\"grams\":150,\"calories\":195}]\n```",
			want: []Item{{Name: "rice", Grams: 150, Calories: 195}},
		},
		{
			name: "numeric strings are coerced and name trimmed",
			raw:  `[{"name":"  naan ","grams":"240","calories":"620","protein":"x"}]`,
			want: []Item{{Name: "naan", Grams: 240, Calories: 620}},
		},
		{
			name: "negative nutrients clamp to zero",
			raw:  `[{"name":"salad","grams":100,"calories":-900,"protein":-5,"carbs":"-1","fat":-2,"fiber":3}]`,
			want: []Item{{Name: "salad", Grams: 100, Fiber: 3}},
		},
		{
			name: "invalid elements dropped",
			raw: `[{"name":"egg","grams":0,"calories":70},
				{"name":"","grams":50},
				{"name":"toast","grams":-3},
				"banana",
				{"name":"apple","grams":180,"calories":95}]`,
			want: []Item{{Name: "apple", Grams: 180, Calories: 95}},
		},
		{
			name: "brackets inside strings do not break matching",
			raw:  `[{"name":"curry [spicy]","grams":200,"calories":300}] trailing ] junk`,
			want: []Item{{Name: "curry [spicy]", Grams: 200, Calories: 300}},
		},
		{
			name: "skips a bracketed aside before the array",
			raw:  `[note] here you go: [{"name":"tea","grams":250,"calories":2}]`,
			want: []Item{{Name: "tea", Grams: 250, Calories: 2}},
		},
		{
			name:      "no brackets",
			raw:       `I could not find any food in that text.`,
			wantError: ErrNoArray,
		},
		{
			name:      "unbalanced array",
			raw:       `[{"name":"egg","grams":50}`,
			wantError: ErrNoArray,
		},
		{
			name:      "all elements invalid",
			raw:       `[{"name":"egg","grams":0}]`,
			wantError: ErrNoItems,
		},
		{
			name:      "empty array",
			raw:       `[]`,
			wantError: ErrNoItems,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItems(tt.raw)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("two eggs and toast")

	assert.True(t, strings.HasSuffix(p, "Meal description: two eggs and toast"))
	assert.Contains(t, p, "Return ONLY a JSON array")
	assert.Contains(t, p, `"grams"`)
	assert.Contains(t, p, "not per 100 g")
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		fallback  []string
		want      []string
	}{
		{name: "no preference", fallback: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "preferred first", preferred: "x", fallback: []string{"a", "b"}, want: []string{"x", "a", "b"}},
		{name: "preferred not repeated", preferred: "b", fallback: []string{"a", "b", "c"}, want: []string{"b", "a", "c"}},
		{name: "duplicates and blanks dropped", fallback: []string{"a", "", "a", "c"}, want: []string{"a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.preferred, tt.fallback))
		})
	}
}

func TestKeyRing(t *testing.T) {
	t.Run("empty ring", func(t *testing.T) {
		r := NewKeyRing([]string{" ", ""})
		_, _, ok := r.Next()
		assert.False(t, ok)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("visits every key within n calls", func(t *testing.T) {
		keys := []string{"k0", "k1", "k2"}
		r := NewKeyRing(keys)

		seen := map[string]int{}
		for i := 0; i < len(keys); i++ {
			k, idx, ok := r.Next()
			require.True(t, ok)
			assert.Equal(t, keys[idx], k)
			seen[k]++
		}
		assert.Len(t, seen, len(keys))

		k, idx, _ := r.Next()
		assert.Equal(t, "k0", k)
		assert.Equal(t, 0, idx)
	})
}
