package nutrition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type foodMap map[string]Food

func (m foodMap) Resolve(ref string) (Food, bool) {
	f, ok := m[ref]
	return f, ok
}

func TestAggregate(t *testing.T) {
	foods := foodMap{
		"apple": {ID: "apple", Name: "Apple", Macros: Macros{Calories: 100, Protein: 1, Carbs: 20, Fat: 0.5, Fiber: 3}},
	}

	tests := []struct {
		name  string
		items []LogItem
		want  Macros
	}{
		{
			name:  "empty log",
			items: nil,
			want:  Macros{},
		},
		{
			name:  "reference item scales by quantity",
			items: []LogItem{NewReferenceItem("apple", "Apple", 2)},
			want:  Macros{Calories: 200, Protein: 2, Carbs: 40, Fat: 1, Fiber: 6},
		},
		{
			name:  "reference item with zero quantity counts once",
			items: []LogItem{NewReferenceItem("apple", "Apple", 0)},
			want:  Macros{Calories: 100, Protein: 1, Carbs: 20, Fat: 0.5, Fiber: 3},
		},
		{
			name: "ai item ignores quantity",
			items: []LogItem{func() LogItem {
				it := NewAIItem("Rice", 150, Macros{Calories: 50})
				it.Quantity = 3
				return it
			}()},
			want: Macros{Calories: 50},
		},
		{
			name:  "unresolved food contributes nothing",
			items: []LogItem{NewReferenceItem("ghost", "Ghost", 4), NewAIItem("Egg", 50, Macros{Calories: 70, Protein: 6})},
			want:  Macros{Calories: 70, Protein: 6},
		},
		{
			name: "mixed kinds",
			items: []LogItem{
				NewReferenceItem("apple", "Apple", 1.5),
				NewAIItem("Egg", 50, Macros{Calories: 70, Protein: 6, Fat: 5}),
			},
			want: Macros{Calories: 220, Protein: 7.5, Carbs: 30, Fat: 5.75, Fiber: 4.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.items, foods)
			assert.InDelta(t, tt.want.Calories, got.Calories, 1e-9)
			assert.InDelta(t, tt.want.Protein, got.Protein, 1e-9)
			assert.InDelta(t, tt.want.Carbs, got.Carbs, 1e-9)
			assert.InDelta(t, tt.want.Fat, got.Fat, 1e-9)
			assert.InDelta(t, tt.want.Fiber, got.Fiber, 1e-9)
		})
	}

	t.Run("nil resolver skips reference items", func(t *testing.T) {
		got := Aggregate([]LogItem{NewReferenceItem("apple", "Apple", 1)}, nil)
		assert.Equal(t, Macros{}, got)
	})
}

func TestLogRemove(t *testing.T) {
	l := NewLog("u1", "2025-01-02")
	l.Append(
		NewAIItem("a", 10, Macros{}),
		NewAIItem("b", 20, Macros{}),
		NewAIItem("c", 30, Macros{}),
	)
	before := l.Clone()

	require.NoError(t, l.Remove(1))
	require.Len(t, l.Items, 2)
	assert.Equal(t, "a", l.Items[0].Name)
	assert.Equal(t, "c", l.Items[1].Name)
	assert.Len(t, before.Items, 3)

	for _, idx := range []int{-1, 2, 10} {
		assert.ErrorIs(t, l.Remove(idx), ErrIndexOutOfRange)
	}
	assert.Len(t, l.Items, 2)
}

func TestResolveItems(t *testing.T) {
	foods := foodMap{
		"apple": {ID: "apple", Name: "Apple", Macros: Macros{Calories: 100, Protein: 1, Carbs: 20, Fat: 0.5, Fiber: 3}},
	}
	items := []LogItem{
		NewReferenceItem("apple", "Apple", 2),
		NewReferenceItem("ghost", "Ghost", 1),
		NewAIItem("Egg", 50, Macros{Calories: 70, Protein: 6}),
		NewReferenceItem("apple", "Apple", 0),
	}

	got := ResolveItems(items, foods)

	require.Len(t, got, 4)
	require.NotNil(t, got[0].Nutrition)
	assert.Equal(t, Macros{Calories: 200, Protein: 2, Carbs: 40, Fat: 1, Fiber: 6}, *got[0].Nutrition)
	assert.Equal(t, "apple", got[0].FoodRef)
	assert.Nil(t, got[1].Nutrition, "unknown food stays unresolved")
	assert.Equal(t, Macros{Calories: 70, Protein: 6}, *got[2].Nutrition)
	assert.Equal(t, 100.0, got[3].Nutrition.Calories, "non-positive quantity counts as one")

	assert.Nil(t, items[0].Nutrition, "input is not modified")
	got[2].Nutrition.Calories = 1
	assert.Equal(t, 70.0, items[2].Nutrition.Calories)
	assert.Equal(t, Aggregate(items, foods), Aggregate(got, foods))
}

func TestLogItemUnmarshalClassifiesLegacyDocuments(t *testing.T) {
	var items []LogItem
	err := json.Unmarshal([]byte(`[
		{"name":"Apple","quantity":2,"foodRef":"apple"},
		{"name":"Egg","quantity":1,"grams":50,"nutrition":{"calories":70}},
		{"kind":"ai","name":"Rice","grams":100,"nutrition":{"calories":130}}
	]`), &items)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, KindReference, items[0].Kind)
	assert.Equal(t, KindAI, items[1].Kind)
	assert.Equal(t, 70.0, items[1].Nutrition.Calories)
	assert.Equal(t, KindAI, items[2].Kind)
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2025-02-28"))
	assert.False(t, ValidDate("2025-02-30"))
	assert.False(t, ValidDate("02/03/2025"))
	assert.False(t, ValidDate(""))
}
