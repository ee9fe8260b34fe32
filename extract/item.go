package extract

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"nutripal/nutrition"
)

var (
	ErrNoArray = errors.New("no JSON array in model output")
	ErrNoItems = errors.New("no valid items in model output")
)

// Item is one food the model recognized, with totals for Grams.
type Item struct {
	Name     string  `json:"name"`
	Grams    float64 `json:"grams"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

func (i Item) Macros() nutrition.Macros {
	return nutrition.Macros{
		Calories: i.Calories,
		Protein:  i.Protein,
		Carbs:    i.Carbs,
		Fat:      i.Fat,
		Fiber:    i.Fiber,
	}
}

// ParseItems pulls the first JSON array out of raw model output and keeps the
// elements with a non-empty name and positive grams. Missing, non-numeric or
// negative nutrient fields become 0. It returns ErrNoArray when no array is present
// and ErrNoItems when the array holds nothing usable.
func ParseItems(raw string) ([]Item, error) {
	arr, ok := firstJSONArray(raw)
	if !ok {
		return nil, ErrNoArray
	}

	dec := json.NewDecoder(strings.NewReader(arr))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil {
		return nil, ErrNoArray
	}

	items := make([]Item, 0, len(elems))
	for _, e := range elems {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["name"].(string)
		name = strings.TrimSpace(name)
		grams := number(obj["grams"])
		if name == "" || grams <= 0 {
			continue
		}
		items = append(items, Item{
			Name:     name,
			Grams:    grams,
			Calories: nonNegative(obj["calories"]),
			Protein:  nonNegative(obj["protein"]),
			Carbs:    nonNegative(obj["carbs"]),
			Fat:      nonNegative(obj["fat"]),
			Fiber:    nonNegative(obj["fiber"]),
		})
	}

	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

// number coerces a decoded JSON value to a finite float, defaulting to 0.
func number(v any) float64 {
	var f float64
	var err error
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	case float64:
		f = n
	default:
		return 0
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// nonNegative is number clamped at 0.
func nonNegative(v any) float64 {
	return max(number(v), 0)
}

// firstJSONArray returns the first balanced [...] span of s that is valid
// JSON. Brackets inside JSON strings do not count toward balance.
func firstJSONArray(s string) (string, bool) {
	for start := strings.IndexByte(s, '['); start >= 0; {
		if end, ok := matchBracket(s, start); ok {
			if span := s[start : end+1]; json.Valid([]byte(span)) {
				return span, true
			}
		}
		next := strings.IndexByte(s[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBracket(s string, start int) (int, bool) {
	var (
		depth   int
		inStr   bool
		escaped bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
