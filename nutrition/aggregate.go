package nutrition

// FoodResolver looks up catalog foods by reference id.
type FoodResolver interface {
	Resolve(ref string) (Food, bool)
}

// Aggregate folds a day's items into totals. AI items add their nutrition as
// is; reference items add the resolved food's macros times quantity, with a
// non-positive quantity counted as one. Unresolvable foods contribute nothing.
func Aggregate(items []LogItem, foods FoodResolver) Macros {
	var total Macros
	for _, it := range items {
		if m, ok := itemMacros(it, foods); ok {
			total = total.Add(m)
		}
	}
	return total
}

// ResolveItems returns a copy of items in which every resolvable reference
// item carries its scaled Nutrition. Unresolvable references keep a nil
// Nutrition. items is not modified.
func ResolveItems(items []LogItem, foods FoodResolver) []LogItem {
	out := make([]LogItem, len(items))
	for i, it := range items {
		if it.Nutrition != nil {
			n := *it.Nutrition
			it.Nutrition = &n
		}
		if it.Kind == KindReference {
			it.Nutrition = nil
			if m, ok := itemMacros(it, foods); ok {
				it.Nutrition = &m
			}
		}
		out[i] = it
	}
	return out
}

func itemMacros(it LogItem, foods FoodResolver) (Macros, bool) {
	switch it.Kind {
	case KindAI:
		if it.Nutrition == nil {
			return Macros{}, false
		}
		return *it.Nutrition, true
	case KindReference:
		if foods == nil {
			return Macros{}, false
		}
		food, ok := foods.Resolve(it.FoodRef)
		if !ok {
			return Macros{}, false
		}
		q := it.Quantity
		if q <= 0 {
			q = 1
		}
		return food.Macros.Scale(q), true
	}
	return Macros{}, false
}
