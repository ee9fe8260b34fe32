package extract

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const promptTemplate = `From the meal description below, list each distinct food with its approximate amount in grams and the total nutrition for that amount.

Return ONLY a JSON array. No code fences, no commentary, no text before or after the array.
Each element must be an object with exactly these fields: name, grams, calories, protein, carbs, fat, fiber.

Rules:
- Convert colloquial amounts to grams ("half kg" is 500 grams; "two naan" is about 120 g each, multiplied by the count).
- Nutrition values are totals for the stated grams, not per 100 g.
- Use 0 for fiber when it is negligible.
- Round grams to the nearest 5-10 g, macros to 0.5 g, calories to 5-10 kcal.

The array must match this JSON Schema:
%s

Meal description: %s`

// ItemSchema describes the array the model must return.
func ItemSchema() *jsonschema.Schema {
	zero := 0.0
	nonNegative := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "number", Minimum: &zero, Description: desc}
	}
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name":     {Type: "string", Description: "food name"},
				"grams":    {Type: "number", ExclusiveMinimum: &zero, Description: "amount eaten in grams"},
				"calories": nonNegative("kcal for the amount"),
				"protein":  nonNegative("grams of protein"),
				"carbs":    nonNegative("grams of carbohydrate"),
				"fat":      nonNegative("grams of fat"),
				"fiber":    nonNegative("grams of fiber"),
			},
			Required: []string{"name", "grams", "calories", "protein", "carbs", "fat", "fiber"},
		},
	}
}

var schemaJSON = sync.OnceValue(func() string {
	b, err := json.Marshal(ItemSchema())
	if err != nil {
		return `{"type":"array"}`
	}
	return string(b)
})

// BuildPrompt renders the extraction instructions for one meal description.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, schemaJSON(), text)
}
