package recipe

import (
	"fmt"
	"strings"

	"github.com/erazemk/shramba/internal/model"
)

const promptTemplate = `As an AI chef, your task is to suggest a recipe based on the following ingredients available in the pantry:

%s

Please provide a recipe that:
1. Uses as many of the listed ingredients as possible
2. Is feasible to make with common kitchen equipment
3. Takes into account the quantities available
4. Is suitable for a home cook

Your response should include:
- Recipe name
- List of ingredients with quantities
- Step-by-step cooking instructions
- Estimated cooking time
- Difficulty level (Easy, Medium, Hard)
- Any substitutions or additional ingredients that might enhance the dish

If you can't create a complete recipe with the given ingredients, suggest the best possible dish or snack that can be made, and mention what additional key ingredients would be needed for a more complete meal.`

// Ingredients renders items as "Name (Nx)" joined by commas.
func Ingredients(items []model.Item) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s (%dx)", item.Name, item.Quantity)
	}
	return strings.Join(parts, ", ")
}

// Prompt builds the user message for items.
func Prompt(items []model.Item) string {
	return fmt.Sprintf(promptTemplate, Ingredients(items))
}
