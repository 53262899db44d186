package handlers

import (
	"context"
	"fmt"
	"strings"

	"whoisd/internal/query"
)

func init() {
	register("MEAL", handleMeal)
	register("MEAL-CN", handleMealCN)
}

type mealDBResponse struct {
	Meals []mealDBMeal `json:"meals"`
}

type mealDBMeal struct {
	IDMeal           string `json:"idMeal"`
	StrMeal          string `json:"strMeal"`
	StrCategory      string `json:"strCategory"`
	StrArea          string `json:"strArea"`
	StrInstructions  string `json:"strInstructions"`
	StrMealThumb     string `json:"strMealThumb"`
	StrTags          string `json:"strTags"`
	StrYoutube       string `json:"strYoutube"`
	StrIngredient1   string `json:"strIngredient1"`
	StrIngredient2   string `json:"strIngredient2"`
	StrIngredient3   string `json:"strIngredient3"`
	StrIngredient4   string `json:"strIngredient4"`
	StrIngredient5   string `json:"strIngredient5"`
	StrIngredient6   string `json:"strIngredient6"`
	StrIngredient7   string `json:"strIngredient7"`
	StrIngredient8   string `json:"strIngredient8"`
	StrIngredient9   string `json:"strIngredient9"`
	StrIngredient10  string `json:"strIngredient10"`
	StrMeasure1      string `json:"strMeasure1"`
	StrMeasure2      string `json:"strMeasure2"`
	StrMeasure3      string `json:"strMeasure3"`
	StrMeasure4      string `json:"strMeasure4"`
	StrMeasure5      string `json:"strMeasure5"`
	StrMeasure6      string `json:"strMeasure6"`
	StrMeasure7      string `json:"strMeasure7"`
	StrMeasure8      string `json:"strMeasure8"`
	StrMeasure9      string `json:"strMeasure9"`
	StrMeasure10     string `json:"strMeasure10"`
}

// ingredients pairs each non-empty ingredient with its measure, in the
// API's fixed 10-slot layout (grounded on meal.rs's Meal::get_ingredients).
func (m mealDBMeal) ingredients() []string {
	pairs := [][2]string{
		{m.StrIngredient1, m.StrMeasure1}, {m.StrIngredient2, m.StrMeasure2},
		{m.StrIngredient3, m.StrMeasure3}, {m.StrIngredient4, m.StrMeasure4},
		{m.StrIngredient5, m.StrMeasure5}, {m.StrIngredient6, m.StrMeasure6},
		{m.StrIngredient7, m.StrMeasure7}, {m.StrIngredient8, m.StrMeasure8},
		{m.StrIngredient9, m.StrMeasure9}, {m.StrIngredient10, m.StrMeasure10},
	}
	var out []string
	for _, pair := range pairs {
		ing := strings.TrimSpace(pair[0])
		if ing == "" {
			continue
		}
		measure := strings.TrimSpace(pair[1])
		if measure != "" {
			ing = measure + " - " + ing
		}
		out = append(out, ing)
	}
	return out
}

// handleMeal fetches a random recipe from TheMealDB (spec §4.6 "-MEAL",
// grounded on meal.rs's query_random_meal).
func handleMeal(d *Deps, ctx context.Context, q query.Query) []byte {
	var resp mealDBResponse
	if err := d.fetchJSON(ctx, "https://www.themealdb.com/api/json/v1/1/random.php", &resp); err != nil {
		return []byte(fmt.Sprintf("%% Error: TheMealDB request failed: %s\n", err))
	}
	if len(resp.Meals) == 0 {
		return []byte("% Error: no meal found in API response\n")
	}
	return []byte(renderMeal(resp.Meals[0]))
}

func renderMeal(meal mealDBMeal) string {
	var sb strings.Builder
	sb.WriteString("% Meal Information from TheMealDB\n% https://www.themealdb.com/\n\n")
	fmt.Fprintf(&sb, "meal-id:           %s\n", meal.IDMeal)
	fmt.Fprintf(&sb, "meal-name:         %s\n", meal.StrMeal)
	if meal.StrCategory != "" {
		fmt.Fprintf(&sb, "category:          %s\n", meal.StrCategory)
	}
	if meal.StrArea != "" {
		fmt.Fprintf(&sb, "cuisine:           %s\n", meal.StrArea)
	}
	if strings.TrimSpace(meal.StrTags) != "" {
		fmt.Fprintf(&sb, "tags:              %s\n", meal.StrTags)
	}

	if ings := meal.ingredients(); len(ings) > 0 {
		sb.WriteString("\n% Ingredients\n")
		for _, ing := range ings {
			fmt.Fprintf(&sb, "ingredient:        %s\n", ing)
		}
	}

	if strings.TrimSpace(meal.StrInstructions) != "" {
		sb.WriteString("\n% Instructions\n")
		instructions := strings.ReplaceAll(meal.StrInstructions, "\r", "")
		i := 0
		for _, line := range strings.Split(instructions, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			i++
			fmt.Fprintf(&sb, "instruction-%d:     %s\n", i, line)
		}
	}

	if strings.TrimSpace(meal.StrYoutube) != "" {
		fmt.Fprintf(&sb, "\nyoutube-video:     %s\n", meal.StrYoutube)
	}
	if strings.TrimSpace(meal.StrMealThumb) != "" {
		fmt.Fprintf(&sb, "meal-image:        %s\n", meal.StrMealThumb)
	}

	sb.WriteString("\n% Query: -MEAL\n% Powered by TheMealDB API\n")
	return sb.String()
}

// handleMealCN would render a random recipe from the bundled HowToCook
// dataset (grounded on meal.rs's query_random_chinese_meal), but that
// dataset (data/recipes.json) isn't part of this server's distribution;
// degrade gracefully rather than fabricate recipe content.
func handleMealCN(d *Deps, ctx context.Context, q query.Query) []byte {
	return []byte("% 中国菜谱 - Chinese Recipe\n% This feature requires a bundled recipe dataset that is not available on this server.\n% Source: 程序员做饭指南 https://github.com/Anduin2017/HowToCook\n")
}
