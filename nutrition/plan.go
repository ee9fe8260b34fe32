package nutrition

// Plan is a fixed diet and workout recommendation for a BMI category.
type Plan struct {
	Diet    string `json:"diet"`
	Workout string `json:"workout"`
}

func PlanFor(category BMICategory) Plan {
	switch category {
	case Underweight:
		return Plan{
			Diet:    "High-calorie, protein-rich foods. Eat 5-6 meals/day. Add healthy fats (nuts, seeds, cheese).",
			Workout: "Strength training 3-4x/week. Compound lifts. Avoid excessive cardio.",
		}
	case Normal:
		return Plan{
			Diet:    "Balanced macros. Slight calorie surplus for muscle gain. Lean proteins, whole grains, veggies.",
			Workout: "Bodybuilding split: train each muscle group 1-2x/week. Progressive overload.",
		}
	case Overweight, Obese:
		return Plan{
			Diet:    "Calorie deficit. High protein, low sugar. Lots of veggies, lean meats, whole grains.",
			Workout: "Mix cardio (30 min/day) and resistance training. HIIT 2x/week. Stay active daily.",
		}
	default:
		return Plan{Diet: "Balanced diet.", Workout: "Regular exercise."}
	}
}

// Assessment bundles what a one-off BMI check reports.
type Assessment struct {
	BMI         float64     `json:"bmi"`
	BMICategory BMICategory `json:"bmiCategory"`
	Calories    int         `json:"calories"`
	Plan        Plan        `json:"plan"`
}

// Assess reports BMI, category, maintenance calories and a plan for p.
func Assess(p Profile) Assessment {
	bmi := BMI(p.HeightCm, p.WeightKg)
	category := CategoryFor(bmi)
	return Assessment{
		BMI:         RoundBMI(bmi),
		BMICategory: category,
		Calories:    MaintenanceCalories(p),
		Plan:        PlanFor(category),
	}
}
