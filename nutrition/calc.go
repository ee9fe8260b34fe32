package nutrition

import "math"

const (
	// MinGoalCalories is the floor applied to any goal derived from a weight target.
	MinGoalCalories = 1200

	// DefaultGoalCalories is used when a user has no profile.
	DefaultGoalCalories = 2000

	kcalPerKg          = 7700
	weeklyChangeKg     = 0.5
	defaultActivityMul = 1.2
)

var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

type BMICategory string

const (
	Underweight BMICategory = "underweight"
	Normal      BMICategory = "normal"
	Overweight  BMICategory = "overweight"
	Obese       BMICategory = "obese"
)

// round rounds half away from negative infinity, so -2.5 becomes -2.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// BMI returns weight / height² with height in metres.
func BMI(heightCm, weightKg float64) float64 {
	m := heightCm / 100
	return weightKg / (m * m)
}

// RoundBMI rounds a BMI value to one decimal place for display.
func RoundBMI(bmi float64) float64 {
	return math.Round(bmi*10) / 10
}

// CategoryFor classifies a BMI value. Lower bounds are inclusive.
func CategoryFor(bmi float64) BMICategory {
	switch {
	case bmi < 18.5:
		return Underweight
	case bmi < 25:
		return Normal
	case bmi < 30:
		return Overweight
	default:
		return Obese
	}
}

// ActivityFactor returns the multiplier for a level; unknown levels count as sedentary.
func ActivityFactor(level ActivityLevel) float64 {
	if f, ok := activityFactors[level]; ok {
		return f
	}
	return defaultActivityMul
}

// BMR is the Mifflin-St Jeor basal metabolic rate.
func BMR(p Profile) float64 {
	age := p.Age
	if age <= 0 {
		age = DefaultAge
	}
	s := 5.0
	if p.Sex == SexFemale {
		s = -161
	}
	return 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(age) + s
}

// MaintenanceCalories is BMR scaled by activity, rounded to whole kcal.
func MaintenanceCalories(p Profile) int {
	return int(round(BMR(p) * ActivityFactor(p.ActivityLevel)))
}

// GoalCalories adjusts maintenance toward the target weight at roughly
// 0.5 kg per week. Without a target it returns maintenance unchanged.
func GoalCalories(p Profile) int {
	maintenance := MaintenanceCalories(p)
	target, ok := p.Target()
	if !ok {
		return maintenance
	}

	diff := target - p.WeightKg
	weeks := math.Max(1, round(math.Abs(diff)/weeklyChangeKg))
	delta := int(round(diff * kcalPerKg / (7 * weeks)))

	return max(MinGoalCalories, maintenance+delta)
}
