package nutrition

import (
	"errors"
	"fmt"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

const DefaultAge = 25

var ErrInvalidProfile = errors.New("invalid profile")

// Profile is the body profile a user records. A nil or non-positive
// TargetWeightKg means the user has no weight target.
type Profile struct {
	HeightCm       float64       `json:"heightCm"`
	WeightKg       float64       `json:"weightKg"`
	TargetWeightKg *float64      `json:"targetWeightKg,omitempty"`
	Age            int           `json:"age"`
	Sex            Sex           `json:"sex"`
	ActivityLevel  ActivityLevel `json:"activityLevel"`
}

// WithDefaults fills age, sex and activity level when unset.
func (p Profile) WithDefaults() Profile {
	if p.Age <= 0 {
		p.Age = DefaultAge
	}
	if p.Sex == "" {
		p.Sex = SexMale
	}
	if p.ActivityLevel == "" {
		p.ActivityLevel = ActivitySedentary
	}
	return p
}

func (p Profile) Validate() error {
	if p.HeightCm <= 0 {
		return fmt.Errorf("%w: heightCm must be greater than 0", ErrInvalidProfile)
	}
	if p.WeightKg <= 0 {
		return fmt.Errorf("%w: weightKg must be greater than 0", ErrInvalidProfile)
	}
	if p.Age < 0 {
		return fmt.Errorf("%w: age must not be negative", ErrInvalidProfile)
	}
	switch p.Sex {
	case "", SexMale, SexFemale:
	default:
		return fmt.Errorf("%w: sex must be male or female", ErrInvalidProfile)
	}
	if p.ActivityLevel != "" {
		if _, ok := activityFactors[p.ActivityLevel]; !ok {
			return fmt.Errorf("%w: unknown activityLevel %q", ErrInvalidProfile, p.ActivityLevel)
		}
	}
	return nil
}

// Target returns the target weight and whether one is set.
func (p Profile) Target() (float64, bool) {
	if p.TargetWeightKg == nil || *p.TargetWeightKg <= 0 {
		return 0, false
	}
	return *p.TargetWeightKg, true
}
