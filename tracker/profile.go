package tracker

import (
	"context"
	"errors"

	"nutripal/nutrition"
	"nutripal/store"

	"github.com/google/uuid"
)

// ProfileReport is a stored profile with its derived figures.
type ProfileReport struct {
	Profile      nutrition.Profile `json:"profile"`
	BMI          float64           `json:"bmi"`
	Maintenance  int               `json:"maintenance"`
	GoalCalories int               `json:"goalCalories"`
}

func Report(p nutrition.Profile) ProfileReport {
	return ProfileReport{
		Profile:      p,
		BMI:          nutrition.RoundBMI(nutrition.BMI(p.HeightCm, p.WeightKg)),
		Maintenance:  nutrition.MaintenanceCalories(p),
		GoalCalories: nutrition.GoalCalories(p),
	}
}

// ProfilePatch holds the fields of a partial update; nil means unchanged.
type ProfilePatch struct {
	HeightCm       *float64                 `json:"heightCm"`
	WeightKg       *float64                 `json:"weightKg"`
	TargetWeightKg *float64                 `json:"targetWeightKg"`
	Age            *int                     `json:"age"`
	Sex            *nutrition.Sex           `json:"sex"`
	ActivityLevel  *nutrition.ActivityLevel `json:"activityLevel"`
}

func (pp ProfilePatch) apply(p nutrition.Profile) nutrition.Profile {
	if pp.HeightCm != nil {
		p.HeightCm = *pp.HeightCm
	}
	if pp.WeightKg != nil {
		p.WeightKg = *pp.WeightKg
	}
	if pp.TargetWeightKg != nil {
		t := *pp.TargetWeightKg
		p.TargetWeightKg = &t
	}
	if pp.Age != nil {
		p.Age = *pp.Age
	}
	if pp.Sex != nil {
		p.Sex = *pp.Sex
	}
	if pp.ActivityLevel != nil {
		p.ActivityLevel = *pp.ActivityLevel
	}
	return p
}

// SaveProfile replaces the user's profile after defaulting and validation.
func (s *Service) SaveProfile(ctx context.Context, userID uuid.UUID, p nutrition.Profile) (ProfileReport, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return ProfileReport{}, err
	}
	if err := s.profiles.PutProfile(ctx, userID, p); err != nil {
		return ProfileReport{}, err
	}
	return Report(p), nil
}

// UpdateProfile merges patch into the existing profile. ErrNotFound when
// the user has none.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (ProfileReport, error) {
	current, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return ProfileReport{}, err
	}
	return s.SaveProfile(ctx, userID, patch.apply(current))
}

// GetProfile returns nil without error when the user has no profile.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*nutrition.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
