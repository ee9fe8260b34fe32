// Package tracker combines extraction, the food catalog and the stores into
// the operations users call.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"nutripal"
	"nutripal/extract"
	"nutripal/nutrition"
	"nutripal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const alertTimeout = 5 * time.Second

type Extractor interface {
	Extract(ctx context.Context, text string) ([]extract.Item, error)
}

type FoodCatalog interface {
	nutrition.FoodResolver
	Lookup(name string) (nutrition.Food, bool)
}

type Service struct {
	profiles  store.ProfileStore
	logs      store.LogStore
	extractor Extractor
	foods     FoodCatalog
	now       func() time.Time
	tracer    trace.Tracer

	slack        nutripal.SlackClient
	slackChannel string
}

type Option func(*Service)

// WithClock sets the clock used to pick "today" when no date is given.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSlackAlerts posts to channel when the provider rejects a credential.
func WithSlackAlerts(client nutripal.SlackClient, channel string) Option {
	return func(s *Service) {
		s.slack = client
		s.slackChannel = channel
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(profiles store.ProfileStore, logs store.LogStore, extractor Extractor, foods FoodCatalog, opts ...Option) *Service {
	s := &Service{
		profiles:  profiles,
		logs:      logs,
		extractor: extractor,
		foods:     foods,
		now:       time.Now,
		tracer:    otel.Tracer(nutripal.TracerNameTracker),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ParseRequest is the input of AddFromText. A nil UseAI counts as true.
type ParseRequest struct {
	Text    string
	Date    string
	AutoAdd bool
	UseAI   *bool
}

type ParseResult struct {
	Items   []extract.Item `json:"items"`
	Date    string         `json:"date,omitempty"`
	Added   int            `json:"added"`
	Message string         `json:"message,omitempty"`
}

// AddFromText extracts foods from free text and, with AutoAdd, appends them
// to the user's log for the date in a single mutation.
func (s *Service) AddFromText(ctx context.Context, userID uuid.UUID, req ParseRequest) (ParseResult, error) {
	ctx, span := s.tracer.Start(ctx, "Tracker.AddFromText",
		trace.WithAttributes(attribute.Bool("tracker.auto_add", req.AutoAdd)))
	defer span.End()

	if strings.TrimSpace(req.Text) == "" {
		return ParseResult{}, &ValidationError{Field: "text", Reason: "Text is required"}
	}
	if req.UseAI != nil && !*req.UseAI {
		return ParseResult{}, ErrAIRequired
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return ParseResult{}, err
	}

	items, err := s.extractor.Extract(ctx, req.Text)
	if err != nil {
		var ce *extract.CredentialError
		if errors.As(err, &ce) {
			s.alertCredential(ctx, ce)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return ParseResult{}, err
	}
	if len(items) == 0 {
		slog.Info("TRACKER: No items recognized", "user_id", userID)
		return ParseResult{Items: []extract.Item{}, Added: 0, Message: "No items recognized"}, nil
	}

	result := ParseResult{Items: items, Date: date}
	if !req.AutoAdd {
		return result, nil
	}

	_, err = s.logs.MutateLog(ctx, userID, date, true, func(l *nutrition.Log) error {
		for _, it := range items {
			l.Append(nutrition.NewAIItem(it.Name, it.Grams, it.Macros()))
		}
		return nil
	})
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to append items: %w", err)
	}
	result.Added = len(items)
	span.SetAttributes(attribute.Int("tracker.added", result.Added))
	slog.Info("TRACKER: Items added from text", "user_id", userID, "date", date, "added", result.Added)
	return result, nil
}

// AddFood appends a catalog food by name. Quantity <= 0 counts as one serving.
func (s *Service) AddFood(ctx context.Context, userID uuid.UUID, date, foodName string, quantity float64) (nutrition.Log, error) {
	ctx, span := s.tracer.Start(ctx, "Tracker.AddFood")
	defer span.End()

	if err := checkDate(date); err != nil {
		return nutrition.Log{}, err
	}
	if strings.TrimSpace(foodName) == "" {
		return nutrition.Log{}, &ValidationError{Field: "foodName", Reason: "foodName is required"}
	}
	food, ok := s.foods.Lookup(foodName)
	if !ok {
		return nutrition.Log{}, fmt.Errorf("%w: %q", ErrFoodNotFound, foodName)
	}
	if quantity <= 0 {
		quantity = 1
	}

	l, err := s.logs.MutateLog(ctx, userID, date, true, func(l *nutrition.Log) error {
		l.Append(nutrition.NewReferenceItem(food.ID, food.Name, quantity))
		return nil
	})
	if err != nil {
		return nutrition.Log{}, err
	}
	return s.resolved(l), nil
}

// DeleteItem removes the item at index from the log for date.
func (s *Service) DeleteItem(ctx context.Context, userID uuid.UUID, date string, index int) (nutrition.Log, error) {
	ctx, span := s.tracer.Start(ctx, "Tracker.DeleteItem",
		trace.WithAttributes(attribute.Int("tracker.index", index)))
	defer span.End()

	if err := checkDate(date); err != nil {
		return nutrition.Log{}, err
	}

	l, err := s.logs.MutateLog(ctx, userID, date, false, func(l *nutrition.Log) error {
		if err := l.Remove(index); err != nil {
			return ErrInvalidIndex
		}
		return nil
	})
	if err != nil {
		return nutrition.Log{}, err
	}
	slog.Info("TRACKER: Item deleted", "user_id", userID, "date", date, "index", index)
	return s.resolved(l), nil
}

// GetLog returns the log for date, or an empty one when nothing was logged.
// Reference items come back with their catalog nutrition filled in.
func (s *Service) GetLog(ctx context.Context, userID uuid.UUID, date string) (nutrition.Log, error) {
	if err := checkDate(date); err != nil {
		return nutrition.Log{}, err
	}
	l, err := s.logs.GetLog(ctx, userID, date)
	if errors.Is(err, store.ErrNotFound) {
		return nutrition.NewLog(userID.String(), date), nil
	}
	if err != nil {
		return nutrition.Log{}, err
	}
	return s.resolved(l), nil
}

// resolved is l as returned to callers. The stored log keeps bare references.
func (s *Service) resolved(l nutrition.Log) nutrition.Log {
	l.Items = nutrition.ResolveItems(l.Items, s.foods)
	return l
}

type Summary struct {
	Date   string              `json:"date"`
	Totals nutrition.Macros    `json:"totals"`
	Goal   int                 `json:"goal"`
	Items  []nutrition.LogItem `json:"items"`
}

// Summarize totals the day's items and pairs them with the user's goal,
// which defaults to 2000 kcal without a profile.
func (s *Service) Summarize(ctx context.Context, userID uuid.UUID, date string) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "Tracker.Summarize")
	defer span.End()

	l, err := s.GetLog(ctx, userID, date)
	if err != nil {
		return Summary{}, err
	}

	goal := nutrition.DefaultGoalCalories
	p, err := s.profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		goal = nutrition.GoalCalories(p)
	case !errors.Is(err, store.ErrNotFound):
		return Summary{}, err
	}

	return Summary{
		Date:   date,
		Totals: nutrition.Aggregate(l.Items, s.foods),
		Goal:   goal,
		Items:  l.Items,
	}, nil
}

func (s *Service) resolveDate(date string) (string, error) {
	if date == "" {
		return s.now().Format(nutrition.DateLayout), nil
	}
	return date, checkDate(date)
}

func checkDate(date string) error {
	if !nutrition.ValidDate(date) {
		return &ValidationError{Field: "date", Reason: "date must be YYYY-MM-DD"}
	}
	return nil
}

// alertCredential notifies operators. Failures are only logged.
func (s *Service) alertCredential(ctx context.Context, ce *extract.CredentialError) {
	if s.slack == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	err := s.slack.PostAlert(ctx, s.slackChannel, "Extraction credential rejected; rotate the key", map[string]string{
		"provider":   ce.Provider,
		"credential": "#" + strconv.Itoa(ce.Index),
	})
	if err != nil {
		slog.Warn("TRACKER: Failed to post credential alert", "error", err)
	}
}
