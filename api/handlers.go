package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nutripal/nutrition"
	"nutripal/tracker"

	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Tracker is the subset of tracker.Service the handlers call.
type Tracker interface {
	AddFromText(ctx context.Context, userID uuid.UUID, req tracker.ParseRequest) (tracker.ParseResult, error)
	AddFood(ctx context.Context, userID uuid.UUID, date, foodName string, quantity float64) (nutrition.Log, error)
	DeleteItem(ctx context.Context, userID uuid.UUID, date string, index int) (nutrition.Log, error)
	GetLog(ctx context.Context, userID uuid.UUID, date string) (nutrition.Log, error)
	Summarize(ctx context.Context, userID uuid.UUID, date string) (tracker.Summary, error)
	SaveProfile(ctx context.Context, userID uuid.UUID, p nutrition.Profile) (tracker.ProfileReport, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch tracker.ProfilePatch) (tracker.ProfileReport, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*nutrition.Profile, error)
}

type FoodLister interface {
	All() []nutrition.Food
	Search(query string, limit int) []nutrition.Food
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	tracker     Tracker
	foods       FoodLister
	db          Pinger
	searchLimit int
}

func NewHandler(t Tracker, foods FoodLister, db Pinger, searchLimit int) *Handler {
	return &Handler{tracker: t, foods: foods, db: db, searchLimit: searchLimit}
}

type parseMealRequest struct {
	Text    string `json:"text"`
	Date    string `json:"date"`
	AutoAdd bool   `json:"autoAdd"`
	UseAI   *bool  `json:"useAI"`
}

func (h *Handler) ParseMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req parseMealRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.tracker.AddFromText(r.Context(), userID, tracker.ParseRequest{
		Text:    req.Text,
		Date:    req.Date,
		AutoAdd: req.AutoAdd,
		UseAI:   req.UseAI,
	})
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, res)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	s, err := h.tracker.Summarize(r.Context(), userID, r.PathValue("date"))
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, s)
}

func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	l, err := h.tracker.GetLog(r.Context(), userID, r.PathValue("date"))
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, l)
}

type addFoodRequest struct {
	FoodName string  `json:"foodName"`
	Quantity float64 `json:"quantity"`
}

func (h *Handler) AddFood(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req addFoodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	l, err := h.tracker.AddFood(r.Context(), userID, r.PathValue("date"), req.FoodName, req.Quantity)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, l)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(r.PathValue("itemIndex"))
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "itemIndex must be an integer")
		return
	}
	l, err := h.tracker.DeleteItem(r.Context(), userID, r.PathValue("date"), idx)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, l)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	p, err := h.tracker.GetProfile(r.Context(), userID)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, p)
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	var p nutrition.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	rep, err := h.tracker.SaveProfile(r.Context(), userID, p)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, rep)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUser(w, r)
	if !ok {
		return
	}
	var patch tracker.ProfilePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	rep, err := h.tracker.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, rep)
}

func (h *Handler) ListFoods(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, h.foods.All())
}

func (h *Handler) SearchFoods(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("query"))
	if q == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "Query is required")
		return
	}
	WriteJSONResponse(w, http.StatusOK, h.foods.Search(q, h.searchLimit))
}

type bmiPlanRequest struct {
	HeightCm      *float64                 `json:"heightCm"`
	WeightKg      *float64                 `json:"weightKg"`
	Age           *int                     `json:"age"`
	Sex           *nutrition.Sex           `json:"sex"`
	ActivityLevel *nutrition.ActivityLevel `json:"activityLevel"`
}

// BMIPlan answers a one-off assessment without touching stored data.
func (h *Handler) BMIPlan(w http.ResponseWriter, r *http.Request) {
	var req bmiPlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.HeightCm == nil || req.WeightKg == nil || req.Age == nil || req.Sex == nil || req.ActivityLevel == nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "Missing required fields.")
		return
	}
	p := nutrition.Profile{
		HeightCm:      *req.HeightCm,
		WeightKg:      *req.WeightKg,
		Age:           *req.Age,
		Sex:           *req.Sex,
		ActivityLevel: *req.ActivityLevel,
	}
	if err := p.Validate(); err != nil {
		writeTrackerError(w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, nutrition.Assess(p))
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, HealthResponse{Status: "alive"})
}

// ReadinessCheck reports degraded when the store cannot be reached.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		WriteJSONResponse(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "degraded",
			Details: map[string]any{"db": err.Error()},
		})
		return
	}
	WriteJSONResponse(w, http.StatusOK, HealthResponse{
		Status:  "ready",
		Details: map[string]any{"db": "ok"},
	})
}

func mustUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
	}
	return id, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}
