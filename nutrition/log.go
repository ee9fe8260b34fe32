package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for log keys.
const DateLayout = "2006-01-02"

var ErrIndexOutOfRange = errors.New("item index out of range")

type ItemKind string

const (
	KindReference ItemKind = "reference"
	KindAI        ItemKind = "ai"
)

// LogItem is one entry of a daily log. Reference items point at a catalog
// food and scale its per-serving macros by Quantity. AI items carry absolute
// Nutrition for Grams and ignore Quantity.
type LogItem struct {
	Kind      ItemKind `json:"kind"`
	Name      string   `json:"name"`
	Quantity  float64  `json:"quantity"`
	FoodRef   string   `json:"foodRef,omitempty"`
	Grams     float64  `json:"grams,omitempty"`
	Nutrition *Macros  `json:"nutrition,omitempty"`
}

func NewReferenceItem(foodRef, name string, quantity float64) LogItem {
	return LogItem{Kind: KindReference, Name: name, Quantity: quantity, FoodRef: foodRef}
}

func NewAIItem(name string, grams float64, n Macros) LogItem {
	return LogItem{Kind: KindAI, Name: name, Quantity: 1, Grams: grams, Nutrition: &n}
}

// UnmarshalJSON classifies documents stored without a kind: nutrition present
// means an AI item, anything else is a reference item.
func (i *LogItem) UnmarshalJSON(data []byte) error {
	type plain LogItem
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Kind == "" {
		if v.Nutrition != nil {
			v.Kind = KindAI
		} else {
			v.Kind = KindReference
		}
	}
	*i = LogItem(v)
	return nil
}

// Log is the ordered list of items a user recorded on one date.
type Log struct {
	UserID  string    `json:"userId"`
	Date    string    `json:"date"`
	Items   []LogItem `json:"items"`
	Version int64     `json:"version"`
}

func NewLog(userID, date string) Log {
	return Log{UserID: userID, Date: date, Items: []LogItem{}}
}

func (l *Log) Append(items ...LogItem) {
	l.Items = append(l.Items, items...)
}

// Remove deletes the item at position i, keeping the order of the rest.
func (l *Log) Remove(i int) error {
	if i < 0 || i >= len(l.Items) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(l.Items))
	}
	l.Items = append(l.Items[:i:i], l.Items[i+1:]...)
	return nil
}

// Clone returns a copy that shares no item storage with l.
func (l Log) Clone() Log {
	out := l
	out.Items = make([]LogItem, len(l.Items))
	for i, it := range l.Items {
		if it.Nutrition != nil {
			n := *it.Nutrition
			it.Nutrition = &n
		}
		out.Items[i] = it
	}
	return out
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
