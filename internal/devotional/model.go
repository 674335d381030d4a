package devotional

import (
	"errors"

	"github.com/luban-do/lubando/internal/luban"
)

// ExpectedReadings is the number of canonical hours the feed should return.
const ExpectedReadings = 5

// Hour is one canonical hour of the Liturgy of the Hours.
type Hour struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Short string `json:"short"`
}

// Hours lists the canonical hours in the order they are prayed.
var Hours = []Hour{
	{Key: "officium lectionis", Title: "Officium Lectionis (誦讀)", Short: "誦"},
	{Key: "laudes", Title: "Laudes (晨禱)", Short: "晨"},
	{Key: "hora media", Title: "Hora Media (日課)", Short: "日"},
	{Key: "vesperas", Title: "Vesperas (晚禱)", Short: "晚"},
	{Key: "completorium", Title: "Completorium (夜禱)", Short: "夜"},
}

// Day is the devotional content for one date.
type Day struct {
	Date     string          `json:"date"`
	MassHTML string          `json:"mass_html"`
	Readings []luban.Reading `json:"readings"`
	Saints   []luban.Saint   `json:"saints"`
	Warning  string          `json:"warning,omitempty"`
}

// Reading is a single hour's text with its display title.
type Reading struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Short     string `json:"short"`
	Available bool   `json:"available"`
	Text      string `json:"text,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Quote is a scripture quote in Traditional Chinese (Hong Kong).
type Quote struct {
	Text     string `json:"text"`
	Context  string `json:"context"`
	Book     string `json:"book"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	VerseEnd int    `json:"verse_end,omitempty"`
}

const quoteLanguage = "zh_hk"

var (
	ErrFetchFailed        = errors.New("Failed to fetch data. Please try again later.")
	ErrNoQuote            = errors.New("No zh_hk quote found")
	ErrReadingUnavailable = errors.New("讀經內容不可用。請稍後再試。")
	ErrInvalidIndex       = errors.New("invalid reading index")
)
