package luban

import (
	"context"
	"fmt"
	"time"

	"github.com/luban-do/lubando/internal/calendar"
)

// Reading is one canonical hour from the Opus Dei feed.
type Reading struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Saint is an entry from the saints-of-the-day feed.
type Saint struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// QuoteFeed is the raw multilingual quote payload.
type QuoteFeed struct {
	Text    []QuoteText `json:"text"`
	Ref     []QuoteRef  `json:"ref"`
	Context []QuoteText `json:"context"`
}

// QuoteText is one translation of a quote or its context.
type QuoteText struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// QuoteRef is one translation of the scripture reference.
type QuoteRef struct {
	Language string `json:"language"`
	Book     string `json:"book"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	VerseEnd int    `json:"verse_end"`
}

// OrderOfMass returns the HTML order of mass for the day.
func (c *Client) OrderOfMass(ctx context.Context, day time.Time) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	target := c.devotional.JoinPath("od_order_of_mass", calendar.FormatCompact(day)).String()
	if err := c.getJSON(ctx, "order_of_mass", target, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("order_of_mass: %w", ErrInvalidResponse)
	}
	return resp.Text, nil
}

// OpusDei returns the day's readings for the canonical hours.
func (c *Client) OpusDei(ctx context.Context, day time.Time) ([]Reading, error) {
	var readings []Reading
	target := c.devotional.JoinPath("od_opus_dei", calendar.FormatCompact(day)).String()
	if err := c.getJSON(ctx, "opus_dei", target, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// Saints returns the saints of the day.
func (c *Client) Saints(ctx context.Context, day time.Time) ([]Saint, error) {
	var saints []Saint
	target := c.devotional.JoinPath("od_saints_of_the_day", calendar.FormatCompact(day)).String()
	if err := c.getJSON(ctx, "saints", target, &saints); err != nil {
		return nil, err
	}
	return saints, nil
}

// Quote returns a random quote in every available language.
func (c *Client) Quote(ctx context.Context) (QuoteFeed, error) {
	var feed QuoteFeed
	if err := c.getJSON(ctx, "quote", c.quoteURL, &feed); err != nil {
		return QuoteFeed{}, err
	}
	return feed, nil
}
