// Package notify posts update results to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bestpick/internal/diag"
	"bestpick/internal/pipeline"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	colorLayout  = 0xE74C3C
	colorPartial = 0xE67E22
	colorClean   = 0x57F287

	requestTimeout = 10 * time.Second
	maxAttempts    = 3

	// Discord rejects embed field values over 1024 characters
	maxFieldLen = 1024

	layoutMention = "@here lolalytics page layout changed!"
)

// Message is the JSON body of a webhook call
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title  string  `json:"title,omitempty"`
	Color  int     `json:"color,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Footer *Footer `json:"footer,omitempty"`
}

// Field represents a field in a Discord embed
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Footer represents the footer of a Discord embed
type Footer struct {
	Text string `json:"text"`
}

// NewUpdateMessage describes one update run. A changed page layout mentions @here.
func NewUpdateMessage(summary pipeline.UpdateSummary, diags []diag.Diagnostic, runtime time.Duration) Message {
	var layout, acquisition []string
	for _, d := range diags {
		switch d.Kind {
		case diag.StructuralParseError:
			layout = append(layout, d.Table.String())
		case diag.AcquisitionFailure:
			acquisition = append(acquisition, d.Table.String())
		}
	}

	embed := Embed{
		Title: "Update finished",
		Color: colorClean,
		Fields: []Field{
			counter("Acquired", summary.Acquired),
			counter("Extracted", summary.Extracted),
			counter("Failed", summary.Failed),
		},
		Footer: &Footer{Text: "Runtime " + formatRuntime(runtime)},
	}

	msg := Message{}
	if len(acquisition) > 0 {
		embed.Title = "Update finished with failures"
		embed.Color = colorPartial
		embed.Fields = append(embed.Fields, Field{Name: "Not acquired", Value: listField(acquisition)})
	}
	if len(layout) > 0 {
		msg.Content = layoutMention
		embed.Title = "Page layout changed"
		embed.Color = colorLayout
		embed.Fields = append(embed.Fields, Field{Name: "Not extracted", Value: listField(layout)})
	}
	msg.Embeds = []Embed{embed}
	return msg
}

func counter(name string, n int) Field {
	return Field{Name: name, Value: strconv.Itoa(n), Inline: true}
}

// Notifier posts messages to a single Discord webhook
type Notifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewNotifier creates a Notifier posting to url
func NewNotifier(url string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// SendUpdate posts the result of an update run
func (n *Notifier) SendUpdate(ctx context.Context, summary pipeline.UpdateSummary, diags []diag.Diagnostic, runtime time.Duration) error {
	return n.Send(ctx, NewUpdateMessage(summary, diags, runtime))
}

// Send posts msg, waiting out rate limits between attempts. Gives up after
// maxAttempts rate limited responses without waiting again.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		wait, err := n.post(ctx, body)
		if err != nil || wait < 0 {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		n.logger.Debug().Int("attempt", attempt).Dur("retry_after", wait).Msg("webhook rate limited")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("webhook still rate limited after %d attempts", maxAttempts)
}

// post sends one request. A non-negative wait means the call was rate limited.
func (n *Notifier) post(ctx context.Context, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return -1, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return -1, fmt.Errorf("failed to post webhook: %w", err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return -1, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second, nil
		}
		return time.Second, nil
	default:
		return -1, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}

// listField joins items one per line, cut to fit a single embed field
func listField(items []string) string {
	var b strings.Builder
	for i, item := range items {
		line := item + "\n"
		if b.Len()+len(line) > maxFieldLen-16 {
			fmt.Fprintf(&b, "... and %d more", len(items)-i)
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatRuntime renders d as "3m 12s"
func formatRuntime(d time.Duration) string {
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
