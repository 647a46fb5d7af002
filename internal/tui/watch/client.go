package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/forgeline/internal/events"
)

const pollInterval = time.Second

// RunRemote starts the watch TUI against a running service, polling its
// /status/events feed. Blocks until the user quits.
func RunRemote(baseURL string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan events.StatusEvent, 128)
	go pollStatus(ctx, baseURL, ch)

	p := tea.NewProgram(newModel(ch, cancel))
	_, err := p.Run()
	return err
}

// pollStatus fetches status deltas from the service and feeds them to ch.
// Fetch errors are retried on the next tick; the feed resumes from the last
// sequence number seen.
func pollStatus(ctx context.Context, baseURL string, ch chan<- events.StatusEvent) {
	defer close(ch)

	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastSeq int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		evs, err := fetchStatusEvents(ctx, client, baseURL, lastSeq)
		if err != nil {
			continue
		}
		for _, ev := range evs {
			if ev.Seq > lastSeq {
				lastSeq = ev.Seq
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// fetchStatusEvents requests buffered status events with Seq > since.
func fetchStatusEvents(ctx context.Context, client *http.Client, baseURL string, since int64) ([]events.StatusEvent, error) {
	url := fmt.Sprintf("%s/status/events?since=%d", strings.TrimRight(baseURL, "/"), since)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch status events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status feed returned %s", resp.Status)
	}

	var evs []events.StatusEvent
	if err := json.NewDecoder(resp.Body).Decode(&evs); err != nil {
		return nil, fmt.Errorf("decode status events: %w", err)
	}
	return evs, nil
}
