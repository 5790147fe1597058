package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"acumensync/faults"
)

// GoogleClient writes events to one Google calendar.
type GoogleClient struct {
	service    *gcal.Service
	calendarID string
}

// NewGoogleClient builds a client from an OAuth credentials file with
// events-only scope, matching the access the pipeline needs.
func NewGoogleClient(ctx context.Context, calendarID, credentialsFile string) (*GoogleClient, error) {
	if calendarID == "" {
		return nil, errors.New("calendar id is required")
	}

	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse calendar credentials: %w", err)
	}

	service, err := gcal.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("build calendar service: %w", err)
	}

	return &GoogleClient{service: service, calendarID: calendarID}, nil
}

func (c *GoogleClient) Create(ctx context.Context, event Event) (string, error) {
	created, err := c.service.Events.Insert(c.calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", classify("calendar create", err)
	}
	return created.Id, nil
}

func (c *GoogleClient) Update(ctx context.Context, eventID string, event Event) error {
	_, err := c.service.Events.Update(c.calendarID, eventID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return classify("calendar update", err)
	}
	return nil
}

func (c *GoogleClient) Delete(ctx context.Context, eventID string) error {
	err := c.service.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			// Already absent; deletion is idempotent.
			return nil
		}
		return classify("calendar delete", err)
	}
	return nil
}

func toGoogleEvent(event Event) *gcal.Event {
	return &gcal.Event{
		Summary: event.Summary,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.Timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.Timezone,
		},
		ColorId: event.ColorID,
	}
}

// classify maps Google API failures onto the pipeline's error taxonomy:
// auth problems are fatal for the run, throttling and server errors are
// retryable.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return faults.Fatal(op, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return faults.Transient(op, err)
		}
		return faults.Fatal(op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.Transient(op, err)
	}
	return faults.Transient(op, err)
}
