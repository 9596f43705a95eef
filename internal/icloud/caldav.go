package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"scheduleai/internal/models"
)

const (
	iCloudCalDAVEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "scheduleai/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient is a client for interacting with a CalDAV server (iCloud).
// It serves as the alternative calendar backend to Google Calendar.
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarURL  string
	username     string
	timezone     *time.Location
}

// NewClient creates and initializes a new CalDAVClient for iCloud.
func NewClient(logger *slog.Logger, username, password, calendarName string, tz *time.Location) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		username:     username,
		timezone:     tz,
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Successfully found iCloud calendar", "url", calendarURL)

	return c, nil
}

// CreateEvent writes a booking into the iCloud calendar. CalDAV has no
// confirmation link, so the returned link is always empty.
func (c *CalDAVClient) CreateEvent(ctx context.Context, event *models.Event) (string, error) {
	if event.UID == "" {
		event.UID = GenerateUID()
	}
	c.logger.Debug("Creating event in iCloud", "eventTitle", event.Title, "uid", event.UID)

	vevent := c.toICal(event)
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//scheduleai//EN")
	cal.Children = append(cal.Children, vevent)

	// The event path must be relative to the endpoint for the webdav client.
	eventPath := path.Join(strings.TrimPrefix(c.calendarURL, iCloudCalDAVEndpoint), fmt.Sprintf("%s.ics", event.UID))

	writer, err := c.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return "", fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode event to iCal format: %w", err)
	}

	c.logger.Info("Successfully created event in iCloud", "eventTitle", event.Title)
	return "", nil
}

// ListUpcoming queries the calendar for events in the next N days.
func (c *CalDAVClient) ListUpcoming(ctx context.Context, days int) ([]*models.Event, error) {
	start := time.Now().UTC()
	end := start.Add(time.Duration(days) * 24 * time.Hour)

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start,
				End:   end,
			}},
		},
	}

	calendarPath := strings.TrimPrefix(c.calendarURL, strings.TrimSuffix(iCloudCalDAVEndpoint, "/"))
	objects, err := c.caldavClient.QueryCalendar(ctx, calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []*models.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			event, err := c.toInternalEvent(ev)
			if err != nil {
				c.logger.Error("Skipping unreadable event", "path", obj.Path, "error", err)
				continue
			}
			events = append(events, event)
		}
	}

	c.logger.Info("Successfully fetched events from iCloud", "count", len(events))
	return events, nil
}

// toICal converts an internal Event model to an ical.Component (VEvent).
func (c *CalDAVClient) toICal(event *models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.Recurrence != "" {
		// The property value excludes the "RRULE:" name.
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = strings.TrimPrefix(event.Recurrence, "RRULE:")
		ve.Props.Add(p)
	}
	return ve
}

// toInternalEvent converts a fetched VEVENT into the internal Event model.
func (c *CalDAVClient) toInternalEvent(ev ical.Event) (*models.Event, error) {
	start, err := ev.DateTimeStart(c.timezone)
	if err != nil {
		return nil, fmt.Errorf("event has no readable start time: %w", err)
	}
	end, err := ev.DateTimeEnd(c.timezone)
	if err != nil {
		end = start
	}

	event := &models.Event{
		StartTime: start.In(c.timezone),
		EndTime:   end.In(c.timezone),
	}
	if p := ev.Props.Get(ical.PropSummary); p != nil {
		event.Title = p.Value
	}
	if p := ev.Props.Get(ical.PropDescription); p != nil {
		event.Description = p.Value
	}
	if p := ev.Props.Get(ical.PropLocation); p != nil {
		event.Location = p.Value
	}
	if p := ev.Props.Get(ical.PropUID); p != nil {
		event.UID = p.Value
		event.ID = p.Value
	}
	return event, nil
}

// findCalendar discovers the user's calendars and returns the URL for the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			// Return the full URL for the calendar
			return fmt.Sprintf("%s%s", strings.TrimSuffix(iCloudCalDAVEndpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
