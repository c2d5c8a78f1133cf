package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type GoogleCalendar struct {
	service    *gcal.Service
	calendarID string
	createMeet bool
}

func NewGoogleCalendar(ctx context.Context, calendarID string, createMeet bool, opts ...option.ClientOption) (*GoogleCalendar, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &GoogleCalendar{service: svc, calendarID: calendarID, createMeet: createMeet}, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, in EventInput) (*Result, error) {
	call := g.service.Events.Insert(g.calendarID, buildEvent(in, g.createMeet)).SendUpdates("all").Context(ctx)
	if g.createMeet {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}
	return &Result{
		Success:     true,
		EventID:     created.Id,
		MeetingLink: meetingLink(created),
		HTMLLink:    created.HtmlLink,
		Event:       created,
	}, nil
}

func buildEvent(in EventInput, createMeet bool) *gcal.Event {
	ev := &gcal.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       &gcal.EventDateTime{DateTime: in.Start.Format(time.RFC3339), TimeZone: in.Timezone},
		End:         &gcal.EventDateTime{DateTime: in.End.Format(time.RFC3339), TimeZone: in.Timezone},
		Attendees:   []*gcal.EventAttendee{{Email: in.AttendeeEmail, DisplayName: in.AttendeeName}},
	}
	if createMeet {
		ev.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}
	return ev
}

func meetingLink(ev *gcal.Event) string {
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData == nil {
		return ""
	}
	for _, ep := range ev.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" && ep.Uri != "" {
			return ep.Uri
		}
	}
	return ""
}

var _ Creator = (*GoogleCalendar)(nil)
