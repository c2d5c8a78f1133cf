package booking

import (
	"regexp"
	"strings"
	"time"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const dateLayout = "2006-01-02"

var timeLayouts = []string{"3:04 PM", "3:04PM", "15:04", "15:04:05"}

func (in CreateBookingInput) normalized() CreateBookingInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.ToUpper(strings.TrimSpace(in.Time))
	in.Message = strings.TrimSpace(in.Message)
	in.ConsultationType = strings.TrimSpace(in.ConsultationType)
	in.PracticeType = strings.TrimSpace(in.PracticeType)
	in.PracticeWebsite = strings.TrimSpace(in.PracticeWebsite)
	in.SlotID = strings.TrimSpace(in.SlotID)
	return in
}

// validate returns nil when the input is acceptable.
func validate(in CreateBookingInput) *domain.ValidationError {
	vErr := domain.NewValidationError()
	if in.Name == "" {
		vErr.Add("name", "name is required")
	}
	if in.Email == "" {
		vErr.Add("email", "email is required")
	} else if !emailPattern.MatchString(in.Email) {
		vErr.Add("email", "invalid email format")
	}
	if in.Date == "" {
		vErr.Add("date", "date is required")
	}
	if in.Time == "" {
		vErr.Add("time", "time is required")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// parseStart reads the wall-clock date and time in the firm's timezone.
func parseStart(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		vErr := domain.NewValidationError()
		vErr.Add("date", "invalid date, expected YYYY-MM-DD")
		return time.Time{}, vErr
	}

	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	vErr := domain.NewValidationError()
	vErr.Add("time", "invalid time, expected e.g. 10:00 AM")
	return time.Time{}, vErr
}
