package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
)

var clientTemplate = template.Must(template.New("client").Parse(`<h2>Your consultation is booked</h2>
<p>Dear {{.Booking.ClientName}},</p>
<p>Thank you for booking a {{.Booking.EventTypeName}} with {{.FirmName}}.</p>
<p><strong>When:</strong> {{.When}} ({{.Booking.Timezone}})</p>
{{if .MeetingLink}}<p><strong>Join:</strong> <a href="{{.MeetingLink}}">{{.MeetingLink}}</a></p>{{end}}
<p>We will be in touch shortly with payment details to confirm your appointment.</p>
<p>Kind regards,<br>{{.FirmName}}</p>`))

var staffTemplate = template.Must(template.New("staff").Parse(`<h2>New booking: {{.Booking.EventTypeName}}</h2>
<ul>
<li><strong>Client:</strong> {{.Booking.ClientName}}</li>
<li><strong>Email:</strong> {{.Booking.ClientEmail}}</li>
{{if .Booking.ClientPhone}}<li><strong>Phone:</strong> {{.Booking.ClientPhone}}</li>{{end}}
<li><strong>When:</strong> {{.When}} ({{.Booking.Timezone}})</li>
{{with .Booking.CustomAnswers}}{{if .PracticeType}}<li><strong>Practice type:</strong> {{.PracticeType}}</li>{{end}}
{{if .PracticeWebsite}}<li><strong>Website:</strong> {{.PracticeWebsite}}</li>{{end}}
{{range .UploadedFiles}}<li><strong>File:</strong> {{.}}</li>{{end}}{{end}}
{{if .MeetingLink}}<li><strong>Meeting:</strong> {{.MeetingLink}}</li>{{end}}
<li><strong>Booking ID:</strong> {{.Booking.ID}}</li>
</ul>
{{if .Booking.Notes}}<p>{{.Booking.Notes}}</p>{{end}}`))

const whenLayout = "Monday, 2 January 2006 at 3:04 PM"

type Composer struct {
	from       string
	staffEmail string
	firmName   string
}

func NewComposer(from, staffEmail, firmName string) *Composer {
	return &Composer{from: from, staffEmail: staffEmail, firmName: firmName}
}

type templateData struct {
	Booking     *domain.Booking
	FirmName    string
	When        string
	MeetingLink string
}

func (c *Composer) ClientConfirmation(b *domain.Booking) (Message, error) {
	body, err := c.render(clientTemplate, b)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    c.from,
		To:      b.ClientEmail,
		Subject: fmt.Sprintf("Booking confirmed: %s with %s", b.EventTypeName, c.firmName),
		HTML:    body,
	}, nil
}

func (c *Composer) StaffNotification(b *domain.Booking) (Message, error) {
	body, err := c.render(staffTemplate, b)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    c.from,
		To:      c.staffEmail,
		Subject: fmt.Sprintf("New booking: %s - %s", b.ClientName, b.EventTypeName),
		HTML:    body,
	}, nil
}

func (c *Composer) render(t *template.Template, b *domain.Booking) (string, error) {
	data := templateData{Booking: b, FirmName: c.firmName, When: localTime(b)}
	if b.MeetingLink != nil {
		data.MeetingLink = *b.MeetingLink
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func localTime(b *domain.Booking) string {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return b.StartTime.In(loc).Format(whenLayout)
}
