package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/jwalitptl/bloodlink-api/internal/model"
)

var donorRequestTmpl = template.Must(template.New("donor_request").Parse(`<html><body>
<p>Dear {{.DonorName}},</p>
<p>A patient needs <strong>{{.Request.BloodType}}</strong> blood in <strong>{{.Request.Location}}</strong>.
Urgency: <strong>{{.Request.Urgency}}</strong>.</p>
<ul>
<li>Request: #{{.Request.ID}}</li>
{{if .Request.HospitalName}}<li>Hospital: {{.Request.HospitalName}}</li>{{end}}
<li>Contact: {{.Request.ContactNumber}}</li>
{{if .Request.Notes}}<li>Notes: {{.Request.Notes}}</li>{{end}}
</ul>
<p>Reply to this email with "YES" if you can donate, or "NO" if you cannot.</p>
{{if .RespondURL}}<p>You can also respond here: <a href="{{.RespondURL}}">{{.RespondURL}}</a></p>{{end}}
</body></html>`))

var requesterConfirmationTmpl = template.Must(template.New("requester_confirmation").Parse(`<html><body>
<p>Good news: a donor has confirmed for request #{{.Request.ID}} ({{.Request.PatientName}}).</p>
<ul>
<li>Donor: {{.Donor.Name}}</li>
<li>Blood type: {{.Donor.BloodType}}</li>
<li>Location: {{.Donor.Location}}</li>
{{if .Donor.Email}}<li>Email: {{.Donor.Email}}</li>{{end}}
{{if .Donor.Phone}}<li>Phone: {{.Donor.Phone}}</li>{{end}}
</ul>
{{if .Donor.IsIdentityHidden}}<p>This donor asked to keep their identity private. Please coordinate through the donation office.</p>{{end}}
</body></html>`))

// Composer renders the outbound messages of the workflow.
type Composer struct {
	publicBaseURL string
}

func NewComposer(publicBaseURL string) *Composer {
	return &Composer{publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// DonorRequest is the notification a matched donor receives. The subject
// carries "Request #<id>" and the headers carry both ids.
func (c *Composer) DonorRequest(req *model.DonorRequest, donor *model.DonorProfile) (model.OutboundEmail, error) {
	data := struct {
		DonorName  string
		Request    *model.DonorRequest
		RespondURL string
	}{
		DonorName: donor.DisplayName(),
		Request:   req,
	}
	if c.publicBaseURL != "" {
		data.RespondURL = fmt.Sprintf("%s/donor/requests/%d", c.publicBaseURL, req.ID)
	}

	var buf bytes.Buffer
	if err := donorRequestTmpl.Execute(&buf, data); err != nil {
		return model.OutboundEmail{}, fmt.Errorf("failed to render donor request email: %w", err)
	}

	return model.OutboundEmail{
		To:       donor.Email,
		Subject:  fmt.Sprintf("[%s] %s blood needed in %s - Request #%d", req.Urgency, req.BloodType, req.Location, req.ID),
		HTMLBody: buf.String(),
		Headers: map[string]string{
			HeaderRequestID: strconv.FormatInt(req.ID, 10),
			HeaderDonorID:   strconv.FormatInt(donor.ID, 10),
		},
	}, nil
}

// RequesterConfirmation tells the requester a donor confirmed. contact must
// already have identity hiding applied.
func (c *Composer) RequesterConfirmation(req *model.DonorRequest, contact model.DonorContact) (model.OutboundEmail, error) {
	data := struct {
		Request *model.DonorRequest
		Donor   model.DonorContact
	}{req, contact}

	var buf bytes.Buffer
	if err := requesterConfirmationTmpl.Execute(&buf, data); err != nil {
		return model.OutboundEmail{}, fmt.Errorf("failed to render requester email: %w", err)
	}

	return model.OutboundEmail{
		To:       req.RequesterEmail,
		Subject:  fmt.Sprintf("Donor confirmed for Request #%d", req.ID),
		HTMLBody: buf.String(),
		Headers: map[string]string{
			HeaderRequestID: strconv.FormatInt(req.ID, 10),
		},
	}, nil
}
