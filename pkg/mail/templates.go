package mail

import "html/template"

var tutorAssignedTmpl = template.Must(template.New("tutor_assigned").Parse(`<p>Hi {{.RecipientName}},</p>
<p>The assignment <strong>{{.CourseName}}</strong> (code {{.ExternalID}}) has been assigned to you.</p>
<p>Amount: {{printf "%.2f" .Amount}}</p>
<p>Please log in to Pisqre to submit your answer before the deadline.</p>`))

var assignmentAnsweredTmpl = template.Must(template.New("assignment_answered").Parse(`<p>Hi {{.RecipientName}},</p>
<p>Your assignment <strong>{{.CourseName}}</strong> (code {{.ExternalID}}) has been answered.</p>
<p>Log in to Pisqre to view the solution.</p>`))

var bookingConfirmedTmpl = template.Must(template.New("booking_confirmed").Parse(`<p>Hi {{.StudentName}},</p>
<p>Your session with <strong>{{.TutorName}}</strong> has been booked.</p>
<ul>
<li>Course: {{.CourseName}}</li>
<li>Session: {{.SessionType}}, {{.Duration}}</li>
<li>Time: {{.StartAt.Format "Mon, 02 Jan 2006 15:04 MST"}}</li>
<li>Price: {{printf "%.2f" .Price}}</li>
</ul>
<p>{{.Description}}</p>`))
