package core

// Built-in collection keys, as used in report scopes and export URLs.
const (
	KeyRegistration = "eventRegistration"
	KeyContact      = "contact"
	KeyNewsletter   = "newsletter"
)

// Column describes one stored field of a kind.
type Column struct {
	Name     string // Field name in records, reports and CSV headers: "firstName"
	Input    string // Submitted field name when it differs from Name: "ticket"
	DBColumn string // Store column: "first_name"
	Rules    string // validator tag applied to the submitted value
	Label    string // Report column heading
}

// InputName returns the submitted field name for the column.
func (c Column) InputName() string {
	if c.Input != "" {
		return c.Input
	}
	return c.Name
}

// Messages holds the user-visible responses for one kind.
type Messages struct {
	Success  string
	Conflict string
	Failure  string
}

// Kind describes one submission collection. The submission processor, report
// aggregator, export serializer and record stores are all driven by it.
type Kind struct {
	Key       string // eventRegistration
	ReportKey string // eventRegistrations
	Table     string // event_registrations
	Label     string
	Order     int
	Columns   []Column
	Unique    string // Column name that must be unique; "" when duplicates are allowed
	Template  string // Confirmation template name
	Subject   string // Confirmation email subject
	Ticket    bool   // Render a display-only ticket identifier into the confirmation
	Messages  Messages
}

// Column returns the named column.
func (k Kind) Column(name string) (Column, bool) {
	for _, c := range k.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the field names in declaration order.
func (k Kind) ColumnNames() []string {
	names := make([]string, len(k.Columns))
	for i, c := range k.Columns {
		names[i] = c.Name
	}
	return names
}

// UniqueColumn returns the DB column carrying the uniqueness constraint.
func (k Kind) UniqueColumn() (string, bool) {
	if k.Unique == "" {
		return "", false
	}
	c, _ := k.Column(k.Unique)
	return c.DBColumn, true
}

// RegistrationKind is the event registration collection.
var RegistrationKind = Kind{
	Key:       KeyRegistration,
	ReportKey: "eventRegistrations",
	Table:     "event_registrations",
	Label:     "Event Registrations",
	Order:     1,
	Columns: []Column{
		{Name: "firstName", DBColumn: "first_name", Rules: "required", Label: "First Name"},
		{Name: "lastName", DBColumn: "last_name", Rules: "required", Label: "Last Name"},
		{Name: "email", DBColumn: "email", Rules: "required,email", Label: "Email"},
		{Name: "phone", DBColumn: "phone", Rules: "required", Label: "Phone"},
		{Name: "gender", DBColumn: "gender", Rules: "required", Label: "Gender"},
		{Name: "attendanceType", Input: "ticket", DBColumn: "attendance_type", Rules: "required", Label: "Attendance Type"},
	},
	Unique:   "email",
	Template: "registration",
	Subject:  "SIC Africa Event Registration Confirmation",
	Ticket:   true,
	Messages: Messages{
		Success:  "Registration successful",
		Conflict: "This email has already been registered.",
		Failure:  "Error submitting registration",
	},
}

// ContactKind is the contact inquiry collection. The same email may submit
// any number of messages.
var ContactKind = Kind{
	Key:       KeyContact,
	ReportKey: "contacts",
	Table:     "contacts",
	Label:     "Contact Messages",
	Order:     2,
	Columns: []Column{
		{Name: "name", DBColumn: "name", Rules: "required", Label: "Name"},
		{Name: "phone", DBColumn: "phone", Rules: "required", Label: "Phone"},
		{Name: "email", DBColumn: "email", Rules: "required,email", Label: "Email"},
		{Name: "subject", DBColumn: "subject", Rules: "required", Label: "Subject"},
		{Name: "comment", Input: "message", DBColumn: "comment", Rules: "required", Label: "Message"},
	},
	Template: "contact",
	Subject:  "We Received Your Message",
	Messages: Messages{
		Success:  "Contact form submitted successfully",
		Conflict: "This email has already been used.",
		Failure:  "Error submitting contact form",
	},
}

// NewsletterKind is the newsletter subscription collection.
var NewsletterKind = Kind{
	Key:       KeyNewsletter,
	ReportKey: "newsletters",
	Table:     "newsletter_subscriptions",
	Label:     "Newsletter Subscribers",
	Order:     3,
	Columns: []Column{
		{Name: "email", DBColumn: "email", Rules: "required,email", Label: "Email"},
	},
	Unique:   "email",
	Template: "newsletter",
	Subject:  "Welcome to SIC Africa Newsletter!",
	Messages: Messages{
		Success:  "Newsletter subscription successful",
		Conflict: "This email is already subscribed.",
		Failure:  "Error subscribing to newsletter",
	},
}

func init() {
	Register(RegistrationKind)
	Register(ContactKind)
	Register(NewsletterKind)
}
