package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Case status values. A case is created "open", moves to "in_progress" when a
// lawyer accepts it, and may be flagged "info_requested" or "closed" by the
// assigned lawyer. Unassigning resets it to "open".
const (
	CaseStatusOpen          = "open"
	CaseStatusInProgress    = "in_progress"
	CaseStatusInfoRequested = "info_requested"
	CaseStatusClosed        = "closed"
)

// Case holds the structure for the cases collection in mongo
type Case struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details CaseDetails        `json:"case" bson:"case"`
	Version int32              `json:"__v" bson:"__v"`
}

// CaseDetails holds the structure for the inner case details
type CaseDetails struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`

	// ClientID is set at creation and never changes afterwards
	ClientID string `json:"clientId" bson:"clientId"`

	// AssignedLawyerID is empty while the case is unclaimed. At most one
	// lawyer holds a case at a time.
	AssignedLawyerID string `json:"assignedLawyerId" bson:"assignedLawyerId"`

	// Documents are opaque upload references (filenames/URLs); the server
	// never inspects file bytes
	Documents []string `json:"documents" bson:"documents"`

	// Analysis is the AI-generated case analysis captured at upload time
	Analysis string `json:"analysis" bson:"analysis"`

	Status string `json:"status" bson:"status"`

	Notes []CaseNote `json:"notes" bson:"notes"`

	HearingDetails *HearingDetails `json:"hearingDetails,omitempty" bson:"hearingDetails,omitempty"`

	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// CaseNote is a single timestamped note on a case
type CaseNote struct {
	AuthorRole string             `json:"authorRole" bson:"authorRole"`
	Text       string             `json:"text" bson:"text"`
	CreatedAt  primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// HearingDetails is the hearing metadata sub-record of a case. Updates
// replace the whole record rather than merging fields.
type HearingDetails struct {
	LastHearingDate    primitive.DateTime `json:"lastHearingDate" bson:"lastHearingDate"`
	LastHearingSummary string             `json:"lastHearingSummary" bson:"lastHearingSummary"`
	NextHearingDate    primitive.DateTime `json:"nextHearingDate" bson:"nextHearingDate"`
	Orders             []string           `json:"orders" bson:"orders"`

	// ReminderSentAt is stamped by the reminder job so each upcoming hearing
	// is announced at most once. Replacing the hearing record clears it.
	ReminderSentAt *primitive.DateTime `json:"reminderSentAt,omitempty" bson:"reminderSentAt,omitempty"`
}
