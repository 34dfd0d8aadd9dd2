package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/models"
	templates "github.com/nyagrik/nyay-api/templates/html"
)

// Scheduler handles periodic background jobs, currently hearing reminders
type Scheduler struct {
	cron       *cron.Cron
	CaseDB     databases.CaseDatabase
	UDB        databases.UserDatabase
	LockDB     databases.SchedulerLockDatabase
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	caseDB databases.CaseDatabase,
	uDB databases.UserDatabase,
	lockDB databases.SchedulerLockDatabase,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%s", uuid.NewString())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		CaseDB:     caseDB,
		UDB:        uDB,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Send hearing reminders daily at 6 AM UTC
	_, err := s.cron.AddFunc("0 6 * * *", s.sendHearingReminders)
	if err != nil {
		zap.S().Errorw("failed to register hearing reminder job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Hearing reminder scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Hearing reminder scheduler stopped")
}

// sendHearingReminders emails the client and assigned lawyer of every case
// whose next hearing falls within the coming 24 hours
func (s *Scheduler) sendHearingReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (10 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "hearing_reminder_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for hearing reminder job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Hearing reminder job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "hearing_reminder_job", s.instanceID)

	now := time.Now()
	oneDayFromNow := now.Add(24 * time.Hour)

	zap.S().Infow("Running hearing reminder job", "instance", s.instanceID)

	filter := bson.M{
		"case.hearingDetails.nextHearingDate": bson.M{
			"$gt": primitive.NewDateTimeFromTime(now),
			"$lt": primitive.NewDateTimeFromTime(oneDayFromNow),
		},
		"case.hearingDetails.reminderSentAt": nil,
	}

	cases, err := s.CaseDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to find cases with upcoming hearings", "error", err)
		return
	}

	remindersSent := 0
	for _, caseDoc := range cases {
		if s.remindCaseParties(ctx, caseDoc) {
			remindersSent++
		}
	}

	zap.S().Infow("Hearing reminder job complete",
		"casesChecked", len(cases),
		"remindersSent", remindersSent,
	)
}

// remindCaseParties emails both parties of one case and stamps the hearing
// record so the reminder does not repeat tomorrow
func (s *Scheduler) remindCaseParties(ctx context.Context, caseDoc models.Case) bool {
	hearing := caseDoc.Details.HearingDetails
	if hearing == nil {
		return false
	}
	hearingTime := hearing.NextHearingDate.Time().Format("Mon, 2 Jan 2006 at 15:04 MST")

	sent := false
	if email, name := s.getUserContact(ctx, caseDoc.Details.ClientID); email != "" {
		body := fmt.Sprintf("Hi %s,\n\nThis is a reminder that your case \"%s\" has a hearing scheduled for %s.\n\nPlease be prepared and reach out to your lawyer with any questions.",
			name, caseDoc.Details.Title, hearingTime)
		if err := s.sendEmail(email, name, "Hearing reminder: "+caseDoc.Details.Title, body); err != nil {
			zap.S().Errorw("failed to send hearing reminder to client", "error", err, "caseId", caseDoc.ID.Hex())
		} else {
			sent = true
		}
	}

	if caseDoc.Details.AssignedLawyerID != "" {
		if email, name := s.getUserContact(ctx, caseDoc.Details.AssignedLawyerID); email != "" {
			body := fmt.Sprintf("Hi %s,\n\nThe case \"%s\" you are handling has a hearing scheduled for %s.",
				name, caseDoc.Details.Title, hearingTime)
			if err := s.sendEmail(email, name, "Hearing reminder: "+caseDoc.Details.Title, body); err != nil {
				zap.S().Errorw("failed to send hearing reminder to lawyer", "error", err, "caseId", caseDoc.ID.Hex())
			} else {
				sent = true
			}
		}
	}

	if !sent {
		return false
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	if _, err := s.CaseDB.UpdateOne(ctx, bson.M{"_id": caseDoc.ID}, bson.M{
		"$set": bson.M{"case.hearingDetails.reminderSentAt": now},
	}); err != nil {
		zap.S().Errorw("failed to stamp hearing reminder", "error", err, "caseId", caseDoc.ID.Hex())
	}
	return true
}

func (s *Scheduler) sendEmail(toEmail, toName, subject, body string) error {
	fromEmail := os.Getenv("EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "no-reply@nyagrik.org"
	}
	from := mail.NewEmail("Nyay", fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, templates.RenderGenericEmail(subject, body))
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

func (s *Scheduler) getUserContact(ctx context.Context, userID string) (email, name string) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", ""
	}
	user, err := s.UDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil || user.Details.Email == "" {
		return "", ""
	}
	return user.Details.Email, user.Details.FullName
}
