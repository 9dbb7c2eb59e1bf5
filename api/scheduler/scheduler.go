package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/models"
	templates "github.com/mizan-meet/mizan-api/templates/html"
)

// Reports still pending after this long get escalated
const escalationAge = 7 * 24 * time.Hour

// Scheduler handles periodic background jobs for the reporting program
type Scheduler struct {
	cron *cron.Cron
	CDB  databases.CrimeDatabase
	UDB  databases.UserDatabase
	PVDB databases.PendingVerificationDatabase
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	cDB databases.CrimeDatabase,
	uDB databases.UserDatabase,
	pvDB databases.PendingVerificationDatabase,
) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		CDB:  cDB,
		UDB:  uDB,
		PVDB: pvDB,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Escalate stale pending reports daily at 3 AM UTC
	_, err := s.cron.AddFunc("0 3 * * *", s.escalateStaleReports)
	if err != nil {
		zap.S().Errorw("failed to register escalation job", "error", err)
	}

	// Purge expired signup verification codes hourly
	_, err = s.cron.AddFunc("0 * * * *", s.purgeExpiredVerifications)
	if err != nil {
		zap.S().Errorw("failed to register verification purge job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Report scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Report scheduler stopped")
}

// escalateStaleReports flags reports that have sat in pending for too long
// and notifies the victim that their report is still being worked
func (s *Scheduler) escalateStaleReports() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-escalationAge)

	zap.S().Infow("Running stale report escalation job", "cutoff", cutoff)

	staleFilter := bson.M{
		"crime.status":    models.CrimeStatusPending,
		"crime.escalated": false,
		"crime.createdAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	}

	staleCrimes, err := s.CDB.Find(ctx, staleFilter)
	if err != nil {
		zap.S().Errorw("failed to find stale reports", "error", err)
		return
	}

	escalated := 0
	for _, crime := range staleCrimes {
		if s.escalateReport(ctx, crime) {
			escalated++
		}
	}

	zap.S().Infow("Stale report escalation complete",
		"candidates", len(staleCrimes),
		"escalated", escalated,
	)
}

// escalateReport marks one report escalated and emails the victim
func (s *Scheduler) escalateReport(ctx context.Context, crime models.Crime) bool {
	now := primitive.NewDateTimeFromTime(time.Now())

	update := bson.M{
		"$set": bson.M{
			"crime.escalated": true,
			"crime.updatedAt": now,
		},
	}
	if _, err := s.CDB.UpdateOne(ctx, bson.M{"_id": crime.ID}, update); err != nil {
		zap.S().Errorw("failed to escalate report", "error", err, "crimeId", crime.ID)
		return false
	}

	victim, err := s.UDB.FindOne(ctx, bson.M{"_id": crime.Details.VictimID})
	if err != nil {
		zap.S().Warnw("escalated report has no resolvable victim", "crimeId", crime.ID, "victimId", crime.Details.VictimID)
		return true
	}

	go s.sendEscalationEmail(victim.Details.Email, victim.Details.Name, crime)
	return true
}

// sendEscalationEmail tells the victim their report has been escalated
func (s *Scheduler) sendEscalationEmail(toEmail, name string, crime models.Crime) {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		zap.S().Warn("SENDGRID_API_KEY is not set, skipping escalation email")
		return
	}

	subject := "Your report has been escalated"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour report \"%s\" filed on %s has been open for over a week, so we have escalated it for priority review.\n\nYou can check its status any time from the My Cases screen, or message a support organization directly from the app.",
		name, crime.Details.Crime, crime.Details.Date,
	)

	from := mail.NewEmail("MIZAN", "no-reply@mizan-meet.com")
	to := mail.NewEmail(name, toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, templates.RenderGenericEmail(subject, body))

	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send escalation email", "error", err, "to", toEmail)
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
	}
}

// purgeExpiredVerifications drops signup codes that were never confirmed
func (s *Scheduler) purgeExpiredVerifications() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.PVDB.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": primitive.NewDateTimeFromTime(time.Now())},
	})
	if err != nil {
		zap.S().Errorw("failed to purge expired verifications", "error", err)
		return
	}
	if deleted > 0 {
		zap.S().Infow("Purged expired verification codes", "deleted", deleted)
	}
}
