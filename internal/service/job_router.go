package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	"github.com/edupulse/wellness-api/pkg/jobs"
)

// Mailer sends alert emails. The SMTP implementation lives outside this
// module; tests and development use LogMailer.
type Mailer interface {
	SendAlertEmail(ctx context.Context, to, subject, body string) error
}

// LogMailer writes would-be emails to the log. Used when no SMTP relay is
// configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m *LogMailer) SendAlertEmail(_ context.Context, to, subject, _ string) error {
	if m.Logger != nil {
		m.Logger.Sugar().Infow("alert email (log only)", "to", to, "subject", subject)
	}
	return nil
}

// JobRouter dispatches queued jobs to their handlers.
type JobRouter struct {
	mailer   Mailer
	reports  *ReportService
	notifier Notifier
	logger   *zap.Logger
}

func NewJobRouter(mailer Mailer, reports *ReportService, notifier Notifier, logger *zap.Logger) *JobRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobRouter{mailer: mailer, reports: reports, notifier: notifier, logger: logger}
}

// Handle implements jobs.Handler.
func (r *JobRouter) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobs.JobTypeAlertEmail:
		return r.handleAlertEmail(ctx, job)
	case jobs.JobTypeWeeklyExport:
		return r.handleWeeklyExport(job)
	default:
		r.logger.Warn("unknown job type", zap.String("type", job.Type))
		return nil
	}
}

func (r *JobRouter) handleAlertEmail(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(map[string]interface{})
	if !ok {
		return fmt.Errorf("alert email payload has unexpected shape")
	}
	to, _ := payload["email"].(string)
	title, _ := payload["title"].(string)
	alertID, _ := payload["alert_id"].(string)
	if to == "" {
		r.logger.Warn("alert email skipped, no recipient", zap.String("alert_id", alertID))
		return nil
	}
	body := fmt.Sprintf("A critical wellness alert was raised: %s (alert %s).", title, alertID)
	return r.mailer.SendAlertEmail(ctx, to, "Critical wellness alert", body)
}

func (r *JobRouter) handleWeeklyExport(job jobs.Job) error {
	payload, ok := job.Payload.(*WeeklyExportPayload)
	if !ok || payload.Summary == nil {
		return fmt.Errorf("weekly export payload has unexpected shape")
	}
	if err := r.reports.GenerateWeeklyExport(payload.Summary, payload.Rows); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.SendToRole(payload.Summary.SchoolID, models.AdminRoles, models.Notification{
			Type: models.MsgSystemNotification,
			Data: payload.Summary,
		})
	}
	return nil
}
