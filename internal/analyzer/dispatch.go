package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"

	"truthx/internal/audit"
	"truthx/internal/logging"
	"truthx/internal/notifications"
	"truthx/internal/report"
)

// dispatch records the report and publishes notifications in the background.
// Failures are logged and never reach the caller.
func (a *Analyzer) dispatch(ctx context.Context, rep report.Report, subj subject) {
	entry := newEntry(rep, subj)
	logger := logging.WithContext(ctx, a.logger)
	ctx = context.WithoutCancel(ctx)

	a.background.Add(1)
	go func() {
		defer a.background.Done()
		ctx, cancel := context.WithTimeout(ctx, a.sinkTimeout)
		defer cancel()

		if err := a.sink.Record(ctx, entry); err != nil {
			logging.WarnWithContext(logger, "audit record failed", "audit_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the audit database and audit.rest_url"),
				logging.String(logging.FieldImpact, "analysis missing from history"),
			)
			a.alert(ctx, logger, "audit log", err)
		}
		a.publish(ctx, logger, notifications.EventAnalysisCompleted, rep, entry)
		if rep.HighRisk() {
			a.publish(ctx, logger, notifications.EventHighRisk, rep, entry)
		}
	}()
}

func (a *Analyzer) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, rep report.Report, entry audit.Entry) {
	payload := notifications.Payload{
		"requestID": rep.RequestID,
		"fileType":  entry.FileType,
		"score":     rep.Score,
		"riskLevel": string(rep.RiskLevel),
		"summary":   rep.Summary,
	}
	if entry.FileType == audit.FileTypeVideo {
		payload["fileName"] = entry.FileName
	}
	if err := a.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "operator not alerted"),
		)
	}
}

// alert pushes an operator-facing error notification.
func (a *Analyzer) alert(ctx context.Context, logger *slog.Logger, label string, cause error) {
	payload := notifications.Payload{"context": label, "error": cause.Error()}
	if err := a.notifier.Publish(ctx, notifications.EventError, payload); err != nil {
		logger.Warn("error notification failed", logging.Error(err))
	}
}

func newEntry(rep report.Report, subj subject) audit.Entry {
	entry := audit.Entry{
		RequestID: rep.RequestID,
		FileName:  audit.TextQueryFileName,
		FileType:  audit.FileTypeText,
		Score:     rep.Score,
		RiskLevel: string(rep.RiskLevel),
		Summary:   rep.Summary,
		CreatedAt: rep.AnalyzedAt,
	}
	if rep.Metadata != nil {
		entry.FileName = subj.name
		entry.FileType = audit.FileTypeVideo
		entry.MIMEType = subj.mimeType
		entry.Digest = subj.digest
		if data, err := json.Marshal(rep.Metadata); err == nil {
			entry.MetadataJSON = string(data)
		}
	}
	return entry
}
