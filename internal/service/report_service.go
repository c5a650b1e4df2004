package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
	"github.com/edupulse/wellness-api/pkg/export"
	"github.com/edupulse/wellness-api/pkg/storage"
)

// ReportService renders weekly school summaries to CSV and PDF, stores the
// files on disk, and hands out signed download tokens.
type ReportService struct {
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	logger *zap.Logger
}

func NewReportService(store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		store:  store,
		signer: signer,
		logger: logger,
	}
}

// GenerateWeeklyExport renders the summary and per-teacher rows into both
// formats, stores them, and signs a download token for the CSV. The summary
// is updated in place with the token.
func (s *ReportService) GenerateWeeklyExport(summary *models.WeeklySchoolSummary, rows []models.TeacherAtRisk) error {
	dataset := weeklyDataset(summary, rows)

	exportID := uuid.NewString()
	base := fmt.Sprintf("%s/weekly-%s", summary.SchoolID, summary.WeekStart.Format("2006-01-02"))

	csvBytes, err := s.csv.Render(dataset)
	if err != nil {
		return appErrors.FromError(err)
	}
	csvPath, err := s.store.Save(base+".csv", csvBytes)
	if err != nil {
		return appErrors.FromError(err)
	}

	title := fmt.Sprintf("Weekly wellness summary %s", summary.WeekStart.Format("2006-01-02"))
	pdfBytes, err := s.pdf.Render(dataset, title)
	if err != nil {
		return appErrors.FromError(err)
	}
	if _, err := s.store.Save(base+".pdf", pdfBytes); err != nil {
		return appErrors.FromError(err)
	}

	token, expiresAt, err := s.signer.Generate(exportID, csvPath)
	if err != nil {
		return appErrors.FromError(err)
	}
	summary.DownloadToken = token
	summary.DownloadExpires = &expiresAt

	s.logger.Info("weekly export generated",
		zap.String("school_id", summary.SchoolID),
		zap.String("export_id", exportID),
		zap.String("path", csvPath))
	return nil
}

// OpenExport validates a signed token and returns a reader over the file.
func (s *ReportService) OpenExport(token string) (io.ReadCloser, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	if strings.Contains(relPath, "..") {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download path")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, relPath, nil
}

// CleanupExpired removes stored exports older than the TTL.
func (s *ReportService) CleanupExpired(ttl time.Duration) {
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

func weeklyDataset(summary *models.WeeklySchoolSummary, rows []models.TeacherAtRisk) export.Dataset {
	headers := []string{"Teacher", "Department", "Risk Level", "Wellness Score"}
	data := make([]map[string]string, 0, len(rows)+1)
	for _, row := range rows {
		data = append(data, map[string]string{
			"Teacher":        row.FullName,
			"Department":     row.Department,
			"Risk Level":     string(row.RiskLevel),
			"Wellness Score": strconv.FormatFloat(row.WellnessScore, 'f', 1, 64),
		})
	}
	data = append(data, map[string]string{
		"Teacher":        "SCHOOL AVERAGE",
		"Department":     "",
		"Risk Level":     string(summary.Trend.Direction),
		"Wellness Score": strconv.FormatFloat(summary.AverageWellness, 'f', 1, 64),
	})
	return export.Dataset{
		Headers:         headers,
		Numeric:         []string{"Wellness Score"},
		HighlightColumn: "Risk Level",
		HighlightValues: []string{string(models.RiskHigh), string(models.RiskCritical)},
		Rows:            data,
	}
}
