package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fenilmodi00/deals-backend/models"
	"github.com/fenilmodi00/deals-backend/services"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// reportSubject is the fixed subject line for every delivered report.
const reportSubject = "O2 Phone Deals"

// ErrRunInProgress is returned by Run when another run already holds the
// snapshot store. Callers that trigger runs on demand should treat it as a
// busy signal rather than a failure.
var ErrRunInProgress = errors.New("deal update run already in progress")

// CatalogFetcher supplies the run's raw variant records.
type CatalogFetcher interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
	FetchAllVariants(ctx context.Context, products []models.Product) []models.ProductVariant
}

// SnapshotStore is the narrow persistence contract the job needs: full read
// and full replace, nothing else.
type SnapshotStore interface {
	ReadAll(ctx context.Context) (map[models.DealKey]models.ProductVariant, error)
	ReplaceAll(ctx context.Context, deals []models.ProductVariant) error
}

// ReportNotifier delivers a non-empty formatted report.
type ReportNotifier interface {
	Send(subject, textBody, htmlBody string, recipients []string) error
}

// DealUpdateJob runs one full pass of the pipeline: fetch the catalog, rank
// and diff against the snapshot, rewrite the snapshot, and notify. Run
// serializes itself, so the scheduler and the admin trigger can share one
// job without overlapping snapshot writes.
type DealUpdateJob struct {
	Fetcher     CatalogFetcher
	Engine      *services.DealEngine
	Formatter   *services.ReportFormatter
	Store       SnapshotStore
	Notifier    ReportNotifier
	ResultLimit int
	Recipients  []string

	// runMutex gives the holder exclusive writer access to the snapshot
	// store for the duration of one run.
	runMutex sync.Mutex

	mutex   sync.RWMutex
	lastRun *models.RunSummary
}

func NewDealUpdateJob(
	fetcher CatalogFetcher,
	engine *services.DealEngine,
	formatter *services.ReportFormatter,
	store SnapshotStore,
	notifier ReportNotifier,
	resultLimit int,
	recipients []string,
) *DealUpdateJob {
	return &DealUpdateJob{
		Fetcher:     fetcher,
		Engine:      engine,
		Formatter:   formatter,
		Store:       store,
		Notifier:    notifier,
		ResultLimit: resultLimit,
		Recipients:  recipients,
	}
}

// Run executes one deal update pass. Per-product fetch failures are isolated
// inside the fetcher; anything returned here failed the run as a whole.
// Only one run may be in flight at a time; concurrent calls get
// ErrRunInProgress instead of queueing behind the active run.
func (j *DealUpdateJob) Run() error {
	if !j.runMutex.TryLock() {
		return ErrRunInProgress
	}
	defer j.runMutex.Unlock()

	runID := uuid.NewString()
	logger := logrus.WithFields(logrus.Fields{
		"job":    "DealUpdateJob",
		"run_id": runID,
	})

	logger.Info("Starting deal update run")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	products, err := j.Fetcher.FetchProducts(ctx)
	if err != nil {
		logger.Errorf("Failed to fetch product listing: %v", err)
		return fmt.Errorf("deal update run %s: %w", runID, err)
	}
	logger.WithField("products", len(products)).Info("Fetched catalog products")

	variants := j.Fetcher.FetchAllVariants(ctx, products)
	logger.WithField("variants", len(variants)).Info("Fetched product variants")

	previous, err := j.Store.ReadAll(ctx)
	if err != nil {
		logger.Errorf("Failed to read previous snapshot: %v", err)
		return fmt.Errorf("deal update run %s: %w", runID, err)
	}

	report := j.Engine.BuildReport(variants, previous)

	summary := &models.RunSummary{
		RunID:       runID,
		Products:    len(products),
		Variants:    len(variants),
		RowsEmitted: len(report.Rows),
	}

	if !report.HasChanges() {
		// The normal "nothing changed" outcome: no snapshot write, no email.
		summary.CompletedAt = time.Now().UTC()
		j.recordRun(summary)
		logger.WithField("duration", time.Since(startTime)).Info("Deal update run found no reportable changes")
		return nil
	}

	accepted := make([]models.ProductVariant, 0, len(report.Accepted))
	for _, deal := range report.Accepted {
		accepted = append(accepted, deal.Variant)
	}

	if err := j.Store.ReplaceAll(ctx, accepted); err != nil {
		logger.Errorf("Failed to rewrite deal snapshot: %v", err)
		return fmt.Errorf("deal update run %s: %w", runID, err)
	}

	textReport := j.Formatter.FormatText(report, j.ResultLimit)
	htmlReport := j.Formatter.FormatHTML(report, j.ResultLimit)

	sentAt := time.Now().UTC()
	textBody := fmt.Sprintf("Sent at %s\n\n%s", sentAt.Format(time.RFC3339), textReport)
	htmlBody := fmt.Sprintf("<p>Sent at %s</p>\n%s", sentAt.Format(time.RFC3339), htmlReport)

	if err := j.Notifier.Send(reportSubject, textBody, htmlBody, j.Recipients); err != nil {
		logger.Errorf("Failed to deliver deal report: %v", err)
		return fmt.Errorf("deal update run %s: %w", runID, err)
	}

	summary.CompletedAt = time.Now().UTC()
	summary.ReportText = textReport
	j.recordRun(summary)

	logger.WithFields(logrus.Fields{
		"rows_emitted": len(report.Rows),
		"accepted":     len(accepted),
		"duration":     time.Since(startTime),
	}).Infof("Deal update run completed: %d reportable deals out of %d variants", len(report.Rows), len(variants))

	return nil
}

// LastRun returns the most recent run summary, or nil before the first run.
func (j *DealUpdateJob) LastRun() *models.RunSummary {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	return j.lastRun
}

func (j *DealUpdateJob) recordRun(summary *models.RunSummary) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.lastRun = summary
}
