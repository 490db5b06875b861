package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fenilmodi00/deals-backend/models"
	"github.com/fenilmodi00/deals-backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	products []models.Product
	variants []models.ProductVariant
	err      error
}

func (f *fakeFetcher) FetchProducts(ctx context.Context) ([]models.Product, error) {
	return f.products, f.err
}

func (f *fakeFetcher) FetchAllVariants(ctx context.Context, products []models.Product) []models.ProductVariant {
	return f.variants
}

type fakeStore struct {
	snapshot     map[models.DealKey]models.ProductVariant
	replaceCalls int
}

func (s *fakeStore) ReadAll(ctx context.Context) (map[models.DealKey]models.ProductVariant, error) {
	snapshot := make(map[models.DealKey]models.ProductVariant, len(s.snapshot))
	for key, deal := range s.snapshot {
		snapshot[key] = deal
	}
	return snapshot, nil
}

func (s *fakeStore) ReplaceAll(ctx context.Context, deals []models.ProductVariant) error {
	s.replaceCalls++
	s.snapshot = make(map[models.DealKey]models.ProductVariant, len(deals))
	for _, deal := range deals {
		s.snapshot[deal.DealKey()] = deal
	}
	return nil
}

type sentEmail struct {
	subject    string
	textBody   string
	htmlBody   string
	recipients []string
}

type fakeNotifier struct {
	sent []sentEmail
	err  error
}

func (n *fakeNotifier) Send(subject, textBody, htmlBody string, recipients []string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentEmail{subject: subject, textBody: textBody, htmlBody: htmlBody, recipients: recipients})
	return nil
}

func newTestJob(fetcher *fakeFetcher, store *fakeStore, notifier *fakeNotifier) *DealUpdateJob {
	return NewDealUpdateJob(
		fetcher,
		services.NewDealEngine(10),
		services.NewReportFormatter(),
		store,
		notifier,
		10,
		[]string{"me@foo.bar"},
	)
}

func testVariant(model string, cashPrice int64) models.ProductVariant {
	return models.ProductVariant{
		Brand:     "O2",
		Model:     model,
		Spec:      "memory:128gb",
		Color:     "black",
		Condition: "new",
		Stock:     models.StockInStock,
		CashPrice: cashPrice,
		RRP:       100000,
		Link:      "/shop/tariff/o2/" + model,
	}
}

func TestRunPersistsAndNotifiesNewDeals(t *testing.T) {
	fetcher := &fakeFetcher{
		products: []models.Product{{Brand: "O2", Model: "iphone-15", Condition: "new"}},
		variants: []models.ProductVariant{testVariant("iphone-15", 50000)},
	}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	job := newTestJob(fetcher, store, notifier)

	require.NoError(t, job.Run())

	assert.Equal(t, 1, store.replaceCalls)
	assert.Len(t, store.snapshot, 1)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "O2 Phone Deals", notifier.sent[0].subject)
	assert.Contains(t, notifier.sent[0].textBody, "Sent at ")
	assert.Contains(t, notifier.sent[0].textBody, "iphone-15")
	assert.Contains(t, notifier.sent[0].htmlBody, "<table")
	assert.Equal(t, []string{"me@foo.bar"}, notifier.sent[0].recipients)

	lastRun := job.LastRun()
	require.NotNil(t, lastRun)
	assert.Equal(t, 1, lastRun.RowsEmitted)
	assert.NotEmpty(t, lastRun.ReportText)
}

func TestRunUnchangedLeavesStoreUntouched(t *testing.T) {
	deal := testVariant("iphone-15", 50000)
	fetcher := &fakeFetcher{variants: []models.ProductVariant{deal}}
	store := &fakeStore{snapshot: map[models.DealKey]models.ProductVariant{deal.DealKey(): deal}}
	notifier := &fakeNotifier{}
	job := newTestJob(fetcher, store, notifier)

	require.NoError(t, job.Run())

	// Zero emitted rows: no snapshot rewrite, nothing to notify.
	assert.Zero(t, store.replaceCalls)
	assert.Empty(t, notifier.sent)

	lastRun := job.LastRun()
	require.NotNil(t, lastRun)
	assert.Zero(t, lastRun.RowsEmitted)
	assert.Empty(t, lastRun.ReportText)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{variants: []models.ProductVariant{
		testVariant("iphone-15", 50000),
		testVariant("pixel-9", 60000),
	}}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	job := newTestJob(fetcher, store, notifier)

	require.NoError(t, job.Run())
	require.NoError(t, job.Run())

	assert.Equal(t, 1, store.replaceCalls)
	assert.Len(t, notifier.sent, 1)
	assert.Zero(t, job.LastRun().RowsEmitted)
}

func TestRunReportsPriceDrop(t *testing.T) {
	previous := testVariant("iphone-15", 55000)
	fetcher := &fakeFetcher{variants: []models.ProductVariant{testVariant("iphone-15", 50000)}}
	store := &fakeStore{snapshot: map[models.DealKey]models.ProductVariant{previous.DealKey(): previous}}
	notifier := &fakeNotifier{}
	job := newTestJob(fetcher, store, notifier)

	require.NoError(t, job.Run())

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].textBody, "(£550")
	assert.Contains(t, notifier.sent[0].textBody, "£500")

	stored := store.snapshot[previous.DealKey()]
	assert.Equal(t, int64(50000), stored.CashPrice)
}

// gatedFetcher parks the first run mid-flight so the test can invoke Run
// again while the snapshot store is still held.
type gatedFetcher struct {
	fakeFetcher
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *gatedFetcher) FetchProducts(ctx context.Context) ([]models.Product, error) {
	f.once.Do(func() { close(f.started) })
	<-f.release
	return f.fakeFetcher.FetchProducts(ctx)
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	fetcher := &gatedFetcher{
		fakeFetcher: fakeFetcher{variants: []models.ProductVariant{testVariant("iphone-15", 50000)}},
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	job := NewDealUpdateJob(
		fetcher,
		services.NewDealEngine(10),
		services.NewReportFormatter(),
		store,
		notifier,
		10,
		[]string{"me@foo.bar"},
	)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- job.Run()
	}()

	select {
	case <-fetcher.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started fetching")
	}

	// The first run holds the store; a second trigger must be turned away
	// before it can read the same stale snapshot.
	assert.ErrorIs(t, job.Run(), ErrRunInProgress)

	close(fetcher.release)
	require.NoError(t, <-firstDone)

	// One upstream change, one rewrite, one email.
	assert.Equal(t, 1, store.replaceCalls)
	assert.Len(t, notifier.sent, 1)

	// With the first run finished the job accepts triggers again.
	require.NoError(t, job.Run())
}

func TestRunSurfacesFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("listing unreachable")}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	job := newTestJob(fetcher, store, notifier)

	err := job.Run()
	require.Error(t, err)
	assert.Zero(t, store.replaceCalls)
	assert.Empty(t, notifier.sent)
}

func TestRunSurfacesDeliveryFailure(t *testing.T) {
	fetcher := &fakeFetcher{variants: []models.ProductVariant{testVariant("iphone-15", 50000)}}
	store := &fakeStore{}
	notifier := &fakeNotifier{err: errors.New("smtp rejected")}
	job := newTestJob(fetcher, store, notifier)

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp rejected")
}
