package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/dahlia/pkg/errors"
	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/store"
	"github.com/Ramsey-B/dahlia/pkg/tracing"
)

// DefaultSaveConcurrency bounds the per-phase fan-out against the template
// service.
const DefaultSaveConcurrency = 4

// TemplateClient is the slice of the template service API a save needs.
type TemplateClient interface {
	CreateField(ctx context.Context, templateID int64, rec models.FieldRecord) (*models.FieldRecord, error)
	UpdateField(ctx context.Context, templateID, fieldID int64, rec models.FieldRecord) error
	DeleteField(ctx context.Context, templateID, fieldID int64) error
}

// SaveOutcome summarizes a completed save round-trip.
type SaveOutcome struct {
	Created int
	Updated int
	Deleted int
	// Correlated maps the pre-save temp ids of created fields to their
	// new server ids.
	Correlated map[string]int64
}

// Saver flushes a session's field store to the template service: creations,
// then updates, then deletions, each phase fanned out concurrently but the
// phases themselves sequential. A failed phase aborts the save and leaves
// the local state as it was, so the next save retries the remaining work;
// nothing is rolled back.
type Saver struct {
	client      TemplateClient
	correlator  Correlator
	logger      ectologger.Logger
	concurrency int
}

func NewSaver(client TemplateClient, correlator Correlator, logger ectologger.Logger) *Saver {
	return &Saver{
		client:      client,
		correlator:  correlator,
		logger:      logger,
		concurrency: DefaultSaveConcurrency,
	}
}

// Save partitions the store against its snapshot and flushes the three
// phases. On success the store's snapshot is rebuilt and the deleted set
// cleared; created fields take on their server identities.
func (s *Saver) Save(ctx context.Context, templateID int64, st *store.Store, page geometry.PageSize) (*SaveOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Save")
	defer span.End()

	p := PartitionFields(st)
	deletedIDs := st.DeletedIDs()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": templateID,
		"to_create":   len(p.ToCreate),
		"to_update":   len(p.ToUpdate),
		"unchanged":   len(p.Unchanged),
		"to_delete":   len(deletedIDs),
	}).Info("Saving template fields")

	created, err := fanOut(ctx, s.concurrency, p.ToCreate, func(ctx context.Context, f models.Field) (*models.FieldRecord, error) {
		return s.client.CreateField(ctx, templateID, s.fieldToRecord(ctx, f, page))
	})
	if err != nil {
		return nil, errors.NewEditorErrorf("create phase failed: %w", err)
	}

	returned := make([]models.FieldRecord, 0, len(created))
	for _, rec := range created {
		if rec != nil {
			returned = append(returned, *rec)
		}
	}

	correlated := s.correlator.Correlate(p.ToCreate, returned)
	for tempID, serverID := range correlated {
		if err := st.SetIdentity(tempID, serverID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warnf("Created field %s could not take identity %d", tempID, serverID)
		}
	}
	if len(correlated) < len(p.ToCreate) {
		s.logger.WithContext(ctx).Warnf("%d of %d created fields could not be correlated; they stay local until the next save",
			len(p.ToCreate)-len(correlated), len(p.ToCreate))
	}

	_, err = fanOut(ctx, s.concurrency, p.ToUpdate, func(ctx context.Context, f models.Field) (struct{}, error) {
		return struct{}{}, s.client.UpdateField(ctx, templateID, *f.ID, s.fieldToRecord(ctx, f, page))
	})
	if err != nil {
		return nil, errors.NewEditorErrorf("update phase failed: %w", err)
	}

	_, err = fanOut(ctx, s.concurrency, deletedIDs, func(ctx context.Context, id int64) (struct{}, error) {
		return struct{}{}, s.client.DeleteField(ctx, templateID, id)
	})
	if err != nil {
		return nil, errors.NewEditorErrorf("delete phase failed: %w", err)
	}

	st.FinishSave()

	return &SaveOutcome{
		Created:    len(p.ToCreate),
		Updated:    len(p.ToUpdate),
		Deleted:    len(deletedIDs),
		Correlated: correlated,
	}, nil
}

// fieldToRecord converts a normalized field to the pixel wire format. The
// rect is clamped first so a field nudged out of bounds by float drift
// never reaches the server invalid.
func (s *Saver) fieldToRecord(ctx context.Context, f models.Field, page geometry.PageSize) models.FieldRecord {
	rect, changed := geometry.Clamp(f.Position.Rect())
	if changed {
		s.logger.WithContext(ctx).Warnf("Field %s position clamped into page bounds before save", f.TempID)
	}
	px := geometry.ToPixels(rect, page.OrDefault())

	return models.FieldRecord{
		Name:      f.Name,
		FieldType: f.Type,
		Required:  f.Required,
		Partner:   f.Partner,
		Position: models.WirePosition{
			X:            px.X,
			Y:            px.Y,
			Width:        px.Width,
			Height:       px.Height,
			Page:         f.Position.Page,
			DefaultValue: f.Position.DefaultValue,
		},
		Options:      f.Options.Clone(),
		DisplayOrder: f.DisplayOrder,
	}
}

type indexedItem[T any] struct {
	index int
	item  T
}

type indexedResult[R any] struct {
	index  int
	result R
	err    error
}

// fanOut runs fn over items with bounded concurrency, preserving input
// order in the results. All items run to completion; if any failed, the
// first error comes back along with how many failed.
func fanOut[T, R any](ctx context.Context, concurrency int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	itemChan := make(chan indexedItem[T])
	resultChan := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range itemChan {
				res, err := fn(ctx, it.item)
				resultChan <- indexedResult[R]{index: it.index, result: res, err: err}
			}
		}()
	}

	go func() {
		for i, item := range items {
			itemChan <- indexedItem[T]{index: i, item: item}
		}
		close(itemChan)
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]R, len(items))
	var firstErr error
	failures := 0
	for res := range resultChan {
		results[res.index] = res.result
		if res.err != nil {
			failures++
			if firstErr == nil {
				firstErr = res.err
			}
		}
	}

	if firstErr != nil {
		return results, fmt.Errorf("%d of %d calls failed: %w", failures, len(items), firstErr)
	}
	return results, nil
}
