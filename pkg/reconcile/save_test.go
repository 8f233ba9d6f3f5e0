package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/dahlia/pkg/errors"
	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/models"
)

// fakeTemplateClient records calls and assigns sequential ids on create.
type fakeTemplateClient struct {
	mu      sync.Mutex
	nextID  int64
	created []models.FieldRecord
	updated []int64
	deleted []int64

	failCreate bool
	failUpdate bool
	failDelete bool
}

func (c *fakeTemplateClient) CreateField(_ context.Context, _ int64, rec models.FieldRecord) (*models.FieldRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCreate {
		return nil, fmt.Errorf("create rejected")
	}
	c.nextID++
	rec.ID = c.nextID + 100
	c.created = append(c.created, rec)
	return &rec, nil
}

func (c *fakeTemplateClient) UpdateField(_ context.Context, _ int64, fieldID int64, _ models.FieldRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failUpdate {
		return fmt.Errorf("update rejected")
	}
	c.updated = append(c.updated, fieldID)
	return nil
}

func (c *fakeTemplateClient) DeleteField(_ context.Context, _ int64, fieldID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failDelete {
		return fmt.Errorf("delete rejected")
	}
	c.deleted = append(c.deleted, fieldID)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestSaveFlushesAllThreePhases(t *testing.T) {
	st := seededStore(persisted(1, "keep"), persisted(2, "edit"), persisted(3, "drop"))

	name := "edited"
	_, err := st.Update(models.ServerTempID(2), models.UpdateFieldRequest{Name: &name})
	require.NoError(t, err)

	_, err = st.Delete(models.ServerTempID(3))
	require.NoError(t, err)

	st.Append(models.Field{TempID: "new-1", Name: "fresh", Type: models.FieldTypeText,
		Position: models.Position{X: 0.1, Y: 0.5, Width: 0.2, Height: 0.05, Page: 1}})

	client := &fakeTemplateClient{}
	saver := NewSaver(client, OrderedCorrelator{}, testLogger())

	outcome, err := saver.Save(context.Background(), 9, st, geometry.PageSize{Width: 600, Height: 800})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Created)
	assert.Equal(t, 1, outcome.Updated)
	assert.Equal(t, 1, outcome.Deleted)

	assert.Equal(t, []int64{2}, client.updated)
	assert.Equal(t, []int64{3}, client.deleted)
	require.Len(t, client.created, 1)

	// The created field took on its server identity
	require.Len(t, outcome.Correlated, 1)
	serverID := outcome.Correlated["new-1"]
	f, ok := st.Get(models.ServerTempID(serverID))
	require.True(t, ok)
	require.NotNil(t, f.ID)
	assert.Equal(t, serverID, *f.ID)

	// The snapshot was rebuilt, so an immediate re-save is a no-op
	assert.Empty(t, st.DeletedIDs())
	p := PartitionFields(st)
	assert.Empty(t, p.ToCreate)
	assert.Empty(t, p.ToUpdate)
}

func TestSaveCreatePhaseFailureAbortsWithoutRollback(t *testing.T) {
	st := seededStore(persisted(1, "edit"))

	name := "edited"
	_, err := st.Update(models.ServerTempID(1), models.UpdateFieldRequest{Name: &name})
	require.NoError(t, err)

	st.Append(models.Field{TempID: "new-1", Name: "fresh", Type: models.FieldTypeText})

	client := &fakeTemplateClient{failCreate: true}
	saver := NewSaver(client, OrderedCorrelator{}, testLogger())

	_, err = saver.Save(context.Background(), 9, st, geometry.PageSize{})
	require.Error(t, err)
	assert.True(t, errors.IsEditorError(err))

	// Nothing was mutated locally: the pending work is still pending
	assert.Empty(t, client.updated)
	p := PartitionFields(st)
	assert.Len(t, p.ToCreate, 1)
	assert.Len(t, p.ToUpdate, 1)
}

func TestSaveDeletePhaseFailureKeepsDeletedSet(t *testing.T) {
	st := seededStore(persisted(1, "drop"))

	_, err := st.Delete(models.ServerTempID(1))
	require.NoError(t, err)

	client := &fakeTemplateClient{failDelete: true}
	saver := NewSaver(client, OrderedCorrelator{}, testLogger())

	_, err = saver.Save(context.Background(), 9, st, geometry.PageSize{})
	require.Error(t, err)

	// The deletion is still queued for the next save
	assert.Equal(t, []int64{1}, st.DeletedIDs())
}

func TestSaveEmptyStoreIsANoop(t *testing.T) {
	st := seededStore()

	client := &fakeTemplateClient{}
	saver := NewSaver(client, OrderedCorrelator{}, testLogger())

	outcome, err := saver.Save(context.Background(), 9, st, geometry.PageSize{})
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Created+outcome.Updated+outcome.Deleted)
}

func TestFieldToRecordConvertsToPixels(t *testing.T) {
	saver := NewSaver(&fakeTemplateClient{}, OrderedCorrelator{}, testLogger())

	f := models.Field{
		TempID: "new-1",
		Name:   "a",
		Type:   models.FieldTypeText,
		Position: models.Position{
			X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05, Page: 2,
		},
	}

	rec := saver.fieldToRecord(context.Background(), f, geometry.PageSize{Width: 600, Height: 800})
	assert.InDelta(t, 60.0, rec.Position.X, 1e-9)
	assert.InDelta(t, 80.0, rec.Position.Y, 1e-9)
	assert.InDelta(t, 120.0, rec.Position.Width, 1e-9)
	assert.InDelta(t, 40.0, rec.Position.Height, 1e-9)
	assert.Equal(t, 2, rec.Position.Page)
}

func TestFanOutRunsAllItemsAndReportsFirstError(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	var mu sync.Mutex
	ran := 0
	results, err := fanOut(context.Background(), 2, items, func(_ context.Context, n int) (int, error) {
		mu.Lock()
		ran++
		mu.Unlock()
		if n%2 == 0 {
			return 0, fmt.Errorf("item %d failed", n)
		}
		return n * 10, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 5 calls failed")
	assert.Equal(t, 5, ran)

	// Results preserve input order for the successes
	require.Len(t, results, 5)
	assert.Equal(t, 10, results[0])
	assert.Equal(t, 30, results[2])
	assert.Equal(t, 50, results[4])
}

func TestFanOutEmptyInput(t *testing.T) {
	results, err := fanOut(context.Background(), 4, nil, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	require.NoError(t, err)
	assert.Nil(t, results)
}
