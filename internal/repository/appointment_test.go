package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/repository"
	"github.com/sehatsathi/sehatsathi-api/internal/repository/memory"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/messaging"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

func newStore(kv repository.KVStore, pub messaging.Publisher, m *metrics.Metrics) *repository.AppointmentStore {
	return repository.NewAppointmentStore(kv, pub, logger.Nop(), m, repository.AppointmentStoreConfig{
		Key:         "appointments",
		MaxBytes:    1 << 20,
		CASAttempts: 5,
		RetryDelay:  time.Millisecond,
	})
}

func sample(id string) model.Appointment {
	return model.Appointment{
		ID:            id,
		DoctorID:      1,
		DoctorName:    "Dr. Priya Sharma",
		Date:          "2026-10-20",
		Time:          "10:00 AM",
		Fee:           500,
		Documents:     []model.Document{{Name: "report.pdf", Size: "1.00 KB", Type: "PDF"}},
		PaymentMethod: model.PaymentMethodUPI,
		PaymentStatus: model.PaymentStatusPaid,
		Status:        model.AppointmentStatusPending,
	}
}

func TestAppointmentStore_ReadAllAbsent(t *testing.T) {
	store := newStore(memory.NewKV(), nil, metrics.NewTestMetrics())

	list, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAppointmentStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	store := newStore(kv, nil, metrics.NewTestMetrics())

	require.NoError(t, store.Append(ctx, sample("1")))
	require.NoError(t, store.Append(ctx, sample("2")))

	list, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "2", list[1].ID)
	assert.Equal(t, int64(2), store.Revision())

	raw, _, err := kv.Get(ctx, "appointments")
	require.NoError(t, err)
	var env struct {
		Version      int               `json:"version"`
		Appointments []json.RawMessage `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, repository.SchemaVersion, env.Version)
	assert.Len(t, env.Appointments, 2)
	assert.Contains(t, string(env.Appointments[0]), `"paymentStatus":"paid"`)
}

func TestAppointmentStore_AppendDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newStore(memory.NewKV(), nil, metrics.NewTestMetrics())

	require.NoError(t, store.Append(ctx, sample("1")))
	err := store.Append(ctx, sample("1"))
	assert.ErrorIs(t, err, repository.ErrDuplicateID)

	list, _ := store.ReadAll(ctx)
	assert.Len(t, list, 1)
}

func TestAppointmentStore_MalformedBlob(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	kv.Put("appointments", []byte(`{not json`))
	m := metrics.NewTestMetrics()
	store := newStore(kv, nil, m)

	list, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreCorruptReads))

	require.NoError(t, store.Append(ctx, sample("1")))
	list, _ = store.ReadAll(ctx)
	assert.Len(t, list, 1)
}

func TestAppointmentStore_LegacyArray(t *testing.T) {
	kv := memory.NewKV()
	kv.Put("appointments", []byte(`[{"id":"1700000000000","date":"2026-10-20","time":"09:00 AM","fee":400,"documents":[],"message":"","needAshaWorker":true,"paymentStatus":"paid","status":"pending"}]`))
	store := newStore(kv, nil, metrics.NewTestMetrics())

	list, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1700000000000", list[0].ID)
	assert.True(t, list[0].NeedAshaWorker)
}

func TestAppointmentStore_FutureSchema(t *testing.T) {
	ctx := context.Background()
	blob := []byte(`{"version":9,"appointments":[{"id":"1"}]}`)
	kv := memory.NewKV()
	kv.Put("appointments", blob)
	m := metrics.NewTestMetrics()
	store := newStore(kv, nil, m)

	_, err := store.ReadAll(ctx)
	assert.ErrorIs(t, err, repository.ErrUnsupportedSchema)

	err = store.Append(ctx, sample("2"))
	assert.ErrorIs(t, err, repository.ErrUnsupportedSchema)

	raw, _, err := kv.Get(ctx, "appointments")
	require.NoError(t, err)
	assert.Equal(t, blob, raw)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.StoreCorruptReads))
}

func TestAppointmentStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := newStore(memory.NewKV(), nil, metrics.NewTestMetrics())
	require.NoError(t, store.Append(ctx, sample("1")))
	require.NoError(t, store.Append(ctx, sample("2")))

	updated, err := store.UpdateStatus(ctx, "2", model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)

	// unrestricted at this layer
	_, err = store.UpdateStatus(ctx, "2", model.AppointmentStatusCancelled)
	require.NoError(t, err)

	list, _ := store.ReadAll(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, model.AppointmentStatusPending, list[0].Status)
	assert.Equal(t, model.AppointmentStatusCancelled, list[1].Status)
}

func TestAppointmentStore_UpdateStatusErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore(memory.NewKV(), nil, metrics.NewTestMetrics())
	require.NoError(t, store.Append(ctx, sample("1")))

	_, err := store.UpdateStatus(ctx, "missing", model.AppointmentStatusConfirmed)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = store.UpdateStatus(ctx, "1", model.AppointmentStatus("archived"))
	assert.ErrorIs(t, err, repository.ErrInvalidStatus)

	guardErr := apperrors.Conflict("not pending", nil)
	_, err = store.UpdateStatus(ctx, "1", model.AppointmentStatusConfirmed, func(model.Appointment) error { return guardErr })
	assert.ErrorIs(t, err, guardErr)

	list, _ := store.ReadAll(ctx)
	assert.Equal(t, model.AppointmentStatusPending, list[0].Status)
	assert.Equal(t, int64(1), store.Revision())
}

func TestAppointmentStore_Quota(t *testing.T) {
	store := repository.NewAppointmentStore(memory.NewKV(), nil, logger.Nop(), metrics.NewTestMetrics(), repository.AppointmentStoreConfig{
		MaxBytes:    64,
		CASAttempts: 1,
	})

	err := store.Append(context.Background(), sample("1"))
	assert.ErrorIs(t, err, repository.ErrQuotaExceeded)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 413, appErr.StatusCode())
}

func TestAppointmentStore_SeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	store := newStore(memory.NewKV(), nil, metrics.NewTestMetrics())

	seeded, err := store.SeedIfEmpty(ctx, []model.Appointment{sample("default-1")})
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = store.SeedIfEmpty(ctx, []model.Appointment{sample("other")})
	require.NoError(t, err)
	assert.False(t, seeded)

	list, _ := store.ReadAll(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "default-1", list[0].ID)
}

func TestAppointmentStore_Update(t *testing.T) {
	ctx := context.Background()
	store := newStore(memory.NewKV(), nil, metrics.NewTestMetrics())
	require.NoError(t, store.Append(ctx, sample("1")))

	err := store.Update(ctx, func(list []model.Appointment) ([]model.Appointment, error) {
		list[0].Message = "bring reports"
		return list, nil
	})
	require.NoError(t, err)

	list, _ := store.ReadAll(ctx)
	assert.Equal(t, "bring reports", list[0].Message)
}

func TestAppointmentStore_PublishesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := messaging.NewMemoryBroker()
	defer broker.Close()
	events, err := broker.Subscribe(ctx, "appointments")
	require.NoError(t, err)

	store := newStore(memory.NewKV(), broker, metrics.NewTestMetrics())
	require.NoError(t, store.Append(ctx, sample("1")))
	_, err = store.UpdateStatus(ctx, "1", model.AppointmentStatusConfirmed)
	require.NoError(t, err)

	var got []model.AppointmentEvent
	for i := 0; i < 2; i++ {
		select {
		case raw := <-events:
			var evt model.AppointmentEvent
			require.NoError(t, json.Unmarshal(raw, &evt))
			got = append(got, evt)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	assert.Equal(t, model.AppointmentCreated, got[0].Type)
	assert.Equal(t, int64(1), got[0].Revision)
	assert.Equal(t, model.AppointmentStatusChanged, got[1].Type)
	require.NotNil(t, got[1].Appointment)
	assert.Equal(t, model.AppointmentStatusConfirmed, got[1].Appointment.Status)
}

// contendedKV reports a revision mismatch for the first failures writes.
type contendedKV struct {
	*memory.KV
	failures int32
	attempts atomic.Int32
}

func (k *contendedKV) CompareAndSwap(ctx context.Context, key string, expected int64, value []byte) (int64, error) {
	if k.attempts.Add(1) <= k.failures {
		return 0, repository.ErrRevisionMismatch
	}
	return k.KV.CompareAndSwap(ctx, key, expected, value)
}

func TestAppointmentStore_RetriesConflicts(t *testing.T) {
	kv := &contendedKV{KV: memory.NewKV(), failures: 2}
	m := metrics.NewTestMetrics()
	store := newStore(kv, nil, m)

	require.NoError(t, store.Append(context.Background(), sample("1")))
	assert.Equal(t, int32(3), kv.attempts.Load())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.StoreConflicts))
}

func TestAppointmentStore_GivesUpOnConflicts(t *testing.T) {
	kv := &contendedKV{KV: memory.NewKV(), failures: 100}
	store := newStore(kv, nil, metrics.NewTestMetrics())

	err := store.Append(context.Background(), sample("1"))
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, int32(5), kv.attempts.Load())
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, int64, error) {
	return nil, 0, errors.New("connection refused")
}

func (brokenKV) CompareAndSwap(context.Context, string, int64, []byte) (int64, error) {
	return 0, errors.New("connection refused")
}

func (brokenKV) Ping(context.Context) error { return errors.New("connection refused") }

func TestAppointmentStore_BackendFailure(t *testing.T) {
	store := newStore(brokenKV{}, nil, metrics.NewTestMetrics())

	_, err := store.ReadAll(context.Background())
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)

	err = store.Append(context.Background(), sample("1"))
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}

func TestAppointmentStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := repository.NewAppointmentStore(memory.NewKV(), nil, logger.Nop(), metrics.NewTestMetrics(), repository.AppointmentStoreConfig{
		MaxBytes:    1 << 20,
		CASAttempts: 100,
		RetryDelay:  time.Millisecond,
	})

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Append(ctx, sample(fmt.Sprintf("id-%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, writers)
}
