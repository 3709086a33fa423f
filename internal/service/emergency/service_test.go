package emergency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/pkg/circuitbreaker"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

var caller = model.User{Name: "Ramesh", Role: model.RolePatient, Email: "patient@sehatsathi.in"}

func newService(t *testing.T, forward Forwarder) *Service {
	t.Helper()
	d := NewStubDispatcher(circuitbreaker.Settings{MaxFailures: 2, Timeout: time.Minute}, forward, logger.Nop())
	svc, err := NewService(d, logger.Nop())
	require.NoError(t, err)
	return svc
}

func TestDirectory(t *testing.T) {
	dir := newService(t, nil).Directory()

	require.Len(t, dir.Contacts, 4)
	assert.Equal(t, model.EmergencyContact{Name: "Ambulance", Number: "108", Icon: "🚑"}, dir.Contacts[0])
	assert.Equal(t, "1091", dir.Contacts[3].Number)
	require.Len(t, dir.Hospitals, 3)
	assert.Equal(t, "2.3 km", dir.Hospitals[0].Distance)
}

func TestCall(t *testing.T) {
	var got DispatchRequest
	svc := newService(t, func(_ context.Context, req DispatchRequest) error {
		got = req
		return nil
	})

	res, err := svc.Call(context.Background(), caller, model.EmergencyCallRequest{
		Number:   " 108 ",
		Location: &model.Location{Latitude: 26.85, Longitude: 80.95},
	})
	require.NoError(t, err)
	assert.Equal(t, model.DispatchAccepted, res.Status)
	assert.Equal(t, "Calling Ambulance - 108", res.Message)
	assert.Equal(t, "Emergency services will be contacted immediately", res.Description)
	assert.Contains(t, res.Reference, "sos_")

	assert.Equal(t, KindCall, got.Kind)
	assert.Equal(t, "Ambulance", got.Service)
	assert.Equal(t, "Ramesh", got.Caller.Name)
	require.NotNil(t, got.Location)
}

func TestCall_UnknownNumber(t *testing.T) {
	_, err := newService(t, nil).Call(context.Background(), caller, model.EmergencyCallRequest{Number: "999"})
	assert.ErrorIs(t, err, ErrUnknownNumber)
}

func TestCall_InvalidLocation(t *testing.T) {
	_, err := newService(t, nil).Call(context.Background(), caller, model.EmergencyCallRequest{
		Number:   "100",
		Location: &model.Location{Latitude: 91},
	})
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestShareLocation(t *testing.T) {
	res, err := newService(t, nil).ShareLocation(context.Background(), caller, model.ShareLocationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Location Shared", res.Message)
	assert.Equal(t, "Your location has been shared with emergency contacts", res.Description)
}

func TestDispatchFailureOpensBreaker(t *testing.T) {
	calls := 0
	svc := newService(t, func(context.Context, DispatchRequest) error {
		calls++
		return errors.New("trunk line down")
	})

	for i := 0; i < 3; i++ {
		_, err := svc.Call(context.Background(), caller, model.EmergencyCallRequest{Number: "101"})
		assert.ErrorIs(t, err, ErrDispatchUnavailable)
	}
	assert.Equal(t, 2, calls)
}
