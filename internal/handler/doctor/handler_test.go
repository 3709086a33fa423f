package doctor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/catalog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, path string, data interface{}) int {
	t.Helper()
	svc, err := catalog.NewService()
	require.NoError(t, err)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	if data != nil && w.Code == http.StatusOK {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return w.Code
}

func TestList(t *testing.T) {
	var all []model.Doctor
	require.Equal(t, http.StatusOK, get(t, "/api/v1/doctors", &all))
	assert.Len(t, all, 6)

	var bengali []model.Doctor
	require.Equal(t, http.StatusOK, get(t, "/api/v1/doctors?search=bengali", &bengali))
	require.Len(t, bengali, 1)
	assert.Equal(t, "Dr. Rajesh Kumar", bengali[0].Name)

	var cardio []model.Doctor
	require.Equal(t, http.StatusOK, get(t, "/api/v1/doctors?specialty=Cardiologist", &cardio))
	require.Len(t, cardio, 1)
	assert.Equal(t, 4, cardio[0].ID)

	var none []model.Doctor
	require.Equal(t, http.StatusOK, get(t, "/api/v1/doctors?specialty=Cardiologist&search=telugu", &none))
	assert.Empty(t, none)
}

func TestGet(t *testing.T) {
	var d model.Doctor
	require.Equal(t, http.StatusOK, get(t, "/api/v1/doctors/1", &d))
	assert.Equal(t, "Dr. Priya Sharma", d.Name)
	assert.Equal(t, float64(199), d.Fee)

	assert.Equal(t, http.StatusNotFound, get(t, "/api/v1/doctors/42", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, "/api/v1/doctors/abc", nil))
}

func TestSlotsAndSpecialties(t *testing.T) {
	var slots []string
	require.Equal(t, http.StatusOK, get(t, "/api/v1/doctors/slots", &slots))
	assert.Len(t, slots, 9)
	assert.Equal(t, "09:00 AM", slots[0])
	assert.Equal(t, "06:00 PM", slots[8])

	var specialties []string
	require.Equal(t, http.StatusOK, get(t, "/api/v1/doctors/specialties", &specialties))
	assert.Equal(t, "all", specialties[0])
	assert.Len(t, specialties, 7)
}
