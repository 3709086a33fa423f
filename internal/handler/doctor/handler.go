package doctor

import (
	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/handler"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/catalog"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

type Handler struct {
	handler.BaseHandler
	catalog *catalog.Service
}

func NewHandler(catalog *catalog.Service) *Handler {
	return &Handler{BaseHandler: handler.NewBaseHandler(), catalog: catalog}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.List)
		doctors.GET("/slots", h.Slots)
		doctors.GET("/specialties", h.Specialties)
		doctors.GET("/:id", h.Get)
	}
}

// List filters by ?search= and ?specialty=.
func (h *Handler) List(c *gin.Context) {
	var filters model.DoctorFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid filters", err))
		return
	}
	httputil.RespondWithSuccess(c, h.catalog.Search(filters))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.IntParam(c, "id")
	if !ok {
		return
	}
	d, err := h.catalog.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) Slots(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.catalog.TimeSlots())
}

func (h *Handler) Specialties(c *gin.Context) {
	httputil.RespondWithSuccess(c, append([]string{catalog.SpecialtyAll}, h.catalog.Specialties()...))
}
