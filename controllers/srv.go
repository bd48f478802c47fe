// controllers/srv.go
package controllers

import (
	"errors"
	"net/http"

	"equipment_loan_tool/app"
	"equipment_loan_tool/cache"
	"equipment_loan_tool/inventory"
	"equipment_loan_tool/media"

	"github.com/gin-gonic/gin"
)

type Srv struct {
	Desk      *inventory.Desk
	Media     *media.Service
	Dashboard *cache.DashboardCache
	Guard     *cache.ReturnGuard
	Activity  ActivityReader
	Live      *Live
}

func GetSrv(a *app.App) *Srv {
	s := &Srv{
		Desk:      a.Desk,
		Media:     a.Media,
		Dashboard: a.Dashboard,
		Guard:     a.Guard,
		Live:      NewLive(a.Hub),
	}
	if a.Repo != nil {
		s.Activity = a.Repo
	}
	return s
}

// --- helpers ---

// 业务错误 → HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, inventory.ErrMaterialNotFound), errors.Is(err, inventory.ErrLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientQuantity),
		errors.Is(err, inventory.ErrMaterialUnavailable),
		errors.Is(err, inventory.ErrLoanAlreadyReturned):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrInvalidDate),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, media.ErrImageSize),
		errors.Is(err, media.ErrNotAnImage):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrNoUploader):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), app.H{"error": err.Error()})
}
