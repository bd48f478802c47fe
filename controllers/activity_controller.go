// controllers/activity_controller.go
package controllers

import (
	"context"
	"net/http"
	"strconv"

	"equipment_loan_tool/app"
	"equipment_loan_tool/models"

	"github.com/gin-gonic/gin"
)

type ActivityReader interface {
	ListActivity(ctx context.Context, targetID string, limit int) ([]models.ActivityLog, error)
}

type ActivityController struct{ *Srv }

func NewActivityController(s *Srv) *ActivityController { return &ActivityController{Srv: s} }

// 审计记录：?targetId=&limit=，仅 postgres 存储可用
func (ac *ActivityController) ListActivity(c *gin.Context) {
	if ac.Activity == nil {
		c.JSON(http.StatusServiceUnavailable, app.H{"error": "activity log requires STORE_DRIVER=postgres"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := ac.Activity.ListActivity(c.Request.Context(), c.Query("targetId"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": logs})
}
