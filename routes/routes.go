package routes

import (
	"net/http"

	"equipment_loan_tool/app"
	"equipment_loan_tool/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 挂载所有接口，返回 Srv 以便退出时关闭 websocket
func RegisterRoutes(r *gin.Engine, a *app.App) *controllers.Srv {
	s := controllers.GetSrv(a)
	materialCtl := controllers.NewMaterialController(s)
	loanCtl := controllers.NewLoanController(s)
	mediaCtl := controllers.NewMediaController(s)
	activityCtl := controllers.NewActivityController(s)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	api := r.Group("/api")

	// ------------------------------
	// 物资
	// ------------------------------
	materials := api.Group("/materials")
	{
		materials.GET("", materialCtl.ListMaterials) // ?category=&q=
		materials.POST("", materialCtl.CreateMaterial)
		materials.GET("/:id", materialCtl.GetMaterial)
		materials.PATCH("/:id", materialCtl.UpdateMaterial)
		materials.PUT("/:id", materialCtl.UpdateMaterial)
		materials.DELETE("/:id", materialCtl.DeleteMaterial)
		materials.GET("/:id/loans", materialCtl.ListMaterialLoans)
		materials.POST("/:id/images", materialCtl.AddImages)
	}
	api.GET("/categories", materialCtl.ListCategories)
	api.GET("/stats", materialCtl.Stats)

	// ------------------------------
	// 借还
	// ------------------------------
	loans := api.Group("/loans")
	{
		loans.GET("", loanCtl.ListLoans) // ?status=active|overdue|returned|all&materialId=
		loans.POST("", loanCtl.Lend)
		loans.GET("/:id", loanCtl.GetLoan)
		loans.POST("/:id/return", loanCtl.Return)
		loans.DELETE("/:id", loanCtl.DeleteLoan)
	}

	api.GET("/activity", activityCtl.ListActivity) // ?targetId=&limit=
	api.POST("/uploads", mediaCtl.Upload)
	api.GET("/ws", s.Live.Handle)

	return s
}
