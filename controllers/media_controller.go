// controllers/media_controller.go
package controllers

import (
	"net/http"

	"equipment_loan_tool/app"

	"github.com/gin-gonic/gin"
)

type MediaController struct{ *Srv }

func NewMediaController(s *Srv) *MediaController { return &MediaController{Srv: s} }

// 单文件上传，返回 {url}
func (mc *MediaController) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing file"})
		return
	}
	url, err := mc.storeFile(c, fh)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"url": url})
}
