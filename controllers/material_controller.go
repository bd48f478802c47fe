// controllers/material_controller.go
package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"equipment_loan_tool/app"
	"equipment_loan_tool/logger"
	"equipment_loan_tool/media"
	"equipment_loan_tool/models"

	"github.com/gin-gonic/gin"
)

type MaterialController struct{ *Srv }

func NewMaterialController(s *Srv) *MaterialController { return &MaterialController{Srv: s} }

// 列表：?category=&q=，category 缺省为 all
func (mc *MaterialController) ListMaterials(c *gin.Context) {
	category := strings.TrimSpace(c.DefaultQuery("category", models.CategoryAll))
	if category == "" {
		category = models.CategoryAll
	}
	items := mc.Desk.Registry().Filter(category, c.Query("q"))
	c.JSON(http.StatusOK, app.H{"items": items, "total": len(items)})
}

func (mc *MaterialController) GetMaterial(c *gin.Context) {
	m, ok := mc.Desk.Registry().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, app.H{"error": "material not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func validateMaterial(m *models.Material) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Category = strings.TrimSpace(m.Category)
	m.Location = strings.TrimSpace(m.Location)
	if m.Name == "" || m.Category == "" || m.Location == "" {
		return errors.New("name, category and location are required")
	}
	if m.Quantity == 0 {
		m.Quantity = 1
	}
	if m.Quantity < 1 {
		return errors.New("quantity must be at least 1")
	}
	if m.LoanedQuantity < 0 || m.LoanedQuantity > m.Quantity {
		return errors.New("loanedQuantity must be between 0 and quantity")
	}
	if m.Status == "" {
		m.Status = models.StatusAvailable
	}
	if m.Condition == "" {
		m.Condition = models.ConditionGood
	}
	if m.PurchaseDate != "" {
		if _, err := models.ParseDate(m.PurchaseDate); err != nil {
			return errors.New("purchaseDate must be YYYY-MM-DD")
		}
	}
	return nil
}

func (mc *MaterialController) CreateMaterial(c *gin.Context) {
	var in models.Material
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := validateMaterial(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	m := mc.Desk.Registry().Add(c.Request.Context(), in)
	c.JSON(http.StatusCreated, m)
}

// 部分更新：只合并请求里出现的字段
func (mc *MaterialController) UpdateMaterial(c *gin.Context) {
	var patch models.MaterialPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if patch.Quantity != nil && *patch.Quantity < 1 {
		c.JSON(http.StatusBadRequest, app.H{"error": "quantity must be at least 1"})
		return
	}
	if patch.LoanedQuantity != nil && *patch.LoanedQuantity < 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "loanedQuantity must not be negative"})
		return
	}
	m, ok := mc.Desk.Registry().Update(c.Request.Context(), c.Param("id"), patch)
	if !ok {
		c.JSON(http.StatusNotFound, app.H{"error": "material not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// 删除不存在的 id 视为成功
func (mc *MaterialController) DeleteMaterial(c *gin.Context) {
	deleted := mc.Desk.Registry().Delete(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, app.H{"ok": true, "deleted": deleted})
}

func (mc *MaterialController) ListMaterialLoans(c *gin.Context) {
	id := c.Param("id")
	if _, ok := mc.Desk.Registry().Get(id); !ok {
		c.JSON(http.StatusNotFound, app.H{"error": "material not found"})
		return
	}
	c.JSON(http.StatusOK, app.H{"items": mc.Desk.Ledger().ForMaterial(id)})
}

func (mc *MaterialController) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, app.H{"items": models.Categories, "all": models.CategoryAll})
}

// 统计卡片：优先读缓存
func (mc *MaterialController) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	d, gen, ok, err := mc.Dashboard.Get(ctx)
	if err != nil {
		logger.Warnf(ctx, "dashboard cache get err: %v", err)
	} else if ok {
		c.JSON(http.StatusOK, d)
		return
	}
	d = mc.Desk.Dashboard()
	if err == nil {
		if err := mc.Dashboard.Set(ctx, gen, d); err != nil {
			logger.Warnf(ctx, "dashboard cache set err: %v", err)
		}
	}
	c.JSON(http.StatusOK, d)
}

// 上传照片并插到 images 最前面；上传完成后在台账锁内合并，并发上传互不覆盖
func (mc *MaterialController) AddImages(c *gin.Context) {
	id := c.Param("id")
	if _, ok := mc.Desk.Registry().Get(id); !ok {
		c.JSON(http.StatusNotFound, app.H{"error": "material not found"})
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing file"})
		return
	}

	urls := make([]string, 0, len(form.File["file"]))
	for _, fh := range form.File["file"] {
		url, err := mc.storeFile(c, fh)
		if err != nil {
			fail(c, err)
			return
		}
		urls = append(urls, url)
	}

	updated, err := mc.Desk.Registry().Modify(c.Request.Context(), id, func(m *models.Material) error {
		m.Images = append(urls, m.Images...)
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Srv) storeFile(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > media.MaxImageSize {
		return "", media.ErrImageSize
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, media.MaxImageSize+1))
	if err != nil {
		return "", err
	}
	return s.Media.StoreImage(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), data)
}
