// controllers/loan_controller.go
package controllers

import (
	"net/http"

	"equipment_loan_tool/app"
	"equipment_loan_tool/logger"
	"equipment_loan_tool/models"

	"github.com/gin-gonic/gin"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

type LendReq struct {
	MaterialID         string `json:"materialId" binding:"required"`
	Quantity           int    `json:"quantity" binding:"required,min=1"`
	BorrowerName       string `json:"borrowerName" binding:"required"`
	BorrowerContact    string `json:"borrowerContact"`
	LoanDate           string `json:"loanDate,omitempty"`
	ExpectedReturnDate string `json:"expectedReturnDate,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

// 借出
func (lc *LoanController) Lend(c *gin.Context) {
	var req LendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
		return
	}
	loan, mat, err := lc.Desk.Lend(c.Request.Context(), models.Loan{
		MaterialID:         req.MaterialID,
		Quantity:           req.Quantity,
		BorrowerName:       req.BorrowerName,
		BorrowerContact:    req.BorrowerContact,
		LoanDate:           req.LoanDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"loan": loan, "material": mat})
}

type ReturnReq struct {
	Condition models.MaterialCondition `json:"condition" binding:"required"`
}

// 归还
func (lc *LoanController) Return(c *gin.Context) {
	loanID := c.Param("id")
	var req ReturnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	ok, err := lc.Guard.Acquire(ctx, loanID)
	if err != nil {
		// redis 故障不阻塞归还
		logger.Warnf(ctx, "return guard err: %v", err)
	} else if !ok {
		c.JSON(http.StatusConflict, app.H{"error": "return already in progress"})
		return
	}

	loan, mat, err := lc.Desk.Return(ctx, loanID, req.Condition)
	if err != nil {
		lc.Guard.Release(ctx, loanID)
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loan": loan, "material": mat})
}

// 借还记录：?status=active|overdue|returned|all&materialId=
func (lc *LoanController) ListLoans(c *gin.Context) {
	led := lc.Desk.Ledger()
	var ls []models.Loan
	switch c.DefaultQuery("status", "all") {
	case "active":
		ls = led.Active()
	case "overdue":
		ls = led.Overdue()
	case "returned":
		ls = led.Returned()
	case "all":
		ls = led.List()
	default:
		c.JSON(http.StatusBadRequest, app.H{"error": "status must be one of active, overdue, returned, all"})
		return
	}
	if mid := c.Query("materialId"); mid != "" {
		filtered := ls[:0]
		for _, l := range ls {
			if l.MaterialID == mid {
				filtered = append(filtered, l)
			}
		}
		ls = filtered
	}
	c.JSON(http.StatusOK, app.H{"items": ls, "today": led.Today()})
}

func (lc *LoanController) GetLoan(c *gin.Context) {
	l, ok := lc.Desk.Ledger().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, app.H{"error": "loan not found"})
		return
	}
	c.JSON(http.StatusOK, l)
}

// 直接删除借用记录，不回写物资
func (lc *LoanController) DeleteLoan(c *gin.Context) {
	deleted := lc.Desk.Ledger().Delete(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, app.H{"ok": true, "deleted": deleted})
}
