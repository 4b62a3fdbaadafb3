package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/models"
	"github.com/xuri/excelize/v2"
)

func GetDashboardSummary(c *gin.Context) {
	summary, err := models.GetDashboardSummary(c.Request.Context())
	if err != nil {
		respondError(c, "dashboard_handler.go", "GetDashboardSummary", err)
		return
	}
	respondData(c, http.StatusOK, summary)
}

// ExportStockMovement renders the movement chart as a spreadsheet download.
func ExportStockMovement(c *gin.Context) {
	summary, err := models.GetDashboardSummary(c.Request.Context())
	if err != nil {
		respondError(c, "dashboard_handler.go", "ExportStockMovement", err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Stock Movement"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Purchase", "Sale", "Return", "Adjustment", "Cancellation"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, day := range summary.StockMovementChart {
		values := []interface{}{day.Date, day.Purchase, day.Sale, day.Return, day.Adjustment, day.Cancellation}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("stock-movement-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "dashboard_handler.go", "ExportStockMovement", "write xlsx", nil, err)
	}
}
