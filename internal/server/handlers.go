package server

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mesa-livre/print-agent/internal/layout"
	"github.com/mesa-livre/print-agent/internal/model"
	"github.com/mesa-livre/print-agent/internal/render"
	"github.com/mesa-livre/print-agent/internal/sink"
)

// handleDetect enumerates every printer visible to the host.
func (s *Server) handleDetect(c *gin.Context) {
	printers := s.locator.Discover()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"printers": printers,
		"count":    len(printers),
	})
}

// handleStatus is the compact connectivity summary the POS front-end polls.
func (s *Server) handleStatus(c *gin.Context) {
	printers := s.locator.Discover()

	connected := false
	modelName := ""
	for _, p := range printers {
		if p.Status == model.PrinterOnline {
			connected = true
			modelName = p.DisplayName
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":         connected,
		"model":             modelName,
		"platform":          runtime.GOOS,
		"count":             len(printers),
		"simulatedReceipts": s.sink.SimulatedCount(),
	})
}

type printRequest struct {
	PrinterID string       `json:"printerId"`
	OrderData *model.Order `json:"orderData"`
	PrintText string       `json:"printText"`
}

// handlePrint is the manual print path: it bypasses the processed ledger and
// reports failures with a user-readable message.
func (s *Server) handlePrint(c *gin.Context) {
	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "corpo da requisicao invalido"})
		return
	}
	if req.OrderData == nil && req.PrintText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "orderData ou printText obrigatorio"})
		return
	}

	var order model.Order
	if req.OrderData != nil {
		order = *req.OrderData
	}

	if err := s.engine.PrintNow(c.Request.Context(), req.PrinterID, order, req.PrintText); err != nil {
		s.log.WithError(err).Error("Manual print failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": userMessage(err),
			"code":    string(sink.CodeOf(err)),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Impressao enviada"})
}

type testRequest struct {
	PrinterID string `json:"printerId"`
	// Config is the documented field name; Layout is accepted as an alias.
	Config *layout.Layout `json:"config"`
	Layout *layout.Layout `json:"layout"`
}

// handleTestPrint prints a fixed sample receipt, optionally through a
// user-supplied layout so a draft can be tried before saving.
func (s *Server) handleTestPrint(c *gin.Context) {
	var req testRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "corpo da requisicao invalido"})
			return
		}
	}

	l := s.layout()
	draft := req.Config
	if draft == nil {
		draft = req.Layout
	}
	if draft != nil {
		if err := draft.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		l = draft
	}

	text := render.Render(sampleOrder(), l, render.Overrides{
		layout.BindNotes: "IMPRESSAO DE TESTE",
	})
	if err := s.engine.PrintNow(c.Request.Context(), req.PrinterID, model.Order{}, text); err != nil {
		s.log.WithError(err).Error("Test print failed")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": userMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handlePreview returns a PNG rendering of the sample receipt, or of the
// posted order when one is supplied via query-less GET semantics.
func (s *Server) handlePreview(c *gin.Context) {
	if s.preview == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "visualizacao indisponivel: Chrome/Chromium nao encontrado",
		})
		return
	}

	text := render.Render(sampleOrder(), s.layout(), nil)
	png, err := s.preview.RenderPNG(c.Request.Context(), text)
	if err != nil {
		s.log.WithError(err).Error("Preview generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "falha ao gerar visualizacao"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleEnable(c *gin.Context) {
	if err := s.engine.Enable(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	s.engine.Notify()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDisable(c *gin.Context) {
	if err := s.engine.Disable(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.engine.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type selectPrinterRequest struct {
	PrinterPath string `json:"printerPath"`
}

// handleSelectPrinter points automatic printing at a different device
// without restarting the agent. An empty path disarms the engine until
// a printer is chosen again.
func (s *Server) handleSelectPrinter(c *gin.Context) {
	var req selectPrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "corpo da requisicao invalido"})
		return
	}
	s.engine.SelectPrinter(req.PrinterPath)
	if req.PrinterPath != "" {
		s.engine.Notify()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "printer": req.PrinterPath})
}

func (s *Server) handleAutoStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status())
}

func userMessage(err error) string {
	var pe *sink.PrintError
	if errors.As(err, &pe) {
		return pe.Message()
	}
	return "Falha ao imprimir"
}

func sampleOrder() model.Order {
	amount := decimal.NewFromFloat(52.90)
	return model.Order{
		ID:              1,
		CustomerName:    "Cliente Exemplo",
		Address:         "Rua das Flores, 123",
		ItemDescription: "2x Pizza Margherita, 1x Coca-Cola 2L, 1x Batata Frita",
		Amount:          &amount,
		PaymentType:     "Dinheiro",
		CreatedAt:       time.Now(),
	}
}
