package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradelens/app"
	"github.com/rustyeddy/tradelens/journal"
	"github.com/rustyeddy/tradelens/plan"
	"github.com/rustyeddy/tradelens/risk"
)

// maxAnalyzeBody bounds the JSON body of an analyze call (two data URLs).
const maxAnalyzeBody = 32 << 20

type Handler struct {
	app *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

func (h *Handler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{"status": "ok", "entries": h.app.Ledger().Len()})
	}
}

type analyzeRequest struct {
	Image          string   `json:"image" binding:"required"`
	SecondaryImage string   `json:"secondaryImage"`
	Strategy       string   `json:"strategy"`
	Balance        *float64 `json:"balance"`
	RiskPercent    *float64 `json:"riskPercent"`
}

func (h *Handler) Analyze() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAnalyzeBody)

		var body analyzeRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}

		req := h.app.NewRequest(body.Image)
		req.Secondary = body.SecondaryImage
		if body.Strategy != "" {
			req.Strategy = body.Strategy
		}
		if body.Balance != nil {
			req.Balance = *body.Balance
		}
		if body.RiskPercent != nil {
			req.RiskPercent = *body.RiskPercent
		}

		res, err := h.app.Analyze(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, res)
	}
}

type sizeRequest struct {
	Pair        string   `json:"pair"`
	Entry       *float64 `json:"entry" binding:"required"`
	StopLoss    *float64 `json:"stopLoss" binding:"required"`
	Balance     *float64 `json:"balance"`
	RiskPercent *float64 `json:"riskPercent"`
	Prior       string   `json:"prior"`
}

type sizeResponse struct {
	PositionSize string  `json:"positionSize"`
	Computed     bool    `json:"computed"`
	PipsAtRisk   string  `json:"pipsAtRisk"`
	RiskAmount   string  `json:"riskAmount"`
	PipValue     float64 `json:"pipValue"`
}

func (h *Handler) Size() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body sizeRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}

		cfg := h.app.Config().Risk
		in := risk.Inputs{
			Pair:        body.Pair,
			Entry:       *body.Entry,
			StopLoss:    *body.StopLoss,
			Balance:     cfg.Balance,
			RiskPercent: cfg.RiskPercent,
		}
		if body.Balance != nil {
			in.Balance = *body.Balance
		}
		if body.RiskPercent != nil {
			in.RiskPercent = *body.RiskPercent
		}
		prior := body.Prior
		if prior == "" {
			prior = risk.DefaultSize
		}

		res := h.app.Sizer().Calculate(in)
		out := sizeResponse{
			PositionSize: prior,
			Computed:     res.Computed,
			PipsAtRisk:   res.PipsAtRisk.String(),
			RiskAmount:   res.RiskAmount.StringFixed(2),
			PipValue:     res.PipValue,
		}
		if res.Computed {
			out.PositionSize = res.String()
		}
		respond(c, http.StatusOK, out)
	}
}

type ledgerResponse struct {
	Version uint64              `json:"version"`
	Entries []plan.JournalEntry `json:"entries"`
}

func (h *Handler) ListLedger() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := journal.ParseFilterStatus(c.Query("status"))
		if err != nil {
			fail(c, err)
			return
		}
		f := journal.Filter{Pair: c.Query("pair"), Status: status}
		entries, version := h.app.Ledger().Snapshot()
		respond(c, http.StatusOK, ledgerResponse{Version: version, Entries: journal.FilterEntries(entries, f)})
	}
}

type saveRequest struct {
	Plan         plan.TradePlan `json:"plan"`
	PositionSize string         `json:"positionSize"`
}

func (h *Handler) SaveEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body saveRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		if body.Plan.ID == "" {
			badRequest(c, errors.New("plan.id is required"))
			return
		}
		size := body.PositionSize
		if size == "" {
			size = risk.DefaultSize
		}
		entries, err := h.app.Save(body.Plan, size)
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusCreated, ledgerResponse{Version: h.app.Ledger().Version(), Entries: entries})
	}
}

type replaceRequest struct {
	Version *uint64             `json:"version" binding:"required"`
	Entries []plan.JournalEntry `json:"entries" binding:"required"`
}

func (h *Handler) ReplaceLedger() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body replaceRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		for _, e := range body.Entries {
			if !e.Status.Valid() {
				fail(c, fmt.Errorf("%w: entry %s has status %q", journal.ErrInvalidStatus, e.ID, e.Status))
				return
			}
		}
		entries, err := h.app.Ledger().ReplaceAll(*body.Version, body.Entries)
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, ledgerResponse{Version: h.app.Ledger().Version(), Entries: entries})
	}
}

func (h *Handler) Stats() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, h.app.Ledger().Stats())
	}
}

func (h *Handler) Export() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, _ := h.app.Ledger().Snapshot()
		var err error
		switch strings.ToLower(c.DefaultQuery("format", "json")) {
		case "csv":
			c.Header("Content-Type", "text/csv; charset=utf-8")
			c.Header("Content-Disposition", `attachment; filename="tradelens-journal.csv"`)
			c.Status(http.StatusOK)
			err = journal.WriteCSV(c.Writer, entries)
		case "org":
			c.String(http.StatusOK, journal.FormatEntriesOrg(entries))
		case "json":
			c.Header("Content-Type", "application/json; charset=utf-8")
			c.Status(http.StatusOK)
			err = journal.WriteJSON(c.Writer, entries)
		default:
			badRequest(c, fmt.Errorf("unknown export format %q", c.Query("format")))
			return
		}
		if err != nil {
			_ = c.Error(err)
		}
	}
}

func (h *Handler) GetEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := h.app.Ledger().Get(c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, e)
	}
}

type patchRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

func (h *Handler) PatchEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body patchRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		if body.Status == nil && body.Notes == nil {
			badRequest(c, errors.New("nothing to update: send status and/or notes"))
			return
		}

		var st plan.Status
		if body.Status != nil {
			var err error
			if st, err = plan.ParseStatus(*body.Status); err != nil {
				fail(c, fmt.Errorf("%w: %v", journal.ErrInvalidStatus, err))
				return
			}
		}

		// status and notes land in a single write
		e, err := h.app.Ledger().Update(c.Param("id"), func(e *plan.JournalEntry) {
			if body.Status != nil {
				e.Status = st
			}
			if body.Notes != nil {
				e.Notes = *body.Notes
			}
		})
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, e)
	}
}

func (h *Handler) DeleteEntry() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.app.Ledger().Delete(c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type sessionRequest struct {
	Authenticated *bool `json:"authenticated" binding:"required"`
}

func (h *Handler) GetSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{"authenticated": h.app.Authenticated()})
	}
}

func (h *Handler) PutSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body sessionRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		if err := h.app.SetAuthenticated(*body.Authenticated); err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"authenticated": h.app.Authenticated()})
	}
}
