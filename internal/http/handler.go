package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plategate/internal/config"
	"plategate/internal/domain/plate"
	"plategate/internal/report"
	"plategate/internal/service"
)

const (
	msgRegistered     = "ลงทะเบียนสำเร็จ ✅"
	msgIncomplete     = "ข้อมูลไม่ครบ"
	msgRegisterFailed = "บันทึกข้อมูลไม่สำเร็จ"
)

// RegisterForm is the multipart body of POST /register.
type RegisterForm struct {
	Owner string                `form:"owner" binding:"required"`
	Plate string                `form:"plate" binding:"required"`
	Image *multipart.FileHeader `form:"image" binding:"required"`
}

type Handler struct {
	scans         *service.ScanService
	registrations *service.RegistrationService
	history       *service.HistoryService
	flash         *flasher
	config        *config.Config
	log           zerolog.Logger
}

func NewHandler(
	scans *service.ScanService,
	registrations *service.RegistrationService,
	history *service.HistoryService,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		scans:         scans,
		registrations: registrations,
		history:       history,
		flash:         newFlasher(cfg.HTTP.SessionSecret),
		config:        cfg,
		log:           log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/", h.index)
	r.GET("/register", h.registerPage)
	r.POST("/register", h.register)
	r.GET("/scan", h.scanPage)
	r.GET("/history", h.historyPage)

	r.Static("/uploads", h.config.Paths.UploadDir)
	r.Static("/scans", h.config.Paths.ScanDir)

	api := r.Group("/api")
	{
		api.POST("/scan", h.scan)
		api.GET("/registrations", h.listRegistrations)
		api.GET("/events", h.listEvents)
	}

	protected := r.Group("/api")
	protected.Use(authMiddleware)
	{
		protected.GET("/export.xlsx", h.exportWorkbook)
	}
}

func (h *Handler) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"title": "Plate Gate"})
}

func (h *Handler) registerPage(c *gin.Context) {
	flash, err := h.flash.pop(c)
	if err != nil {
		h.log.Debug().Err(err).Msg("discarding invalid flash cookie")
	}
	c.HTML(http.StatusOK, "register.html", gin.H{
		"title": "ลงทะเบียนป้ายทะเบียน",
		"flash": flash,
	})
}

func (h *Handler) register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Warn().Err(err).Msg("incomplete registration form")
		h.redirectWithFlash(c, "/register", flashError, msgIncomplete)
		return
	}

	if strings.TrimSpace(form.Image.Filename) == "" {
		h.log.Warn().Msg("registration form has an empty image part")
		h.redirectWithFlash(c, "/register", flashError, msgIncomplete)
		return
	}
	photo, err := form.Image.Open()
	if err != nil {
		h.log.Warn().Err(err).Str("filename", form.Image.Filename).Msg("failed to open uploaded photo")
		h.redirectWithFlash(c, "/register", flashError, msgIncomplete)
		return
	}
	defer photo.Close()

	_, err = h.registrations.Register(c.Request.Context(), plate.RegistrationInput{
		Owner:         form.Owner,
		PlateRaw:      form.Plate,
		PhotoFilename: form.Image.Filename,
		Photo:         photo,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			h.log.Warn().Err(err).Str("plate", form.Plate).Msg("invalid registration")
			h.redirectWithFlash(c, "/register", flashError, msgIncomplete)
			return
		}
		h.log.Error().Err(err).Str("plate", form.Plate).Msg("failed to register plate")
		h.redirectWithFlash(c, "/register", flashError, msgRegisterFailed)
		return
	}

	h.redirectWithFlash(c, "/register", flashSuccess, msgRegistered)
}

func (h *Handler) redirectWithFlash(c *gin.Context, location, category, message string) {
	if err := h.flash.set(c, category, message); err != nil {
		h.log.Error().Err(err).Msg("failed to set flash message")
	}
	c.Redirect(http.StatusFound, location)
}

func (h *Handler) scanPage(c *gin.Context) {
	c.HTML(http.StatusOK, "scan.html", gin.H{"title": "สแกนป้ายทะเบียน"})
}

func (h *Handler) historyPage(c *gin.Context) {
	history, err := h.history.History(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load history")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.HTML(http.StatusOK, "history.html", gin.H{
		"title":  "ประวัติ",
		"regs":   history.Registrations,
		"passes": history.Passes,
		"fails":  history.Fails,
	})
}

func (h *Handler) scan(c *gin.Context) {
	var req plate.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Image) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no image"})
		return
	}

	result, err := h.scans.Scan(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no image"})
			return
		}
		h.log.Error().Err(err).Msg("scan failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"result":        result.Result,
		"detected_raw":  result.DetectedRaw,
		"detected_norm": result.DetectedNorm,
		"matched_owner": result.MatchedOwner,
		"snapshot_url":  result.SnapshotURL,
	})
}

func (h *Handler) listRegistrations(c *gin.Context) {
	regs, err := h.history.Registrations(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(regs))
}

func (h *Handler) listEvents(c *gin.Context) {
	result := plate.Result(strings.ToUpper(strings.TrimSpace(c.Query("result"))))
	if result == "" {
		history, err := h.history.History(c.Request.Context())
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse(gin.H{
			"passes": history.Passes,
			"fails":  history.Fails,
		}))
		return
	}

	events, err := h.history.Events(c.Request.Context(), result)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) exportWorkbook(c *gin.Context) {
	history, err := h.history.History(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	filename := fmt.Sprintf("plategate_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := report.WriteWorkbook(c.Writer, history.Registrations, history.Passes, history.Fails); err != nil {
		h.log.Error().Err(err).Msg("failed to write workbook")
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	h.log.Error().Err(err).Msg("request failed")
	c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
