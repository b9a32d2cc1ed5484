package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/observability"
	"github.com/valter-silva-au/mflow/pkg/models"
)

type dispatchRequest struct {
	Channel models.Channel `json:"channel"`
	Content string         `json:"content"`
	Files   []string       `json:"files"`
	DryRun  bool           `json:"dryRun"`
}

type skipRequest struct {
	Channel models.Channel `json:"channel"`
}

type validateTemplateRequest struct {
	Type    models.TemplateType `json:"type" binding:"required"`
	Content string              `json:"content"`
}

type statsResponse struct {
	Summary     core.Summary           `json:"summary"`
	Metrics     *observability.Metrics `json:"metrics,omitempty"`
	SuccessRate float64                `json:"successRate"`
}

func channelParam(c *gin.Context, raw models.Channel) (models.Channel, bool) {
	if raw == "" {
		return models.ChannelWechat, true
	}
	if !raw.Valid() {
		errorJSON(c, http.StatusBadRequest, "invalid channel %q: must be wechat or sms", raw)
		return "", false
	}
	return raw, true
}

// serviceError maps engine errors onto HTTP statuses.
func serviceError(c *gin.Context, err error) {
	var derr *core.DispatchError
	switch {
	case errors.Is(err, core.ErrContactNotFound):
		errorJSON(c, http.StatusNotFound, "%s", err)
	case errors.Is(err, core.ErrNoTemplateFound):
		errorJSON(c, http.StatusUnprocessableEntity, "%s", err)
	case errors.As(err, &derr):
		errorJSON(c, http.StatusBadGateway, "%s", err)
	default:
		errorJSON(c, http.StatusInternalServerError, "%s", err)
	}
}

func (s *Server) queueHandler(c *gin.Context) {
	queue, err := s.svc.Queue(c.Query("pending") == "true")
	if err != nil {
		serviceError(c, err)
		return
	}
	if queue == nil {
		queue = []models.WorkItem{}
	}
	c.JSON(http.StatusOK, gin.H{"queue": queue, "count": len(queue)})
}

func (s *Server) previewHandler(c *gin.Context) {
	channel, ok := channelParam(c, models.Channel(c.Query("channel")))
	if !ok {
		return
	}
	p, err := s.svc.Preview(c.Param("contactID"), channel)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) dispatchHandler(c *gin.Context) {
	var req dispatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "invalid request body: %s", err)
			return
		}
	}
	channel, ok := channelParam(c, req.Channel)
	if !ok {
		return
	}

	outcome, err := s.svc.Send(c.Request.Context(), core.SendRequest{
		ContactID: c.Param("contactID"),
		Channel:   channel,
		Content:   req.Content,
		Files:     req.Files,
		DryRun:    req.DryRun,
	})
	if err != nil {
		var derr *core.DispatchError
		if errors.As(err, &derr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "outcome": outcome})
			return
		}
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) skipHandler(c *gin.Context) {
	var req skipRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "invalid request body: %s", err)
			return
		}
	}
	channel, ok := channelParam(c, req.Channel)
	if !ok {
		return
	}
	outcome, err := s.svc.Skip(c.Param("contactID"), channel)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) listContactsHandler(c *gin.Context) {
	contacts, err := s.svc.Contacts()
	if err != nil {
		serviceError(c, err)
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

func (s *Server) replaceContactsHandler(c *gin.Context) {
	var contacts []models.Contact
	if err := c.ShouldBindJSON(&contacts); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	if err := s.svc.ReplaceContacts(contacts); err != nil {
		errorJSON(c, http.StatusBadRequest, "%s", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(contacts)})
}

func (s *Server) listTasksHandler(c *gin.Context) {
	tasks, err := s.svc.Tasks()
	if err != nil {
		serviceError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.MeetingTask{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) replaceTasksHandler(c *gin.Context) {
	var tasks []models.MeetingTask
	if err := c.ShouldBindJSON(&tasks); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	if err := core.CheckTasks(tasks); err != nil {
		errorJSON(c, http.StatusBadRequest, "%s", err)
		return
	}
	if err := s.svc.ReplaceTasks(tasks); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(tasks)})
}

func (s *Server) getSettingsHandler(c *gin.Context) {
	settings, err := s.svc.Settings()
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) saveSettingsHandler(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	if err := core.ValidateSettings(&settings); err != nil {
		errorJSON(c, http.StatusBadRequest, "%s", err)
		return
	}
	if err := s.svc.SaveSettings(&settings); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) validateTemplateHandler(c *gin.Context) {
	var req validateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	if !req.Type.Valid() {
		errorJSON(c, http.StatusBadRequest, "invalid template type %q", req.Type)
		return
	}
	tmpl := models.Template{Type: req.Type, Content: req.Content}
	problems := core.ValidateTemplate(tmpl)
	if problems == nil {
		problems = []string{}
	}
	tokens := core.TemplateTokens(req.Content)
	if tokens == nil {
		tokens = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":    len(problems) == 0,
		"tokens":   tokens,
		"problems": problems,
	})
}

func (s *Server) summaryHandler(c *gin.Context) {
	summary, err := s.svc.Summary()
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) statsHandler(c *gin.Context) {
	summary, err := s.svc.Summary()
	if err != nil {
		serviceError(c, err)
		return
	}
	resp := statsResponse{Summary: summary}
	if s.metricsCalc != nil {
		since, err := observability.ParseSince(c.DefaultQuery("since", "7d"), time.Now())
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "%s", err)
			return
		}
		metrics, err := s.metricsCalc.Calculate(since)
		if err != nil {
			serviceError(c, err)
			return
		}
		resp.Metrics = metrics
		resp.SuccessRate = metrics.SuccessRate()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) alertsHandler(c *gin.Context) {
	if s.alertEngine == nil {
		c.JSON(http.StatusOK, gin.H{"alerts": []observability.Alert{}, "count": 0})
		return
	}
	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		serviceError(c, err)
		return
	}
	if alerts == nil {
		alerts = []observability.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}
