package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CallsReport handles GET /v1/admin/reports/calls. The window comes from
// RFC 3339 from/to query params and defaults to the last 24 hours.
func (a *API) CallsReport(c *gin.Context) {
	now := time.Now().UTC()
	from, to := now.Add(-24*time.Hour), now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
		to = parsed
	}

	summary, err := a.reports.CallsSummary(c.Request.Context(), from, to)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
