package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VeduStorm/NovaCore/nova/app"
	"github.com/VeduStorm/NovaCore/nova/check"
	"github.com/VeduStorm/NovaCore/nova/db/dao"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// GET /api/license
func (s *Server) lastResult(c *gin.Context) {
	res := s.App.Last()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no check yet"})
		return
	}
	c.JSON(http.StatusOK, resultView(res))
}

// POST /api/license/verify  {license}
func (s *Server) verifyLicense(c *gin.Context) {
	if !s.verifyLimiter.Allow() {
		tooMany(c, time.Second)
		return
	}
	key := "verify|" + c.ClientIP()
	if !s.allowGuard(c, key) {
		return
	}

	var req struct {
		License string `json:"license"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.App.Checker.Evaluate(c.Request.Context(), s.App.Cfg, strings.TrimSpace(req.License), check.ModeNoExit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, check.ErrLicenseMissing) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if res.OK() {
		s.App.Guard.Success(key)
	} else {
		s.App.Guard.Fail(key)
		log.Debugf("verify mismatch ip=%s reason=%s", c.ClientIP(), res.Reason())
	}
	c.JSON(http.StatusOK, resultView(res))
}

// POST /api/license/recheck
func (s *Server) recheck(c *gin.Context) {
	res := s.App.Recheck(c.Request.Context())
	c.JSON(http.StatusOK, resultView(res))
}

// GET /api/audit?day=YYYYMMDD&limit=N
func (s *Server) listAudit(c *gin.Context) {
	if s.App.AuditDB == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit disabled"})
		return
	}
	day := strings.TrimSpace(c.Query("day"))
	if day == "" {
		day = s.now().Format(app.DayLayout)
	}
	if _, err := time.Parse(app.DayLayout, day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYYMMDD"})
		return
	}
	limit := defaultAuditLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxAuditLimit)
	}

	rows, err := dao.ListCheckLogs(c.Request.Context(), s.App.AuditDB.GormDataSource, day, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "items": rows, "count": len(rows)})
}

func resultView(r *check.Result) gin.H {
	return gin.H{
		"ok":          r.OK(),
		"mode":        r.Mode.String(),
		"config_path": r.ConfigPath,
		"checked_at":  r.CheckedAt.UnixMilli(),
		"license":     r.License,
		"mismatches":  r.Mismatches,
		"reason":      r.Reason(),
		"error":       r.Error,
	}
}
