package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/amishk599/jobsync/internal/annotation"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/store"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listJobs handles GET /jobs. Missing parameters fall back to
// store.DefaultQuery.
func (s *Server) listJobs(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	page, err := s.jobs.Query(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func parseQuery(c *gin.Context) (store.Query, error) {
	q := store.DefaultQuery()

	if v, ok := c.GetQuery("page"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, model.Validationf("page must be an integer, got %q", v)
		}
		q.Page = n
	}
	if v, ok := c.GetQuery("page_size"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, model.Validationf("page_size must be an integer, got %q", v)
		}
		q.PageSize = n
	}
	if v, ok := c.GetQuery("order_by"); ok {
		q.OrderBy = v
	}
	if v, ok := c.GetQuery("order_dir"); ok {
		dir, err := store.ParseOrderDir(v)
		if err != nil {
			return q, err
		}
		q.OrderDir = dir
	}
	if v, ok := c.GetQuery("mode"); ok {
		mode, err := store.ParseMode(v)
		if err != nil {
			return q, err
		}
		q.Mode = mode
	}
	return q, nil
}

// setFlags handles POST /jobs/:id/flags with a partial annotation.Update body.
func (s *Server) setFlags(c *gin.Context) {
	var u annotation.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		s.writeError(c, model.Validationf("invalid request body: %v", err))
		return
	}
	if err := s.validate.Struct(u); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			s.writeError(c, model.Validationf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			return
		}
		s.writeError(c, model.Validationf("%v", err))
		return
	}

	id := c.Param("id")
	if err := s.flags.SetFlags(c.Request.Context(), id, u); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": id})
}
