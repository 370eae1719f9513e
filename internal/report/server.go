package report

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/datagora/openhours/store"
)

// Server serves run reports over HTTP.
type Server struct {
	store *store.Store
	echo  *echo.Echo
}

// NewServer wires the report routes onto a fresh Echo instance.
func NewServer(st *store.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{store: st, echo: e}
	e.GET("/report", s.GetReport)
	e.GET("/report/chart", s.GetChart)
	e.GET("/feed", s.GetFeed)
	e.GET("/api/runs", s.ListRuns)
	e.GET("/api/comparisons", s.ListComparisons)
	return s
}

// Handler exposes the routes for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// selectRun resolves the run named by the "run" query parameter, falling
// back to the latest run.
func (s *Server) selectRun(c echo.Context) (*store.Run, error) {
	ctx := c.Request().Context()
	if id := c.QueryParam("run"); id != "" {
		runs, err := s.store.ListRuns(ctx, &store.FindRun{ID: &id})
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, nil
		}
		return runs[0], nil
	}
	return s.store.GetLatestRun(ctx)
}

// GetReport renders the HTML summary of a run.
// GET /report?run=<id>
func (s *Server) GetReport(c echo.Context) error {
	run, err := s.selectRun(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no run found")
	}
	records, err := s.store.ListComparisons(c.Request().Context(), &store.FindComparison{RunID: &run.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return WriteSummary(c.Response(), run, records)
}

// GetChart renders the verdict pie chart of a run.
// GET /report/chart?run=<id>
func (s *Server) GetChart(c echo.Context) error {
	run, err := s.selectRun(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no run found")
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return WriteChart(c.Response(), run)
}

// GetFeed serves the Atom feed of diverging facilities.
// GET /feed?run=<id>
func (s *Server) GetFeed(c echo.Context) error {
	run, err := s.selectRun(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no run found")
	}
	verdict := "different"
	records, err := s.store.ListComparisons(c.Request().Context(), &store.FindComparison{
		RunID:   &run.ID,
		Verdict: &verdict,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	baseURL := c.Scheme() + "://" + c.Request().Host
	atom, err := DivergenceFeed(baseURL, run, records).ToAtom()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(atom))
}

// ListRuns returns the stored runs, newest first.
// GET /api/runs?limit=<n>
func (s *Server) ListRuns(c echo.Context) error {
	find := &store.FindRun{}
	if limit, err := intParam(c, "limit"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	} else if limit != nil {
		find.Limit = limit
	}
	runs, err := s.store.ListRuns(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, runs)
}

// ListComparisons returns comparison records, filterable by run, facility
// and verdict.
// GET /api/comparisons?run=<id>&facility=<id>&verdict=<v>&limit=<n>
func (s *Server) ListComparisons(c echo.Context) error {
	find := &store.FindComparison{}
	if v := c.QueryParam("run"); v != "" {
		find.RunID = &v
	}
	if v := c.QueryParam("facility"); v != "" {
		find.FacilityID = &v
	}
	if v := c.QueryParam("verdict"); v != "" {
		find.Verdict = &v
	}
	if limit, err := intParam(c, "limit"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	} else if limit != nil {
		find.Limit = limit
	}
	records, err := s.store.ListComparisons(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

func intParam(c echo.Context, name string) (*int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, errInvalidParam
	}
	return &n, nil
}

var errInvalidParam = echo.NewHTTPError(http.StatusBadRequest, "invalid parameter")
