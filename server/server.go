// Package server hosts the webhook HTTP surface and the scheduled triggers.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ponto2/line-diary/internal/profile"
	"github.com/ponto2/line-diary/server/diary"
	"github.com/ponto2/line-diary/server/scheduler"
)

// Trigger schedule, local time.
const (
	reminderHour    = 21
	weeklyHour      = 20
	monthEndHour    = 20
	reminderMinutes = 0
)

// Server binds the webhook routes and drives the scheduler.
type Server struct {
	echo      *echo.Echo
	profile   *profile.Profile
	service   *diary.Service
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// New creates the server and registers routes and jobs.
func New(p *profile.Profile, service *diary.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		profile:   p,
		service:   service,
		scheduler: scheduler.New(logger),
		logger:    logger,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/webhook", s.handleWebhook)

	loc := p.Location()
	s.scheduler.Register(scheduler.Job{
		Name:        "daily-reminder",
		Description: "remind when no entry exists for today",
		Next:        scheduler.DailyAt(reminderHour, reminderMinutes, loc),
		Fn:          s.service.RunDailyReminder,
	})
	s.scheduler.Register(scheduler.Job{
		Name:        "weekly-review",
		Description: "generate and push the weekly review",
		Next:        scheduler.WeeklyOn(time.Sunday, weeklyHour, loc),
		Fn: func(ctx context.Context) error {
			_, err := s.service.RunWeeklyReview(ctx)
			return err
		},
	})
	s.scheduler.Register(scheduler.Job{
		Name:        "month-end-review",
		Description: "generate and push the month-end review",
		Next:        scheduler.MonthEndAt(monthEndHour, loc),
		Fn: func(ctx context.Context) error {
			_, err := s.service.RunMonthlyReview(ctx)
			return err
		},
	})

	return s
}

// Start runs the scheduler and serves HTTP until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.scheduler.Start(ctx)
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	s.logger.Info("diary bot listening", "addr", addr, "mode", s.profile.Mode, "version", s.profile.Version)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, 1<<20))
	if err != nil {
		s.logger.Warn("webhook body read failed", "error", err)
		return c.String(http.StatusOK, "error")
	}
	// The transport always gets an acknowledgment; failures degrade inside
	// the service.
	_ = s.service.HandleWebhook(c.Request().Context(), body)
	return c.String(http.StatusOK, "ok")
}
