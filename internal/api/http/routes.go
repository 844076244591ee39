package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
	"github.com/i474232898/site-aqi-monitor/internal/content"
)

var validate = validator.New()

// Monitor is the read side of the acquisition loop the API serves from.
type Monitor interface {
	Snapshot() aqi.Snapshot
	Alerts() []aqi.Alert
	Subscribe() (<-chan aqi.Snapshot, func())
}

// ErrorHandler renders every handler error as a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, mon Monitor) {
	v1 := app.Group("/api/v1")

	v1.Get("/aqi/current", func(c *fiber.Ctx) error {
		return c.JSON(newCurrentView(mon.Snapshot()))
	})

	v1.Get("/aqi/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings := req.apply(mon.Snapshot().History)
		return c.JSON(fiber.Map{
			"count":    len(readings),
			"readings": readings,
		})
	})

	v1.Get("/aqi/forecast", func(c *fiber.Ctx) error {
		return c.JSON(aqi.BuildForecast(mon.Snapshot()))
	})

	v1.Get("/aqi/alerts", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"alerts": mon.Alerts(),
		})
	})

	v1.Get("/aqi/stream", streamHandler(mon))

	v1.Get("/compliance/checklist", func(c *fiber.Ctx) error {
		items, err := content.Checklist()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load checklist")
		}
		return c.JSON(fiber.Map{"items": items})
	})

	v1.Get("/compliance/guidelines", func(c *fiber.Ctx) error {
		rows, err := content.Guidelines()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load guidelines")
		}
		return c.JSON(fiber.Map{"guidelines": rows})
	})

	v1.Post("/compliance/evaluate", func(c *fiber.Ctx) error {
		var req evaluateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ev, err := content.Evaluate(req.Checked)
		if err != nil {
			if errors.Is(err, content.ErrUnknownItem) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to evaluate checklist")
		}
		return c.JSON(ev)
	})
}

// parameterView is the dashboard card for one particulate fraction.
type parameterView struct {
	Current   *float64    `json:"current"`
	Previous  *float64    `json:"previous"`
	SafeLimit float64     `json:"safeLimit"`
	Status    *aqi.Status `json:"status"`
	Movement  *aqi.Trend  `json:"movement"`
}

type currentView struct {
	PM25           parameterView  `json:"pm25"`
	PM10           parameterView  `json:"pm10"`
	SecondaryIndex *float64       `json:"secondaryIndex"`
	Advisories     []aqi.Advisory `json:"advisories"`
	LastAlertTime  *time.Time     `json:"lastAlertTime"`
	UpdatedAt      *time.Time     `json:"updatedAt"`
	TickCount      int            `json:"tickCount"`
}

func newParameterView(current, previous *float64, limit float64) parameterView {
	v := parameterView{Current: current, Previous: previous, SafeLimit: limit}
	if s, ok := aqi.Classify(current, limit); ok {
		v.Status = &s
	}
	if m, ok := aqi.Movement(current, previous); ok {
		v.Movement = &m
	}
	return v
}

func newCurrentView(s aqi.Snapshot) currentView {
	v := currentView{
		PM25:           newParameterView(s.CurrentPM25, s.PreviousPM25, aqi.PM25SafeLimit),
		PM10:           newParameterView(s.CurrentPM10, s.PreviousPM10, aqi.PM10SafeLimit),
		SecondaryIndex: s.CurrentSecondaryIndex,
		Advisories:     aqi.Advisories(s.CurrentPM25, s.CurrentPM10),
		LastAlertTime:  s.LastAlertTime,
		TickCount:      s.TickCount,
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Limit *int      `validate:"omitempty,min=1,max=500"`
	From  time.Time `validate:"-"`
	To    time.Time `validate:"omitempty,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		h.Limit = &n
	}

	if s := c.Query("from"); s != "" {
		from, err := parseTime(s)
		if err != nil {
			return err
		}
		h.From = from
	}
	if s := c.Query("to"); s != "" {
		to, err := parseTime(s)
		if err != nil {
			return err
		}
		h.To = to
	}
	return nil
}

// apply filters history to the requested window and keeps the newest Limit
// readings, in chronological order.
func (h historyQuery) apply(history []aqi.Reading) []aqi.Reading {
	out := history
	if !h.From.IsZero() || !h.To.IsZero() {
		out = make([]aqi.Reading, 0, len(history))
		for _, r := range history {
			ts, err := r.Timestamp()
			if err != nil {
				continue
			}
			if !h.From.IsZero() && ts.Before(h.From) {
				continue
			}
			if !h.To.IsZero() && ts.After(h.To) {
				continue
			}
			out = append(out, r)
		}
	}

	limit := aqi.HistoryLimit
	if h.Limit != nil {
		limit = *h.Limit
	}
	return aqi.Tail(out, limit)
}

type evaluateRequest struct {
	Checked []string `json:"checked" validate:"required,dive,required"`
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
