package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"trustcal/internal/admin"
	"trustcal/internal/calendar"
	"trustcal/internal/ics"
	appLog "trustcal/internal/log"
	"trustcal/internal/model"
	"trustcal/internal/store"
)

const (
	monthLayout = "2006-01"
	// defaultExportMonths is the ICS window when the query gives none.
	defaultExportMonths = 3
)

type sunTimesDTO struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

type activityDTO struct {
	Type        model.ActivityType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	IsDefault   bool               `json:"is_default"`
	SunTimes    *sunTimesDTO       `json:"sun_times,omitempty"`
	Color       string             `json:"color"`
	Icon        string             `json:"icon"`
}

type dayDTO struct {
	Date       string        `json:"date"`
	InMonth    bool          `json:"in_month"`
	Activities []activityDTO `json:"activities"`
}

type monthDTO struct {
	Month     string   `json:"month"`
	WeekStart string   `json:"week_start"`
	Days      []dayDTO `json:"days"`
}

type entryDTO struct {
	Date             string          `json:"date"`
	EntryType        model.EntryType `json:"entry_type"`
	IsManualOverride bool            `json:"is_manual_override"`
	Title            string          `json:"title,omitempty"`
	Description      string          `json:"description,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	SunriseTime      string          `json:"sunrise_time,omitempty"`
	SunsetTime       string          `json:"sunset_time,omitempty"`
	CreatedBy        uuid.UUID       `json:"created_by"`
}

type festivalDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	Description string    `json:"description,omitempty"`
	IsRecurring bool      `json:"is_recurring"`
	IsActive    bool      `json:"is_active"`
	ExternalUID string    `json:"external_uid,omitempty"`
}

type activityTypeDTO struct {
	Type    model.ActivityType `json:"type"`
	Color   string             `json:"color"`
	Icon    string             `json:"icon"`
	Primary bool               `json:"primary"`
}

func toDayDTO(d calendar.DayView) dayDTO {
	out := dayDTO{
		Date:       model.DateKey(d.Date),
		InMonth:    d.InMonth,
		Activities: make([]activityDTO, 0, len(d.Activities)),
	}
	for _, a := range d.Activities {
		dto := activityDTO{
			Type:        a.Type,
			Title:       a.Title,
			Description: a.Description,
			Reason:      a.Reason,
			IsDefault:   a.IsDefault,
			Color:       calendar.ActivityColor(a.Type),
			Icon:        calendar.ActivityIcon(a.Type),
		}
		if a.SunTimes != nil {
			dto.SunTimes = &sunTimesDTO{Sunrise: a.SunTimes.Sunrise, Sunset: a.SunTimes.Sunset}
		}
		out.Activities = append(out.Activities, dto)
	}
	return out
}

func toEntryDTO(e model.CalendarEntry) entryDTO {
	return entryDTO{
		Date:             model.DateKey(e.Date),
		EntryType:        e.EntryType,
		IsManualOverride: e.IsManualOverride,
		Title:            e.Title,
		Description:      e.Description,
		Reason:           e.Reason,
		SunriseTime:      e.SunriseTime,
		SunsetTime:       e.SunsetTime,
		CreatedBy:        e.CreatedBy,
	}
}

func toFestivalDTO(f model.Festival) festivalDTO {
	dto := festivalDTO{
		ID:          f.ID,
		Name:        f.Name,
		Date:        model.DateKey(f.Date),
		Description: f.Description,
		IsRecurring: f.IsRecurring,
		IsActive:    f.IsActive,
	}
	if f.ExternalUID != nil {
		dto.ExternalUID = *f.ExternalUID
	}
	return dto
}

// GET /api/calendar/month?month=YYYY-MM (default: current month)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("month")
	var ym time.Time
	if raw == "" {
		now := s.now()
		ym = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		var err error
		ym, err = time.Parse(monthLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
	}

	view, err := s.deps.Calendar.Month(r.Context(), ym.Year(), ym.Month())
	if err != nil {
		s.writeServiceError(w, "load month", err)
		return
	}

	resp := monthDTO{
		Month:     ym.Format(monthLayout),
		WeekStart: strings.ToLower(view.WeekStart.String()),
		Days:      make([]dayDTO, 0, len(view.Days)),
	}
	for _, d := range view.Days {
		resp.Days = append(resp.Days, toDayDTO(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/calendar/day?date=YYYY-MM-DD
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(w, r.URL.Query().Get("date"), "date")
	if !ok {
		return
	}
	day, err := s.deps.Calendar.Day(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, "load day", err)
		return
	}
	writeJSON(w, http.StatusOK, toDayDTO(day))
}

// GET /api/calendar.ics?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	now := s.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if v := q.Get("from"); v != "" {
		d, ok := parseDateParam(w, v, "from")
		if !ok {
			return
		}
		from = d
	}
	to := from.AddDate(0, defaultExportMonths, -1)
	if v := q.Get("to"); v != "" {
		d, ok := parseDateParam(w, v, "to")
		if !ok {
			return
		}
		to = d
	}

	days, err := s.deps.Calendar.Range(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, "export calendar", err)
		return
	}

	body := ics.Export(days, ics.ExportOptions{Name: s.deps.CalendarName, Now: now})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="trustcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleActivityTypes(w http.ResponseWriter, _ *http.Request) {
	types := model.ActivityTypes()
	out := make([]activityTypeDTO, 0, len(types))
	for _, t := range types {
		out = append(out, activityTypeDTO{
			Type:    t,
			Color:   calendar.ActivityColor(t),
			Icon:    calendar.ActivityIcon(t),
			Primary: t.IsPrimary(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type overrideRequest struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, ok := parseDateParam(w, req.Date, "date")
	if !ok {
		return
	}
	e, err := s.deps.Admin.SetOverride(r.Context(), date, model.Status(req.Status), adminIDFor(r))
	if err != nil {
		s.writeServiceError(w, "set override", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

type holidayRequest struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

func (s *Server) handleHoliday(w http.ResponseWriter, r *http.Request) {
	var req holidayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, ok := parseDateParam(w, req.Date, "date")
	if !ok {
		return
	}
	e, err := s.deps.Admin.MarkHoliday(r.Context(), date, req.Title, req.Description, req.Reason, adminIDFor(r))
	if err != nil {
		s.writeServiceError(w, "mark holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

type customEventRequest struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleCustomEvent(w http.ResponseWriter, r *http.Request) {
	var req customEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, ok := parseDateParam(w, req.Date, "date")
	if !ok {
		return
	}
	e, err := s.deps.Admin.AddCustomEvent(r.Context(), date, req.Title, req.Description, adminIDFor(r))
	if err != nil {
		s.writeServiceError(w, "add custom event", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

// GET /api/festivals?all=1 includes inactive festivals.
func (s *Server) handleListFestivals(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all")
	list, err := s.deps.Festivals.ListFestivals(r.Context(), all == "1" || all == "true")
	if err != nil {
		s.writeServiceError(w, "list festivals", err)
		return
	}
	out := make([]festivalDTO, 0, len(list))
	for _, f := range list {
		out = append(out, toFestivalDTO(f))
	}
	writeJSON(w, http.StatusOK, out)
}

type festivalRequest struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Description string `json:"description"`
	IsRecurring bool   `json:"is_recurring"`
}

func (s *Server) handleCreateFestival(w http.ResponseWriter, r *http.Request) {
	var req festivalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, ok := parseDateParam(w, req.Date, "date")
	if !ok {
		return
	}
	f, err := s.deps.Admin.AddFestival(r.Context(), req.Name, date, req.Description, req.IsRecurring)
	if err != nil {
		s.writeServiceError(w, "add festival", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFestivalDTO(f))
}

type festivalActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) handleFestivalActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid festival id")
		return
	}
	var req festivalActiveRequest
	if err := decodeJSON(w, r, &req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"is_active\": true|false}")
		return
	}
	f, err := s.deps.Admin.SetFestivalActive(r.Context(), id, *req.IsActive)
	if err != nil {
		s.writeServiceError(w, "set festival active", err)
		return
	}
	writeJSON(w, http.StatusOK, toFestivalDTO(f))
}

func parseDateParam(w http.ResponseWriter, v, name string) (time.Time, bool) {
	if v == "" {
		writeError(w, http.StatusBadRequest, name+" is required")
		return time.Time{}, false
	}
	d, err := model.ParseDate(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", name))
		return time.Time{}, false
	}
	return d, true
}

// writeServiceError maps domain errors onto status codes. Unexpected errors
// are logged and hidden behind a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, admin.ErrInvalidInput),
		errors.Is(err, calendar.ErrInvalidMonth),
		errors.Is(err, calendar.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		appLog.Error("api: "+op+" failed", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
