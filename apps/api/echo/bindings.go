package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/attendance"
)

const statusFieldPrefix = "status_"

func noop() {}

// bind fills data from the request body (json, urlencoded or multipart).
func bind(ctx echo.Context, data interface{}, what string) error {
	if err := ctx.Bind(data); err != nil {
		return newRequestError(err, "binding to "+what)
	}
	return nil
}

func idParam(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewNotFoundError(strings.TrimSuffix(name, "_id"))
	}
	return id, nil
}

// formFile returns the multipart file sent in field, if any, and a func closing it.
func formFile(ctx echo.Context, field string) (*core.Upload, func(), error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, noop, nil
		}
		return nil, noop, newRequestError(err, "reading "+field)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, errors.Wrap(err, "opening "+field)
	}
	return &core.Upload{Filename: fh.Filename, Content: f}, func() { _ = f.Close() }, nil
}

// attendanceForm is the JSON shape of an attendance submission. Form submissions
// send the course and date fields plus one status_<student id> field per student instead.
type attendanceForm struct {
	Course   string                       `json:"course"`
	Date     string                       `json:"date"`
	Statuses map[string]attendance.Status `json:"statuses"`
}

func bindAttendance(ctx echo.Context) (attendanceForm, error) {
	var form attendanceForm
	req := ctx.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := bind(ctx, &form, "attendanceForm"); err != nil {
			return form, err
		}
	} else {
		params, err := ctx.FormParams()
		if err != nil {
			return form, newRequestError(err, "parsing attendance form")
		}
		form.Course = params.Get("course")
		form.Date = params.Get("date")
		form.Statuses = make(map[string]attendance.Status)
		for key, vals := range params {
			if strings.HasPrefix(key, statusFieldPrefix) && len(vals) > 0 {
				form.Statuses[strings.TrimPrefix(key, statusFieldPrefix)] = attendance.Status(vals[0])
			}
		}
	}
	if form.Course == "" {
		form.Course = ctx.QueryParam("course")
	}
	if form.Date == "" {
		form.Date = ctx.QueryParam("date")
	}
	return form, nil
}

func (f attendanceForm) statuses() (map[int64]attendance.Status, error) {
	res := make(map[int64]attendance.Status, len(f.Statuses))
	for key, status := range f.Statuses {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, core.NewFieldError(statusFieldPrefix+key, "invalid student id")
		}
		res[id] = status
	}
	return res, nil
}
