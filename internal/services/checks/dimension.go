package checksvc

import (
	"context"
	"fmt"
	"time"

	"github.com/delimatsuo/headhunter-sub005/internal/sqlintrospect"
	logpkg "github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// DimensionRequest overrides the configured SQL column check.
type DimensionRequest struct {
	Driver    string `json:"driver,omitempty"`
	Table     string `json:"table,omitempty"`
	Column    string `json:"column,omitempty"`
	ExpectDim int    `json:"expectDim,omitempty"`
}

// DimensionReport is the outcome of a dimension check.
type DimensionReport struct {
	sqlintrospect.ColumnInfo
	Driver    string `json:"driver"`
	ExpectDim int    `json:"expectDim,omitempty"`
	Matches   bool   `json:"matches"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
}

// OK is true when the column was found, is a vector, and matches ExpectDim.
func (r DimensionReport) OK() bool { return r.Err == nil && r.Matches }

// Summary is a one-line description used for history entries.
func (r DimensionReport) Summary() string {
	switch {
	case r.Err != nil:
		return "error: " + r.Error
	case !r.Matches:
		return fmt.Sprintf("%s dimension %d, want %d", r.Type, r.Dimension, r.ExpectDim)
	default:
		return fmt.Sprintf("%s dimension %d", r.Type, r.Dimension)
	}
}

// Dimension reports the declared dimension of the configured vector column.
// Connection and lookup failures are part of the report; the error covers
// invalid requests only.
func (s *Service) Dimension(ctx context.Context, req DimensionRequest) (DimensionReport, error) {
	sc := s.cfg.SQL
	if req.Driver != "" {
		sc.Driver = req.Driver
	}
	if req.Table == "" {
		req.Table = sc.Table
	}
	if req.Column == "" {
		req.Column = sc.Column
	}
	if req.ExpectDim == 0 {
		req.ExpectDim = sc.ExpectDim
	}
	if req.Table == "" || req.Column == "" {
		return DimensionReport{}, fmt.Errorf("checks: dimension needs a table and a column")
	}

	started := time.Now()
	q, err := s.openQuerier(ctx, sc, s.runner)
	if err != nil {
		rep := DimensionReport{
			ColumnInfo: sqlintrospect.ColumnInfo{Table: req.Table, Column: req.Column},
			Driver:     sc.Driver,
			ExpectDim:  req.ExpectDim,
			Err:        err,
			Error:      err.Error(),
		}
		s.logger.Warn("dimension check could not connect", logpkg.Str("driver", sc.Driver), logpkg.Err(err))
		s.record(ctx, CheckDimension, req.Table+"."+req.Column, false, "open failed: "+err.Error(), started, rep)
		return rep, nil
	}
	defer q.Close()

	info, err := sqlintrospect.Dimension(ctx, q, req.Table, req.Column)
	rep := DimensionReport{ColumnInfo: info, Driver: sc.Driver, ExpectDim: req.ExpectDim}
	if err != nil {
		rep.Err, rep.Error = err, err.Error()
	} else {
		rep.Matches = info.Matches(req.ExpectDim)
	}
	s.logger.Info("dimension check finished",
		logpkg.Str("table", req.Table),
		logpkg.Str("column", req.Column),
		logpkg.Int("dimension", info.Dimension),
		logpkg.Bool("ok", rep.OK()))
	s.record(ctx, CheckDimension, req.Table+"."+req.Column, rep.OK(), rep.Summary(), started, rep)
	return rep, nil
}
