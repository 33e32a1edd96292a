package render

import (
	"time"

	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/analysis"
)

// LogRenderer summarizes each series in the log instead of drawing it.
type LogRenderer struct {
	logger *zap.Logger
	// StdN is the number of standard deviations used for the y-axis bounds.
	StdN float64
}

func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRenderer{logger: logger, StdN: 2}
}

func (r *LogRenderer) Render(name string, series ...Series) error {
	for _, s := range series {
		fields := []zap.Field{
			zap.String("chart", name),
			zap.String("series", s.Name),
			zap.Int("points", len(s.Points)),
		}
		if len(s.Points) > 0 {
			values := s.Values()
			lo, hi := analysis.StdBounds(values, r.StdN)
			mean, std := analysis.MeanStd(values)
			first, last := s.Points[0], s.Points[len(s.Points)-1]
			fields = append(fields,
				zap.Time("first", time.Unix(first.Timestamp, 0).UTC()),
				zap.Time("last", time.Unix(last.Timestamp, 0).UTC()),
				zap.Float64("mean", mean),
				zap.Float64("std", std),
				zap.Float64("y_lo", lo),
				zap.Float64("y_hi", hi),
			)
		}
		r.logger.Info("series", fields...)
	}
	return nil
}

// Multi renders to every renderer in order and stops at the first error.
type Multi []Renderer

func (m Multi) Render(name string, series ...Series) error {
	for _, r := range m {
		if err := r.Render(name, series...); err != nil {
			return err
		}
	}
	return nil
}
