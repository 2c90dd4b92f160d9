package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrAllStrategiesFailed wraps the aggregate failure of every PDF
// strategy in the chain
var ErrAllStrategiesFailed = errors.New("all PDF strategies failed")

// Strategy renders a report document to PDF bytes. Implementations
// bound their own execution time.
type Strategy interface {
	Name() string
	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// Renderer runs an ordered chain of PDF strategies, falling through to
// the next on failure
type Renderer struct {
	strategies []Strategy
	log        *logrus.Logger
}

// NewRenderer creates a renderer over an ordered strategy chain
func NewRenderer(log *logrus.Logger, strategies ...Strategy) *Renderer {
	return &Renderer{
		strategies: strategies,
		log:        log,
	}
}

// RenderPDF tries each strategy in order and returns the first
// successful result. When every strategy fails it returns a single
// aggregate error naming each strategy and its cause; no partial bytes
// are ever returned.
func (r *Renderer) RenderPDF(ctx context.Context, doc *Document) ([]byte, error) {
	if len(r.strategies) == 0 {
		return nil, ErrAllStrategiesFailed
	}

	var causes []string
	for _, strategy := range r.strategies {
		pdf, err := r.renderWith(ctx, strategy, doc)
		if err == nil {
			return pdf, nil
		}

		r.log.WithFields(logrus.Fields{
			"strategy": strategy.Name(),
			"scan_id":  doc.ScanUUID,
		}).WithError(err).Warn("PDF strategy failed, trying next")
		causes = append(causes, fmt.Sprintf("%s: %v", strategy.Name(), err))
	}

	return nil, fmt.Errorf("%w: %s", ErrAllStrategiesFailed, strings.Join(causes, "; "))
}

// renderWith isolates one strategy attempt, converting panics and empty
// output into ordinary errors
func (r *Renderer) renderWith(ctx context.Context, strategy Strategy, doc *Document) (pdf []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pdf = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	pdf, err = strategy.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, errors.New("strategy produced no output")
	}
	return pdf, nil
}
