package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	domsvc "TradePulse/internal/domain/service"
)

// HTTPPredictor calls one model server endpoint.
type HTTPPredictor struct {
	name string
	path string
	base *HTTPServiceBase
}

// NewHTTPPredictor builds a predictor for model name. pathTemplate may hold a
// %s placeholder for the model name.
func NewHTTPPredictor(name, pathTemplate string, base *HTTPServiceBase) *HTTPPredictor {
	path := pathTemplate
	if strings.Contains(path, "%s") {
		path = fmt.Sprintf(pathTemplate, name)
	}
	return &HTTPPredictor{name: name, path: path, base: base}
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

func (p *HTTPPredictor) Name() string { return p.name }

// Predict sends the window as a batch of one and reads the first scalar of the
// response. Accepted shapes: {"prediction": v}, {"predictions": [v]} and
// {"predictions": [[v]]}.
func (p *HTTPPredictor) Predict(ctx context.Context, window [][]float64) (float64, error) {
	var body []byte
	if err := p.base.PostJSON(ctx, p.path, predictRequest{Instances: [][][]float64{window}}, &body); err != nil {
		return 0, fmt.Errorf("predict %s: %w", p.name, err)
	}
	return firstScalar(body)
}

func firstScalar(body []byte) (float64, error) {
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("invalid json response")
	}
	for _, path := range []string{"prediction", "predictions.0.0", "predictions.0", "0.0", "0"} {
		r := gjson.GetBytes(body, path)
		if r.Type == gjson.Number {
			return r.Float(), nil
		}
	}
	return 0, fmt.Errorf("no numeric prediction in response")
}

var _ domsvc.Predictor = (*HTTPPredictor)(nil)
