package analytics

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	domsvc "TradePulse/internal/domain/service"
)

// ErrNoTargetScaler is returned by InverseTransformPrediction when no target
// parameters were loaded.
var ErrNoTargetScaler = errors.New("target scaler not loaded")

// affine is an exported min-max or standard scaler reduced to x*mul+add per column.
type affine struct {
	mul []float64
	add []float64
}

func (a affine) forward(col int, v float64) float64 { return v*a.mul[col] + a.add[col] }

func (a affine) inverse(col int, v float64) float64 { return (v - a.add[col]) / a.mul[col] }

// parseScaler reads {"type": "minmax", "min_": [...], "scale_": [...]} or
// {"type": "standard", "mean_": [...], "scale_": [...]}.
func parseScaler(raw []byte) (affine, error) {
	if !gjson.ValidBytes(raw) {
		return affine{}, fmt.Errorf("invalid scaler json")
	}
	doc := gjson.ParseBytes(raw)
	floats := func(key string) []float64 {
		arr := doc.Get(key).Array()
		out := make([]float64, len(arr))
		for i, v := range arr {
			out[i] = v.Float()
		}
		return out
	}
	scale := floats("scale_")
	var a affine
	switch kind := doc.Get("type").String(); kind {
	case "minmax", "":
		a = affine{mul: scale, add: floats("min_")}
	case "standard":
		mean := floats("mean_")
		if len(mean) != len(scale) {
			return affine{}, fmt.Errorf("standard scaler: %d means for %d scales", len(mean), len(scale))
		}
		a = affine{mul: make([]float64, len(scale)), add: make([]float64, len(scale))}
		for i := range scale {
			if scale[i] == 0 {
				return affine{}, fmt.Errorf("standard scaler: zero scale at %d", i)
			}
			a.mul[i] = 1 / scale[i]
			a.add[i] = -mean[i] / scale[i]
		}
	default:
		return affine{}, fmt.Errorf("unknown scaler type %q", kind)
	}
	if len(a.mul) == 0 || len(a.mul) != len(a.add) {
		return affine{}, fmt.Errorf("scaler has %d scales and %d offsets", len(a.mul), len(a.add))
	}
	for i, m := range a.mul {
		if m == 0 {
			return affine{}, fmt.Errorf("zero scale at column %d", i)
		}
	}
	return a, nil
}

// FileScaler applies scaler parameters exported to JSON files.
type FileScaler struct {
	features affine
	target   *affine
}

// NewFileScaler loads the feature scaler, and the target scaler when targetPath
// exists. A missing target file leaves predictions in model space.
func NewFileScaler(featurePath, targetPath string) (*FileScaler, error) {
	raw, err := os.ReadFile(featurePath)
	if err != nil {
		return nil, fmt.Errorf("read feature scaler: %w", err)
	}
	s, err := NewScalerFromJSON(raw, nil)
	if err != nil {
		return nil, err
	}
	if targetPath == "" {
		return s, nil
	}
	raw, err = os.ReadFile(targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read target scaler: %w", err)
	}
	t, err := parseScaler(raw)
	if err != nil {
		return nil, fmt.Errorf("target scaler: %w", err)
	}
	s.target = &t
	return s, nil
}

// NewScalerFromJSON builds a scaler from in-memory parameters. target may be nil.
func NewScalerFromJSON(features, target []byte) (*FileScaler, error) {
	f, err := parseScaler(features)
	if err != nil {
		return nil, fmt.Errorf("feature scaler: %w", err)
	}
	s := &FileScaler{features: f}
	if target != nil {
		t, err := parseScaler(target)
		if err != nil {
			return nil, fmt.Errorf("target scaler: %w", err)
		}
		s.target = &t
	}
	return s, nil
}

func (s *FileScaler) TransformFeatures(_ context.Context, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.features.mul) {
			return nil, fmt.Errorf("row %d has %d columns, scaler expects %d", i, len(row), len(s.features.mul))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = s.features.forward(j, v)
		}
		out[i] = scaled
	}
	return out, nil
}

func (s *FileScaler) InverseTransformPrediction(_ context.Context, v float64) (float64, error) {
	if s.target == nil {
		return 0, ErrNoTargetScaler
	}
	return s.target.inverse(0, v), nil
}

// HTTPScaler delegates scaling to a remote service.
type HTTPScaler struct {
	base *HTTPServiceBase
}

func NewHTTPScaler(base *HTTPServiceBase) *HTTPScaler {
	return &HTTPScaler{base: base}
}

func (s *HTTPScaler) TransformFeatures(ctx context.Context, rows [][]float64) ([][]float64, error) {
	var body []byte
	if err := s.base.PostJSONWithRetry(ctx, "/scaler/transform", map[string]interface{}{"rows": rows}, &body, 2); err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}
	res := gjson.GetBytes(body, "rows")
	if !res.IsArray() {
		return nil, fmt.Errorf("scale features: response has no rows")
	}
	out := make([][]float64, 0, len(rows))
	for _, r := range res.Array() {
		vals := r.Array()
		row := make([]float64, len(vals))
		for j, v := range vals {
			row[j] = v.Float()
		}
		out = append(out, row)
	}
	if len(out) != len(rows) {
		return nil, fmt.Errorf("scale features: got %d rows, sent %d", len(out), len(rows))
	}
	return out, nil
}

func (s *HTTPScaler) InverseTransformPrediction(ctx context.Context, v float64) (float64, error) {
	var body []byte
	if err := s.base.PostJSONWithRetry(ctx, "/scaler/inverse", map[string]float64{"value": v}, &body, 2); err != nil {
		return 0, fmt.Errorf("inverse scale: %w", err)
	}
	res := gjson.GetBytes(body, "value")
	if res.Type != gjson.Number {
		return 0, fmt.Errorf("inverse scale: response has no value")
	}
	return res.Float(), nil
}

var (
	_ domsvc.Scaler = (*FileScaler)(nil)
	_ domsvc.Scaler = (*HTTPScaler)(nil)
)
