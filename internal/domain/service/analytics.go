package service

import "context"

// Predictor forecasts the scaled next-step close from a scaled feature window.
// The window is lookback rows by feature columns, sent as a batch of one.
type Predictor interface {
	Name() string
	Predict(ctx context.Context, window [][]float64) (float64, error)
}

// Scaler maps raw feature rows into model space and model output back to price.
type Scaler interface {
	TransformFeatures(ctx context.Context, rows [][]float64) ([][]float64, error)
	InverseTransformPrediction(ctx context.Context, v float64) (float64, error)
}
