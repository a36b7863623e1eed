// Package dto defines the wire format of the model server.
package dto

// Patch is one PNG-encoded tile sent for inference.
type Patch struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    []byte `json:"png"` // base64 in JSON
}

// PredictRequest is the body of POST /v1/predict.
type PredictRequest struct {
	Classes []string `json:"classes"`
	Patches []Patch  `json:"patches"`
}

// PatchPrediction carries the rooftop-class probabilities of one tile in row-major order.
type PatchPrediction struct {
	X             int       `json:"x"`
	Y             int       `json:"y"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Probabilities []float32 `json:"probabilities"`
}

// PredictResponse is the body returned by the model server.
type PredictResponse struct {
	Model       string            `json:"model"`
	Predictions []PatchPrediction `json:"predictions"`
	Error       string            `json:"error,omitempty"`
}
