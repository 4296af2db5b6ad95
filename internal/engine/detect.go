package engine

// DetectConfig holds parameters for backend detection.
type DetectConfig struct {
	OllamaBaseURL string
}

// Detect returns the engine for the configured backend. Only Ollama is
// supported for now; the indirection leaves room for other local backends.
func Detect(cfg DetectConfig) (Engine, error) {
	return NewOllamaEngine(cfg.OllamaBaseURL), nil
}
