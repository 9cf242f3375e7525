package translator

import "fmt"

// ServiceNames lists the names accepted by New.
var ServiceNames = []string{"backend", "mymemory", "google", "ollama"}

// New constructs the named translation service from cfg.
func New(name string, cfg ServiceConfig) (TranslationService, error) {
	switch name {
	case "backend":
		return NewBackendService(cfg.BaseURL, cfg.Timeout), nil
	case "mymemory":
		svc := NewMyMemoryService(cfg.Email)
		if cfg.BaseURL != "" {
			svc.baseURL = cfg.BaseURL
		}
		return svc, nil
	case "google":
		return NewGoogleService(cfg.Credentials), nil
	case "ollama":
		return NewOllamaTranslator(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown translation service: %s", name)
	}
}
