package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"sunwell/internal/config"
	"sunwell/internal/model"
	"sunwell/internal/types"
)

// buildModel wires the configured LLM provider. AGENT_MODEL_* is read here,
// at the CLI boundary, and never touched by any internal package. Only the
// subprocess provider is implemented; it spawns cfg.Model as a CLI and
// speaks newline-delimited JSON over stdio, the same shelling-out pattern
// used for toolchain commands elsewhere in this codebase.
func buildModel(cfg config.LLMConfig) (types.Model, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 60 * time.Second
	}

	switch cfg.Provider {
	case "", "subprocess":
		binary := os.Getenv("AGENT_MODEL_BINARY")
		if binary == "" {
			binary = cfg.Model
		}
		if binary == "" {
			return nil, fmt.Errorf("no model provider configured: set AGENT_MODEL_BINARY or llm.model")
		}
		var args []string
		if raw := os.Getenv("AGENT_MODEL_ARGS"); raw != "" {
			args = strings.Split(raw, ",")
		}
		return model.New(binary, args, timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", cfg.Provider)
	}
}
