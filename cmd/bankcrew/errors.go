package main

import (
	"fmt"

	"bankcrew/pkg/errors"
)

// remediate appends an actionable hint to operator-facing errors.
func remediate(err error) string {
	ce := errors.AsCrewError(err)
	if ce == nil {
		return err.Error()
	}

	hint := ""
	switch ce.Code {
	case errors.CodeVectorStore:
		hint = "is the Qdrant server running? check vector.qdrant_addr in bankcrew.yaml"
	case errors.CodeEmbedding, errors.CodeLLMError:
		hint = "is Ollama running and the model pulled? check llm.base_url and llm.model"
	case errors.CodeConfig:
		hint = "check config/tasks.yaml and config/agents.yaml"
	case errors.CodeTemplate:
		hint = "pass the missing input, e.g. --topic"
	case errors.CodeNotFound:
		hint = "run 'bankcrew kb rebuild' to build the knowledge base first"
	}

	if hint == "" {
		return err.Error()
	}
	return fmt.Sprintf("%v\nhint: %s", err, hint)
}
