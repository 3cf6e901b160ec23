package main

import (
	"bankcrew/pkg/agent"
	"bankcrew/pkg/config"
	"bankcrew/pkg/core"
	"bankcrew/pkg/crew"
	"bankcrew/pkg/llm"
	"bankcrew/pkg/memory"
	memollama "bankcrew/pkg/memory/ollama"
	"bankcrew/pkg/memory/qdrant"
	"bankcrew/pkg/rag"
	"bankcrew/pkg/tools"
)

// retrievalApp is the wiring for everything that touches the vector index.
type retrievalApp struct {
	Store         memory.VectorStore
	Index         *rag.Index
	Manager       *rag.Manager
	KnowledgeTool *tools.KnowledgeTool
}

func buildRetrieval(cfg *config.Config) (*retrievalApp, error) {
	store, err := qdrant.New(cfg.Vector.QdrantAddr)
	if err != nil {
		return nil, err
	}
	embedder := memollama.NewEmbedder(cfg.Vector.EmbedderURL, cfg.Vector.EmbedderModel)

	opts := rag.Options{
		Collection:     cfg.Vector.Collection,
		DBPath:         cfg.Vector.DBPath,
		TopK:           cfg.Retrieval.TopK,
		FetchK:         cfg.Retrieval.FetchK,
		LambdaMult:     cfg.Retrieval.LambdaMult,
		ScoreThreshold: float32(cfg.Retrieval.ScoreThreshold),
		ChunkSize:      cfg.Retrieval.ChunkSize,
		ChunkOverlap:   cfg.Retrieval.ChunkOverlap,
	}
	index := rag.NewIndex(store, embedder, opts)

	return &retrievalApp{
		Store:         store,
		Index:         index,
		Manager:       rag.NewManager(store, cfg.Vector.DBPath, cfg.Vector.Collection),
		KnowledgeTool: tools.NewKnowledgeTool(index),
	}, nil
}

// crewApp wires the full pipeline: specs, agents, tools, and the run store.
type crewApp struct {
	Crew      *crew.Crew
	RunStore  *crew.Store
	Retrieval *retrievalApp
}

func buildCrew(cfg *config.Config) (*crewApp, error) {
	agentSpecs, err := core.LoadAgentSpecs(cfg.Crew.AgentsFile)
	if err != nil {
		return nil, err
	}
	taskSpecs, err := core.LoadTaskSpecs(cfg.Crew.TasksFile)
	if err != nil {
		return nil, err
	}

	retrieval, err := buildRetrieval(cfg)
	if err != nil {
		return nil, err
	}
	runStore, err := crew.OpenStore(cfg.Crew.StorePath)
	if err != nil {
		return nil, err
	}

	provider := llm.NewOllama(cfg.LLM.BaseURL)
	c, err := crew.New(agentSpecs, taskSpecs, provider,
		crew.WithStore(runStore),
		crew.WithAgentOptions(
			agent.WithTools(retrieval.KnowledgeTool),
			agent.WithModel(cfg.LLM.Model),
			agent.WithTemperature(cfg.LLM.Temperature),
			agent.WithMaxIterations(cfg.Crew.MaxIter),
		),
	)
	if err != nil {
		runStore.Close()
		return nil, err
	}

	return &crewApp{Crew: c, RunStore: runStore, Retrieval: retrieval}, nil
}

func (a *crewApp) Close() {
	if a.RunStore != nil {
		a.RunStore.Close()
	}
}
