package main

import (
	"context"
	"fmt"
	"log"

	fusion "github.com/epitome-ai/fusion"
	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
)

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		User:     "postgres",
		Password: "postgres",
		Name:     "fusion_test",
		SSLMode:  "disable",
	}

	f, err := fusion.NewFusion(dbConfig, 384, nil)
	if err != nil {
		log.Fatalf("Failed to create fusion engine: %v", err)
	}
	defer f.Close()

	// Set up the default embedder (downloads the model on first use)
	if err := f.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	tenant := "demo-tenant"

	// Feed structured records into the knowledge graph
	fmt.Println("Extracting records...")
	records := []*model.Record{
		{Tenant: tenant, Schema: "meal", Fields: model.Metadata{"food": "Margherita Pizza", "restaurant": "Da Mario"}},
		{Tenant: tenant, Schema: "meal", Fields: model.Metadata{"food": "Margherita Pizza"}},
		{Tenant: tenant, Schema: "workout", Fields: model.Metadata{"activity": "Running", "duration": "45 minutes"}},
	}
	for _, record := range records {
		result, err := f.ExtractRecord(context.Background(), record, nil)
		if err != nil {
			log.Fatalf("Failed to extract record: %v", err)
		}
		fmt.Printf("Extracted %d candidates via %s\n", len(result.Candidates), result.Method)
	}

	// Store free-text notes in the semantic memory store
	fmt.Println("\nMemorizing notes...")
	notes := []string{
		"Had an amazing pizza at Da Mario, the crust was perfect.",
		"Morning run felt great, best pace in weeks.",
	}
	for _, note := range notes {
		if _, err := f.Memorize(tenant, "memories", note, 0.9, nil); err != nil {
			log.Fatalf("Failed to memorize note: %v", err)
		}
	}

	// Retrieve fused knowledge about a topic
	topic := "my favorite pizza"
	fmt.Printf("\nRetrieving: %s\n", topic)

	result, err := f.RetrieveKnowledge(context.Background(), tenant, topic, model.BudgetMedium, nil, f.DefaultCollections())
	if err != nil {
		log.Fatalf("Failed to retrieve knowledge: %v", err)
	}

	fmt.Printf("\nIntent: %s, coverage: %.2f\n", result.Intent.Primary, result.Coverage)
	fmt.Printf("Found %d facts:\n", len(result.Facts))
	for i, fact := range result.Facts {
		fmt.Printf("\n--- Fact %d ---\n", i+1)
		fmt.Printf("Confidence: %.2f\n", fact.Confidence)
		fmt.Printf("Source: %s (%s)\n", fact.SourceType, fact.SourceRef)
		fmt.Printf("Fact: %s\n", fact.Fact)
	}

	fmt.Println("\nBasic example completed successfully!")
}
