package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed edges.sql
var edgesSQL string

//go:embed memories.sql
var memoriesSQL string

//go:embed jobs.sql
var jobsSQL string

// Function lists for verification
var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"reinforce_entity",
	"select_entity",
	"select_entity_by_name",
	"select_entities_by_fuzzy_name",
	"select_entities_by_type",
	"update_entity",
	"soft_delete_entity",
	"merge_entities",
}

var EdgesFunctions = []string{
	"init_edges",
	"upsert_edge",
	"select_edge",
	"select_edges_from_entity",
	"select_edges_to_entity",
	"select_neighbors",
	"traverse_entities",
	"soft_delete_edge",
}

var MemoriesFunctions = []string{
	"init_memories",
	"insert_memory",
	"select_memories_by_similarity",
	"delete_memory",
}

var JobsFunctions = []string{
	"init_extraction_jobs",
	"enqueue_extraction_job",
	"claim_extraction_job",
	"complete_extraction_job",
	"fail_extraction_job",
	"count_extraction_jobs",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, force, entitiesSQL, EntitiesFunctions, "entities")
}

// LoadEdgesSql loads edge-related SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	return loadSql(db, force, edgesSQL, EdgesFunctions, "edges")
}

// LoadMemoriesSql loads memory-related SQL functions
func LoadMemoriesSql(db *sql.DB, force bool) error {
	return loadSql(db, force, memoriesSQL, MemoriesFunctions, "memories")
}

// LoadJobsSql loads extraction-job-related SQL functions
func LoadJobsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, jobsSQL, JobsFunctions, "jobs")
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}

	if err := LoadMemoriesSql(db, force); err != nil {
		return err
	}

	if err := LoadJobsSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadSql(db *sql.DB, force bool, sqlText string, sqlFunctions []string, name string) error {
	if !force {
		exist, err := checkFunctions(db, sqlFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sqlText)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, sqlFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
