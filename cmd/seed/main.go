package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"gavelogy/internal/config"
	"gavelogy/internal/domain/repositories"
	"gavelogy/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed course.yaml
var defaultCourse []byte

type seedFile struct {
	Course seedCourse `yaml:"course"`
}

type seedCourse struct {
	ID      string     `yaml:"id"`
	Title   string     `yaml:"title"`
	Items   []seedItem `yaml:"items"`
	Quizzes []seedQuiz `yaml:"quizzes"`
}

type seedItem struct {
	Title    string     `yaml:"title"`
	Type     string     `yaml:"type"`
	Content  *string    `yaml:"content"`
	Draft    *string    `yaml:"draft"`
	Children []seedItem `yaml:"children"`
}

type seedQuiz struct {
	Title     string         `yaml:"title"`
	Questions []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	Prompt string `yaml:"prompt"`
	Answer string `yaml:"answer"`
}

// seedRows is everything one course writes, grouped by logical table
type seedRows struct {
	courses   []repositories.Row
	items     []repositories.Row
	drafts    []repositories.Row
	quizzes   []repositories.Row
	questions []repositories.Row
}

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed a course")
	coursePath := flag.String("course", "", "YAML course file (defaults to the bundled sample)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		return
	}

	data := defaultCourse
	if *coursePath != "" {
		data, err = os.ReadFile(*coursePath)
		if err != nil {
			log.Fatalf("Failed to read course file: %v", err)
		}
	}
	rows, err := buildSeedRows(data, time.Now().UTC())
	if err != nil {
		log.Fatalf("Failed to parse course: %v", err)
	}

	gateway := postgres.NewGateway(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})

	// Parents before children so foreign keys hold
	steps := []struct {
		table string
		rows  []repositories.Row
	}{
		{"courses", rows.courses},
		{"structure_items", rows.items},
		{"structure_item_drafts", rows.drafts},
		{"quizzes", rows.quizzes},
		{"quiz_questions", rows.questions},
	}
	for _, step := range steps {
		if err := gateway.InsertMany(ctx, step.table, step.rows); err != nil {
			log.Fatalf("❌ Failed to seed %s: %v", step.table, err)
		}
		log.Printf("✅ Seeded %d row(s) into %s", len(step.rows), tables.Name(step.table))
	}

	log.Println("🎉 Seeding complete!")
}

// buildSeedRows flattens a course file into gateway rows
func buildSeedRows(data []byte, now time.Time) (*seedRows, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	course := file.Course
	if course.Title == "" {
		return nil, fmt.Errorf("course title is required")
	}
	if course.ID == "" {
		course.ID = uuid.New().String()
	}

	out := &seedRows{
		courses: []repositories.Row{{"id": course.ID, "title": course.Title, "created_at": now}},
	}

	var walk func(items []seedItem, parentID interface{}) error
	walk = func(items []seedItem, parentID interface{}) error {
		for i, item := range items {
			if item.Type != "folder" && item.Type != "file" {
				return fmt.Errorf("item %q: type must be folder or file", item.Title)
			}
			if item.Type == "folder" && (item.Content != nil || item.Draft != nil) {
				return fmt.Errorf("folder %q cannot have content", item.Title)
			}
			if item.Type == "file" && len(item.Children) > 0 {
				return fmt.Errorf("file %q cannot have children", item.Title)
			}

			id := uuid.New().String()
			row := repositories.Row{
				"id":          id,
				"course_id":   course.ID,
				"parent_id":   parentID,
				"item_type":   item.Type,
				"title":       item.Title,
				"order_index": i,
				"created_at":  now,
				"updated_at":  now,
			}
			if item.Content != nil {
				row["content"] = *item.Content
			}
			out.items = append(out.items, row)

			if item.Draft != nil {
				out.drafts = append(out.drafts, repositories.Row{
					"id":         id,
					"content":    *item.Draft,
					"updated_at": now,
				})
			}
			if err := walk(item.Children, id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(course.Items, nil); err != nil {
		return nil, err
	}

	for i, quiz := range course.Quizzes {
		quizID := uuid.New().String()
		out.quizzes = append(out.quizzes, repositories.Row{
			"id":          quizID,
			"course_id":   course.ID,
			"title":       quiz.Title,
			"order_index": i,
		})
		for j, q := range quiz.Questions {
			out.questions = append(out.questions, repositories.Row{
				"id":          uuid.New().String(),
				"quiz_id":     quizID,
				"prompt":      q.Prompt,
				"answer":      q.Answer,
				"order_index": j,
			})
		}
	}

	return out, nil
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Name("courses") + ` (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		// parent_id carries no foreign key: pending moves may reference
		// items deleted in the same commit
		`CREATE TABLE IF NOT EXISTS ` + tables.Name("structure_items") + ` (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL REFERENCES ` + tables.Name("courses") + `(id) ON DELETE CASCADE,
			parent_id TEXT,
			item_type TEXT NOT NULL CHECK (item_type IN ('folder', 'file')),
			title VARCHAR(255) NOT NULL,
			order_index INTEGER NOT NULL DEFAULT 0,
			content TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Name("structure_item_drafts") + ` (
			id TEXT PRIMARY KEY REFERENCES ` + tables.Name("structure_items") + `(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Name("quizzes") + ` (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL REFERENCES ` + tables.Name("courses") + `(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			order_index INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Name("quiz_questions") + ` (
			id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL REFERENCES ` + tables.Name("quizzes") + `(id) ON DELETE CASCADE,
			prompt TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			order_index INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Name("structure_items") + `_course_order ON ` +
			tables.Name("structure_items") + `(course_id, parent_id, order_index)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Name("quizzes") + `_course ON ` + tables.Name("quizzes") + `(course_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Name("quiz_questions") + `_quiz ON ` + tables.Name("quiz_questions") + `(quiz_id)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Name("quiz_questions"),
		tables.Name("quizzes"),
		tables.Name("structure_item_drafts"),
		tables.Name("structure_items"),
		tables.Name("courses"),
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}
