package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"menuclassify/pkg/config"
	errs "menuclassify/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
)

// DB wraps a MySQL connection pool backing the dish embedding catalogue used
// by the Vector Index. It owns the pool's lifetime and timeout defaults; it
// knows nothing about similarity search itself, which is done in-process
// once rows are loaded.
type DB struct {
	conn         *sql.DB
	stmts        map[string]*sql.Stmt
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// DishEmbeddingRow is a single row of the menu_dish_embeddings table.
type DishEmbeddingRow struct {
	ID            int64
	DishName      string
	Description   string
	IsVegetarian  bool
	Embedding     []float32
	EmbeddingHash string
	CreatedAt     time.Time
}

// New opens a connection pool with default settings and prepares the
// statements the Vector Index depends on.
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("mysql", databaseURL)
	if err != nil {
		return nil, errs.NewDB("database.New", "failed to open connection", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(10 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, errs.NewDB("database.New", "failed to ping database", err)
	}

	db := &DB{
		conn:         conn,
		stmts:        make(map[string]*sql.Stmt),
		readTimeout:  8 * time.Second,
		writeTimeout: 6 * time.Second,
	}

	if err := db.ensureSchema(); err != nil {
		return nil, errs.NewDB("database.New", "failed to ensure schema", err)
	}
	if err := db.prepareStatements(); err != nil {
		return nil, errs.NewDB("database.New", "failed to prepare statements", err)
	}

	return db, nil
}

// NewWithConfig opens a connection pool using the tuning knobs from Config.
func NewWithConfig(databaseURL string, cfg *config.Config) (*DB, error) {
	conn, err := sql.Open("mysql", databaseURL)
	if err != nil {
		return nil, errs.NewDB("database.NewWithConfig", "failed to open connection", err)
	}

	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Minute)
	conn.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, errs.NewDB("database.NewWithConfig", "failed to ping database", err)
	}

	rt := cfg.DBReadTimeout
	if rt == 0 {
		rt = 8 * time.Second
	}
	wt := cfg.DBWriteTimeout
	if wt == 0 {
		wt = 6 * time.Second
	}

	db := &DB{
		conn:         conn,
		stmts:        make(map[string]*sql.Stmt),
		readTimeout:  rt,
		writeTimeout: wt,
	}

	if err := db.ensureSchema(); err != nil {
		return nil, errs.NewDB("database.NewWithConfig", "failed to ensure schema", err)
	}
	if err := db.prepareStatements(); err != nil {
		return nil, errs.NewDB("database.NewWithConfig", "failed to prepare statements", err)
	}

	return db, nil
}

// ensureSchema creates the dish embedding table if it does not already
// exist. The embedding vector is stored as a JSON array of float32 values;
// no vector extension is assumed to be installed on the MySQL server.
func (db *DB) ensureSchema() error {
	const ddl = `CREATE TABLE IF NOT EXISTS menu_dish_embeddings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		dish_name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		is_vegetarian BOOLEAN NOT NULL,
		embedding JSON NOT NULL,
		embedding_hash CHAR(64) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_embedding_hash (embedding_hash)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

	_, err := db.conn.Exec(ddl)
	return err
}

// prepareStatements prepares the insert statement used by the seed pass.
func (db *DB) prepareStatements() error {
	statements := map[string]string{
		"insertDish": `INSERT INTO menu_dish_embeddings
		               (dish_name, description, is_vegetarian, embedding, embedding_hash)
		               VALUES (?, ?, ?, ?, ?)
		               ON DUPLICATE KEY UPDATE dish_name = dish_name`,
	}

	for name, query := range statements {
		stmt, err := db.conn.Prepare(query)
		if err != nil {
			return errs.NewDB("database.prepareStatements", fmt.Sprintf("failed to prepare statement %s", name), err)
		}
		db.stmts[name] = stmt
	}

	return nil
}

// Close releases the connection pool and any prepared statements.
func (db *DB) Close() error {
	for _, stmt := range db.stmts {
		stmt.Close()
	}
	return db.conn.Close()
}

// withReadTimeout creates a context bounded by the configured read timeout.
func (db *DB) withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.readTimeout)
}

// withWriteTimeout creates a context bounded by the configured write timeout.
func (db *DB) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.writeTimeout)
}

// CountDishesCtx returns the number of catalogued dish embeddings, used to
// decide whether the seed pass still needs to run.
func (db *DB) CountDishesCtx(ctx context.Context) (int, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_dish_embeddings`).Scan(&n)
	if err != nil {
		return 0, errs.NewDB("database.CountDishesCtx", "failed to count dish embeddings", err)
	}
	return n, nil
}

// InsertDishCtx persists a single seed dish and its embedding. Re-inserting
// an identical (name, description) pair is a no-op by way of the hash
// unique key, so re-running a seed pass is safe.
func (db *DB) InsertDishCtx(ctx context.Context, dishName, description string, isVegetarian bool, embedding []float32, hash string) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	vecJSON, err := json.Marshal(embedding)
	if err != nil {
		return errs.NewDB("database.InsertDishCtx", "failed to marshal embedding", err)
	}

	stmt := db.stmts["insertDish"]
	if _, err := stmt.ExecContext(ctx, dishName, description, isVegetarian, string(vecJSON), hash); err != nil {
		return errs.NewDB("database.InsertDishCtx", "failed to insert dish embedding", err)
	}
	return nil
}

// LoadAllDishesCtx loads the full catalogue into memory for the in-process
// flat index. Called once, when the Vector Index initialises on first use
// (after its seed pass, if one runs); the catalogue is expected to be small
// enough (low thousands of rows) that a full table scan is cheap relative
// to per-request nearest-neighbour search.
func (db *DB) LoadAllDishesCtx(ctx context.Context) ([]DishEmbeddingRow, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT id, dish_name, description, is_vegetarian, embedding, embedding_hash, created_at
	                                          FROM menu_dish_embeddings ORDER BY id ASC`)
	if err != nil {
		return nil, errs.NewDB("database.LoadAllDishesCtx", "failed to query dish embeddings", err)
	}
	defer rows.Close()

	var out []DishEmbeddingRow
	for rows.Next() {
		var r DishEmbeddingRow
		var vecJSON string
		if err := rows.Scan(&r.ID, &r.DishName, &r.Description, &r.IsVegetarian, &vecJSON, &r.EmbeddingHash, &r.CreatedAt); err != nil {
			return nil, errs.NewDB("database.LoadAllDishesCtx", "failed to scan dish embedding row", err)
		}
		if err := json.Unmarshal([]byte(vecJSON), &r.Embedding); err != nil {
			return nil, errs.NewDB("database.LoadAllDishesCtx", "failed to unmarshal embedding", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("database.LoadAllDishesCtx", "row iteration error", err)
	}

	return out, nil
}
