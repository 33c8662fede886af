package store

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"studyhall/pkg/database"
)

// Manager is the SQLite-backed persistence layer. It implements
// interfaces.RoomStore, interfaces.MessageStore and interfaces.MembershipOracle.
//
// All writes funnel through a single goroutine: SQLite allows one writer at a
// time, and serializing writes in-process means commit order is a total order
// the broadcast layer can rely on. Reads run concurrently on the pool.
type Manager struct {
	db      *sql.DB
	writeCh chan writeOp
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
	mu      sync.RWMutex
}

type writeOp struct {
	fn     func(*sql.DB) error
	result chan error
}

var errManagerClosed = errors.New("store manager is closed")

const writeTimeout = 30 * time.Second

// NewManager opens the database, applies migrations and starts the writer.
func NewManager(cfg *database.Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrationManager(db).ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	m := &Manager{
		db:      db,
		writeCh: make(chan writeOp, 100),
		done:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.writeLoop()

	return m, nil
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeCh:
			op.result <- op.fn(m.db)
		case <-m.done:
			return
		}
	}
}

// executeWrite queues fn on the writer goroutine and waits for its result.
func (m *Manager) executeWrite(fn func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return errManagerClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeCh <- writeOp{fn: fn, result: result}:
		return <-result
	case <-time.After(writeTimeout):
		return errors.New("write operation timeout")
	case <-m.done:
		return errManagerClosed
	}
}

// HealthCheck validates connectivity and basic read access.
func (m *Manager) HealthCheck() error {
	if err := m.db.Ping(); err != nil {
		return err
	}
	var count int
	return m.db.QueryRow("SELECT COUNT(*) FROM rooms LIMIT 1").Scan(&count)
}

// DB exposes the underlying handle for test fixtures.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Close stops the writer and closes the database. Safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
		return err
	}
	return nil
}
