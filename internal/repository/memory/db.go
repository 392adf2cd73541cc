// Package memory holds process-local repository implementations used when no
// DATABASE_URL is configured and by service tests. Nothing here survives a
// restart.
package memory

import (
	"context"
	"sync"

	"pathway/internal/domain/models/chat"
	"pathway/internal/domain/models/room"
	"pathway/internal/domain/repositories"
)

// DB is the shared state behind every in-memory repository
type DB struct {
	mu sync.RWMutex

	conversations map[string]*chat.Conversation
	messages      map[string]*chat.Message
	branches      map[string]*chat.Branch
	rooms         map[string]*room.Room
	roomMessages  map[string][]*room.Message // room id -> log in created_at order

	locks keyedLocks
}

// NewDB creates an empty store
func NewDB() *DB {
	return &DB{
		conversations: make(map[string]*chat.Conversation),
		messages:      make(map[string]*chat.Message),
		branches:      make(map[string]*chat.Branch),
		rooms:         make(map[string]*room.Room),
		roomMessages:  make(map[string][]*room.Message),
	}
}

// keyedLocks hands out one mutex per key (line or room)
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	return l
}

// txState collects locks taken inside ExecTx; they are released when the
// transaction function returns, like pg_advisory_xact_lock.
type txState struct {
	held []*sync.Mutex
}

type txKey struct{}

// lockForTx takes the keyed lock for the rest of the surrounding ExecTx.
// Outside a transaction the lock is taken and released immediately.
func (db *DB) lockForTx(ctx context.Context, key string) {
	l := db.locks.get(key)
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		l.Lock()
		l.Unlock()
		return
	}
	for _, h := range state.held {
		if h == l {
			return
		}
	}
	l.Lock()
	state.held = append(state.held, l)
}

// TransactionManager runs functions with transaction-scoped locks.
// There is no rollback: a failing function leaves earlier writes in place.
type TransactionManager struct {
	db *DB
}

// NewTransactionManager creates a transaction manager over db
func NewTransactionManager(db *DB) repositories.TransactionManager {
	return &TransactionManager{db: db}
}

// ExecTx executes fn, releasing any locks it took afterwards
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if _, nested := ctx.Value(txKey{}).(*txState); nested {
		return fn(ctx)
	}

	state := &txState{}
	defer func() {
		for i := len(state.held) - 1; i >= 0; i-- {
			state.held[i].Unlock()
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, state))
}
