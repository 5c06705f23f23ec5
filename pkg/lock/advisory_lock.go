package lock

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/vod-rag/internal/core/indexing"
)

// Manager はPostgreSQLのアドバイザリロックによるsingle-flightガードを提供します。
// ロックはセッションスコープ（pg_try_advisory_lock）で、解放まで接続を専有します。
type Manager struct {
	pool *pgxpool.Pool
}

// NewManager はプールからロックマネージャーを生成します
func NewManager(pool *pgxpool.Pool) *Manager {
	return &Manager{pool: pool}
}

var _ indexing.RunLocker = (*Manager)(nil)

// GenerateLockID は文字列からロックIDを生成します
func GenerateLockID(parts ...string) int64 {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
	}
	hash := h.Sum(nil)

	// ハッシュの最初の8バイトをint64として使用
	var id int64
	for i := range 8 {
		id = (id << 8) | int64(hash[i])
	}

	return id
}

// TryLock はキーに対応するアドバイザリロックの取得を試みます。
// 他のプロセスが保持している場合は待たずに ErrIndexingInProgress を返します。
func (m *Manager) TryLock(ctx context.Context, key string) (indexing.UnlockFunc, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for advisory lock: %w", err)
	}

	lockID := GenerateLockID(key)

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, indexing.ErrIndexingInProgress
	}

	unlock := func(ctx context.Context) error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
			return fmt.Errorf("failed to release advisory lock: %w", err)
		}
		return nil
	}
	return unlock, nil
}
