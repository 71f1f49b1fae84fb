// README: Audit sink backed by PostgreSQL. Failures are logged, never
// propagated: the log must not block or fail the primary operation.
package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"rumo/internal/logger"
	"rumo/internal/types"
)

type Store struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewStore(db *pgxpool.Pool, log logger.ILogger) *Store {
	return &Store{db: db, log: log}
}

// Append records an audit event. An empty actorID is stored as NULL
// (anonymous action). Errors are swallowed after logging.
func (s *Store) Append(ctx context.Context, eventType string, actorID types.ID, resourceType string, resourceID types.ID, details map[string]any) {
	var actor *string
	if actorID != "" {
		v := string(actorID)
		actor = &v
	}
	var payload []byte
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			s.log.Error("audit details marshal failed", logger.Error(err), logger.String("event", eventType))
		} else {
			payload = b
		}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_log (event_type, user_id, resource_type, resource_id, details)
		VALUES ($1, $2, $3, $4, $5)`,
		eventType, actor, resourceType, string(resourceID), payload,
	)
	if err != nil {
		s.log.Error("audit log append failed", logger.Error(err), logger.String("event", eventType))
	}
}
