package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentportal/aserver/db"
)

type ScriptService struct {
	PG *sql.DB
}

func NewScriptService(pg *sql.DB) *ScriptService {
	return &ScriptService{PG: pg}
}

const scriptSelect = `
	SELECT s.id, aq.queue_name, s.text, s.date, s.type
	FROM scripts AS s
	JOIN asterisk_queues AS aq ON aq.id = s.queue_id
`

// GetScripts returns the scripts attached to a queue
func (s *ScriptService) GetScripts(ctx context.Context, queueName string) ([]db.Script, error) {
	return s.query(ctx, scriptSelect+`WHERE aq.queue_name = $1 ORDER BY s.id`, queueName)
}

// ListScripts returns every script
func (s *ScriptService) ListScripts(ctx context.Context) ([]db.Script, error) {
	return s.query(ctx, scriptSelect+`ORDER BY s.id`)
}

func (s *ScriptService) query(ctx context.Context, query string, args ...any) ([]db.Script, error) {
	rows, err := s.PG.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scripts: %w", err)
	}
	defer rows.Close()

	scripts := []db.Script{}
	for rows.Next() {
		var script db.Script
		if err := rows.Scan(&script.ID, &script.QueueName, &script.Text, &script.Date, &script.Type); err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		scripts = append(scripts, script)
	}
	return scripts, rows.Err()
}
