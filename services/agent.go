package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agentportal/aserver/db"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingFields  = errors.New("missing required field(s)")
	ErrLoginFailed    = errors.New("login failed")
	ErrAmbiguousAgent = errors.New("more than one agent record matched")
)

const defaultLookupConcurrency = 8

// ExtensionLookup resolves a human-facing extension number to a directory id.
type ExtensionLookup interface {
	ResolveExtension(ctx context.Context, number string) (sql.NullInt64, error)
}

type AgentService struct {
	PG         *sql.DB
	Extensions ExtensionLookup
	Logger     *zap.Logger

	// LookupConcurrency bounds the parallel directory lookups of a bulk insert.
	LookupConcurrency int
}

func NewAgentService(pg *sql.DB, extensions ExtensionLookup, logger *zap.Logger) *AgentService {
	return &AgentService{
		PG:                pg,
		Extensions:        extensions,
		Logger:            logger,
		LookupConcurrency: defaultLookupConcurrency,
	}
}

const agentColumns = `
	SELECT ad.agent_id, ad.username, ad.first_name, ad.last_name, ad.role, ad.phone, ad.email,
	       ad.organization, ad.is_approved, ad.is_active, ae.extension, ae.extension_secret,
	       aq.queue_name, aq2.queue_name AS queue2_name, ad.layout, oc.channel`

const agentFrom = `
	FROM agent_data AS ad
	LEFT JOIN asterisk_extensions AS ae ON ae.id = ad.extension_id
	LEFT JOIN asterisk_queues AS aq ON aq.id = ad.queue_id
	LEFT JOIN asterisk_queues AS aq2 ON aq2.id = ad.queue2_id
	LEFT JOIN outgoing_channels AS oc ON oc.id = ae.id
`

const agentSelect = agentColumns + agentFrom

// scanAgent scans one agentColumns row followed by any extra columns.
func scanAgent(rows *sql.Rows, extra ...any) (db.Agent, error) {
	var agent db.Agent
	var extension, extensionSecret, queueName, queue2Name, layout, channel sql.NullString

	dest := []any{
		&agent.AgentID, &agent.Username, &agent.FirstName, &agent.LastName, &agent.Role,
		&agent.Phone, &agent.Email, &agent.Organization, &agent.IsApproved, &agent.IsActive,
		&extension, &extensionSecret, &queueName, &queue2Name, &layout, &channel,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return agent, err
	}

	agent.Extension = nullableString(extension)
	agent.ExtensionSecret = nullableString(extensionSecret)
	agent.QueueName = nullableString(queueName)
	agent.Queue2Name = nullableString(queue2Name)
	agent.Channel = nullableString(channel)
	if layout.Valid && json.Valid([]byte(layout.String)) {
		agent.Layout = json.RawMessage(layout.String)
	}
	return agent, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func (s *AgentService) queryAgents(ctx context.Context, query string, args ...any) ([]db.Agent, error) {
	rows, err := s.PG.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	agents := []db.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// VerifyAgent checks an agent's credentials and returns the agent record.
func (s *AgentService) VerifyAgent(ctx context.Context, username, password string) (db.Agent, error) {
	rows, err := s.PG.QueryContext(ctx, agentColumns+`, ad.password`+agentFrom+`WHERE ad.username = $1`, username)
	if err != nil {
		return db.Agent{}, fmt.Errorf("failed to query agent: %w", err)
	}
	defer rows.Close()

	var matches []db.Agent
	var hashes []string
	for rows.Next() {
		var hash string
		agent, err := scanAgent(rows, &hash)
		if err != nil {
			return db.Agent{}, fmt.Errorf("failed to scan agent: %w", err)
		}
		matches = append(matches, agent)
		hashes = append(hashes, hash)
	}
	if err := rows.Err(); err != nil {
		return db.Agent{}, fmt.Errorf("failed to query agent: %w", err)
	}

	switch len(matches) {
	case 0:
		return db.Agent{}, ErrLoginFailed
	case 1:
	default:
		s.Logger.Error("agent verify matched multiple records",
			zap.String("username", username),
			zap.Int("records", len(matches)))
		return db.Agent{}, ErrAmbiguousAgent
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashes[0]), []byte(password)); err != nil {
		return db.Agent{}, ErrLoginFailed
	}
	return matches[0], nil
}

// ListAgents returns every agent ordered by id.
func (s *AgentService) ListAgents(ctx context.Context) ([]db.Agent, error) {
	return s.queryAgents(ctx, agentSelect+`ORDER BY ad.agent_id`)
}

// GetAgentsByUsername returns the agent records for username (zero or one).
func (s *AgentService) GetAgentsByUsername(ctx context.Context, username string) ([]db.Agent, error) {
	return s.queryAgents(ctx, agentSelect+`WHERE ad.username = $1`, username)
}

// UpdateProfile resolves the extension number and only then updates the
// profile. A lookup failure suppresses the update; an unknown extension is
// stored as NULL. It reports whether a row was updated.
func (s *AgentService) UpdateProfile(ctx context.Context, req db.UpdateProfileRequest) (bool, error) {
	if req.AgentID == 0 || req.FirstName == "" || req.LastName == "" || req.Role == "" ||
		req.Phone == "" || req.Email == "" || req.Organization == "" ||
		req.IsApproved == nil || req.IsActive == nil {
		return false, ErrMissingFields
	}

	extensionID, err := s.Extensions.ResolveExtension(ctx, req.Extension)
	if err != nil {
		if errors.Is(err, ErrExtensionLookup) {
			s.Logger.Error("extension lookup failed, profile not updated",
				zap.Int64("agent_id", req.AgentID),
				zap.String("extension", req.Extension),
				zap.Error(err))
		}
		return false, err
	}

	result, err := s.PG.ExecContext(ctx, `
		UPDATE agent_data
		SET first_name = $1, last_name = $2, role = $3, phone = $4, email = $5,
		    organization = $6, is_approved = $7, is_active = $8, extension_id = $9
		WHERE agent_id = $10
	`, req.FirstName, req.LastName, req.Role, req.Phone, req.Email,
		req.Organization, *req.IsApproved, *req.IsActive, extensionID, req.AgentID)
	if err != nil {
		return false, fmt.Errorf("failed to update agent profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update agent profile: %w", err)
	}
	return affected > 0, nil
}

// BulkResult tallies per-record failures of AddAgents.
type BulkResult struct {
	Created      int
	LookupErrors []string
	WriteErrors  []string
}

// Message summarizes the tallies for the response body.
func (r BulkResult) Message() string {
	var parts []string
	if len(r.LookupErrors) > 0 {
		parts = append(parts, fmt.Sprintf("Extension lookup errors: %s.", strings.Join(r.LookupErrors, " ")))
	}
	if len(r.WriteErrors) > 0 {
		parts = append(parts, fmt.Sprintf("Record errors: %s.", strings.Join(r.WriteErrors, " ")))
	}
	if len(parts) == 0 {
		return "Success!"
	}
	return strings.Join(parts, " ")
}

type preparedAgent struct {
	label        string
	rec          db.NewAgentRecord
	passwordHash string
	extensionID  sql.NullInt64
	lookupErr    error
	prepareErr   error
}

// AddAgents creates agents in bulk. Every record's extension lookup completes
// before the single batched insert is issued; a failing record is tallied and
// left out of the batch without affecting its siblings.
func (s *AgentService) AddAgents(ctx context.Context, recs []db.NewAgentRecord) BulkResult {
	prepared := make([]preparedAgent, len(recs))

	var g errgroup.Group
	g.SetLimit(s.lookupLimit())
	for i := range recs {
		i := i
		g.Go(func() error {
			prepared[i] = s.prepareAgent(ctx, i, recs[i])
			return nil
		})
	}
	_ = g.Wait()

	var result BulkResult
	var batch []preparedAgent
	seen := make(map[string]bool, len(prepared))
	for _, p := range prepared {
		switch {
		case p.lookupErr != nil:
			result.LookupErrors = append(result.LookupErrors, p.label)
		case p.prepareErr != nil:
			result.WriteErrors = append(result.WriteErrors, p.label)
		case seen[p.rec.Username]:
			result.WriteErrors = append(result.WriteErrors, p.label)
		default:
			seen[p.rec.Username] = true
			batch = append(batch, p)
		}
	}
	if len(batch) == 0 {
		return result
	}

	inserted, err := s.insertAgents(ctx, batch)
	if err != nil {
		s.Logger.Error("bulk agent insert failed", zap.Int("records", len(batch)), zap.Error(err))
		for _, p := range batch {
			result.WriteErrors = append(result.WriteErrors, p.label)
		}
		return result
	}
	for _, p := range batch {
		if inserted[p.rec.Username] {
			result.Created++
		} else {
			result.WriteErrors = append(result.WriteErrors, p.label)
		}
	}
	return result
}

func (s *AgentService) lookupLimit() int {
	if s.LookupConcurrency <= 0 {
		return defaultLookupConcurrency
	}
	return s.LookupConcurrency
}

func (s *AgentService) prepareAgent(ctx context.Context, index int, rec db.NewAgentRecord) preparedAgent {
	p := preparedAgent{label: rec.Username, rec: rec}
	if p.label == "" {
		p.label = fmt.Sprintf("#%d", index)
	}
	if rec.Username == "" || rec.Password == "" {
		p.prepareErr = ErrMissingFields
		return p
	}

	extensionID, err := s.Extensions.ResolveExtension(ctx, rec.Extension)
	if err != nil {
		if errors.Is(err, ErrExtensionLookup) {
			s.Logger.Error("extension lookup failed for new agent",
				zap.String("username", rec.Username),
				zap.String("extension", rec.Extension),
				zap.Error(err))
			p.lookupErr = err
		} else {
			p.prepareErr = err
		}
		return p
	}
	p.extensionID = extensionID

	hash, err := bcrypt.GenerateFromPassword([]byte(rec.Password), bcrypt.DefaultCost)
	if err != nil {
		p.prepareErr = fmt.Errorf("failed to hash password: %w", err)
		return p
	}
	p.passwordHash = string(hash)
	return p
}

const agentInsertColumns = 13

// insertAgents writes the batch in one statement and returns the usernames that were inserted.
// Usernames that already exist are skipped by the conflict clause.
func (s *AgentService) insertAgents(ctx context.Context, batch []preparedAgent) (map[string]bool, error) {
	values := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*agentInsertColumns)
	for i, p := range batch {
		ph := make([]string, agentInsertColumns)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*agentInsertColumns+j+1)
		}
		values = append(values, "("+strings.Join(ph, ", ")+")")

		r := p.rec
		args = append(args,
			r.Username, p.passwordHash, r.FirstName, r.LastName, r.Role, r.Phone, r.Email,
			r.Organization, r.IsApproved, r.IsActive, p.extensionID, r.QueueID, r.Queue2ID)
	}

	query := `INSERT INTO agent_data (username, password, first_name, last_name, role, phone, email,
		organization, is_approved, is_active, extension_id, queue_id, queue2_id)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (username) DO NOTHING
		RETURNING username`

	rows, err := s.PG.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inserted := make(map[string]bool, len(batch))
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		inserted[username] = true
	}
	return inserted, rows.Err()
}

// DeleteAgent removes an agent and reports whether a row was deleted.
func (s *AgentService) DeleteAgent(ctx context.Context, agentID int64) (bool, error) {
	if agentID == 0 {
		return false, ErrMissingFields
	}
	result, err := s.PG.ExecContext(ctx, `DELETE FROM agent_data WHERE agent_id = $1`, agentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete agent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete agent: %w", err)
	}
	return affected > 0, nil
}

// UpdateLayout stores the agent's dashboard layout as JSON text.
func (s *AgentService) UpdateLayout(ctx context.Context, agentID int64, layout json.RawMessage) (bool, error) {
	if agentID == 0 || len(layout) == 0 || string(layout) == "null" {
		return false, ErrMissingFields
	}
	result, err := s.PG.ExecContext(ctx, `UPDATE agent_data SET layout = $1 WHERE agent_id = $2`, string(layout), agentID)
	if err != nil {
		return false, fmt.Errorf("failed to update layout: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update layout: %w", err)
	}
	return affected > 0, nil
}
