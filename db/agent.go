package db

import (
	"encoding/json"
	"time"
)

// ===========================
// AGENT MODELS
// ===========================

// Agent is an agent profile joined with its extension, queues and outgoing channel.
// Join columns are optional because an agent may be provisioned before its
// extension or queues exist.
type Agent struct {
	AgentID         int64           `json:"agent_id"`
	Username        string          `json:"username"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Role            string          `json:"role"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	Organization    string          `json:"organization"`
	IsApproved      bool            `json:"is_approved"`
	IsActive        bool            `json:"is_active"`
	Extension       *string         `json:"extension"`
	ExtensionSecret *string         `json:"extension_secret"`
	QueueName       *string         `json:"queue_name"`
	Queue2Name      *string         `json:"queue2_name"`
	Layout          json.RawMessage `json:"layout,omitempty"`
	Channel         *string         `json:"channel"`
}

// UpdateProfileRequest is the body of POST /updateProfile. The extension is the
// human-facing number; the stored foreign key is always resolved server-side.
type UpdateProfileRequest struct {
	AgentID      int64  `json:"agent_id" form:"agent_id"`
	FirstName    string `json:"first_name" form:"first_name"`
	LastName     string `json:"last_name" form:"last_name"`
	Role         string `json:"role" form:"role"`
	Phone        string `json:"phone" form:"phone"`
	Email        string `json:"email" form:"email"`
	Organization string `json:"organization" form:"organization"`
	IsApproved   *bool  `json:"is_approved" form:"is_approved"`
	IsActive     *bool  `json:"is_active" form:"is_active"`
	Extension    string `json:"extension" form:"extension"`
}

// NewAgentRecord is one element of the POST /addAgents payload.
type NewAgentRecord struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	IsApproved   bool   `json:"is_approved"`
	IsActive     bool   `json:"is_active"`
	Extension    string `json:"extension"`
	QueueID      *int64 `json:"queue_id"`
	Queue2ID     *int64 `json:"queue2_id"`
}

// AddAgentsRequest wraps the bulk creation payload.
type AddAgentsRequest struct {
	Data []NewAgentRecord `json:"data"`
}

// DeleteAgentRequest is the body of POST /DeleteAgent.
type DeleteAgentRequest struct {
	AgentID int64 `json:"agent_id" form:"agent_id"`
}

// UpdateLayoutRequest is the body of POST /updateLayoutConfig.
type UpdateLayoutRequest struct {
	AgentID int64           `json:"agent_id"`
	Layout  json.RawMessage `json:"layout"`
}

// Script is call-handling text attached to a queue.
type Script struct {
	ID        int64     `json:"id"`
	QueueName string    `json:"queue_name"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
	Type      string    `json:"type"`
}
