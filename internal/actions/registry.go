// Package actions provides the remediation action registry.
//
// The registry maps symbolic action names to declared metadata (risk level,
// reversibility, required parameters) and to the executable handlers bound
// by the integrating deployment. The workflow engine consumes it through
// Resolve and ValidateParameters only.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Common errors.
var (
	ErrActionNotFound    = errors.New("action not found")
	ErrAlreadyRegistered = errors.New("action already registered")
	ErrNoHandler         = errors.New("no handler bound for action")
)

// RiskLevel classifies how disruptive an action is if it misfires.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Category groups actions by the kind of resource they touch.
type Category string

const (
	CategoryAccess     Category = "access"
	CategoryPolicy     Category = "policy"
	CategoryEncryption Category = "encryption"
	CategoryData       Category = "data"
	CategoryLogging    Category = "logging"
	CategoryIdentity   Category = "identity"
)

// Invocation carries the parameters and correlation context passed to a handler.
type Invocation struct {
	WorkflowID    string         `json:"workflow_id"`
	RemediationID string         `json:"remediation_id"`
	FindingID     string         `json:"finding_id"`
	Parameters    map[string]any `json:"parameters"`
}

// HandlerResult is what a handler reports back to the engine.
type HandlerResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	RollbackData map[string]any `json:"rollback_data,omitempty"`
}

// HandlerFunc performs (or reverses, or verifies) a remediation effect.
// Returning an error is treated the same as Success=false.
type HandlerFunc func(ctx context.Context, inv Invocation) (*HandlerResult, error)

// Definition describes a registered remediation action.
type Definition struct {
	Name               string    `yaml:"name" json:"name"`
	Description        string    `yaml:"description" json:"description"`
	Category           Category  `yaml:"category" json:"category"`
	Provider           string    `yaml:"provider" json:"provider"` // aws, azure, gcp, internal
	RiskLevel          RiskLevel `yaml:"risk_level" json:"risk_level"`
	Reversible         bool      `yaml:"reversible" json:"reversible"`
	RequiredParameters []string  `yaml:"required_parameters" json:"required_parameters"`

	// Handlers are bound in code, never serialized.
	Handler         HandlerFunc `yaml:"-" json:"-"`
	RollbackHandler HandlerFunc `yaml:"-" json:"-"`
	VerifyHandler   HandlerFunc `yaml:"-" json:"-"`
}

// ValidationResult reports a parameter bag checked against a definition.
type ValidationResult struct {
	Valid             bool     `json:"valid"`
	MissingRequired   []string `json:"missing_required,omitempty"`
	InvalidParameters []string `json:"invalid_parameters,omitempty"`
}

// Registry holds action definitions and their bound handlers.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
	logger      *zap.Logger
}

// NewRegistry creates a registry preloaded with the default action catalog.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		definitions: make(map[string]*Definition),
		logger:      logger,
	}
	r.loadDefaultCatalog()
	return r
}

// Register adds a new action definition.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("%w: definition must have a name", ErrActionNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, def.Name)
	}
	r.definitions[def.Name] = def

	r.logger.Info("Action registered",
		zap.String("action", def.Name),
		zap.String("risk_level", string(def.RiskLevel)),
	)
	return nil
}

// Bind attaches executable handlers to an existing definition. Catalog
// entries are metadata only until a deployment binds handlers for them.
func (r *Registry) Bind(name string, handler, rollback HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, exists := r.definitions[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	def.Handler = handler
	def.RollbackHandler = rollback
	return nil
}

// BindVerifier attaches an optional post-execution verification handler.
func (r *Registry) BindVerifier(name string, verify HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, exists := r.definitions[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	def.VerifyHandler = verify
	return nil
}

// Resolve returns the definition for an action name.
func (r *Registry) Resolve(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	return def, nil
}

// ValidateParameters checks a parameter bag against an action's declared
// requirements. A required parameter that is absent is missing; one that is
// present but nil or blank is invalid.
func (r *Registry) ValidateParameters(name string, params map[string]any) (*ValidationResult, error) {
	def, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{}
	for _, required := range def.RequiredParameters {
		value, ok := params[required]
		if !ok {
			result.MissingRequired = append(result.MissingRequired, required)
			continue
		}
		switch v := value.(type) {
		case nil:
			result.InvalidParameters = append(result.InvalidParameters, required)
		case string:
			if strings.TrimSpace(v) == "" {
				result.InvalidParameters = append(result.InvalidParameters, required)
			}
		}
	}
	result.Valid = len(result.MissingRequired) == 0 && len(result.InvalidParameters) == 0
	return result, nil
}

// List returns all registered definitions sorted by name.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// LoadCatalog registers action definitions from YAML. Existing names are
// overwritten; handlers previously bound to them are preserved.
func (r *Registry) LoadCatalog(yamlData []byte) error {
	var defs []*Definition
	if err := yaml.Unmarshal(yamlData, &defs); err != nil {
		return fmt.Errorf("parsing action catalog YAML: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		if prev, exists := r.definitions[def.Name]; exists {
			def.Handler = prev.Handler
			def.RollbackHandler = prev.RollbackHandler
			def.VerifyHandler = prev.VerifyHandler
		}
		r.definitions[def.Name] = def
	}

	r.logger.Info("Action catalog loaded", zap.Int("count", len(defs)))
	return nil
}

// ExportCatalog exports all definitions to YAML.
func (r *Registry) ExportCatalog() ([]byte, error) {
	return yaml.Marshal(r.List())
}
