package actions

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func okHandler(ctx context.Context, inv Invocation) (*HandlerResult, error) {
	return &HandlerResult{Success: true, Message: "ok"}, nil
}

// TestDefaultCatalog verifies the built-in actions resolve with the expected
// risk classification.
func TestDefaultCatalog(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	tests := []struct {
		name       string
		risk       RiskLevel
		category   Category
		reversible bool
	}{
		{"RESTRICT_ACCESS", RiskMedium, CategoryAccess, true},
		{"UPDATE_POLICY", RiskHigh, CategoryPolicy, true},
		{"ENABLE_ENCRYPTION", RiskMedium, CategoryEncryption, false},
		{"ANONYMIZE_DATA", RiskHigh, CategoryData, false},
		{"DELETE_DATA", RiskHigh, CategoryData, false},
		{"REVOKE_CREDENTIALS", RiskMedium, CategoryIdentity, true},
		{"ENABLE_AUDIT_LOGGING", RiskLow, CategoryLogging, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := r.Resolve(tt.name)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if def.RiskLevel != tt.risk {
				t.Errorf("risk = %s, want %s", def.RiskLevel, tt.risk)
			}
			if def.Category != tt.category {
				t.Errorf("category = %s, want %s", def.Category, tt.category)
			}
			if def.Reversible != tt.reversible {
				t.Errorf("reversible = %v, want %v", def.Reversible, tt.reversible)
			}
			if def.Handler != nil {
				t.Error("catalog entry has a handler before Bind")
			}
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	_, err := r.Resolve("NO_SUCH_ACTION")
	if !errors.Is(err, ErrActionNotFound) {
		t.Errorf("err = %v, want ErrActionNotFound", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	err := r.Register(&Definition{Name: "RESTRICT_ACCESS"})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("err = %v, want ErrAlreadyRegistered", err)
	}

	if err := r.Register(&Definition{Name: "CUSTOM_ACTION", RiskLevel: RiskLow}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Resolve("CUSTOM_ACTION"); err != nil {
		t.Errorf("Resolve after Register: %v", err)
	}
}

func TestRegister_Invalid(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	if err := r.Register(nil); err == nil {
		t.Error("Register accepted nil definition")
	}
	if err := r.Register(&Definition{}); err == nil {
		t.Error("Register accepted unnamed definition")
	}
}

func TestBind(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	if err := r.Bind("RESTRICT_ACCESS", okHandler, okHandler); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	def, _ := r.Resolve("RESTRICT_ACCESS")
	if def.Handler == nil || def.RollbackHandler == nil {
		t.Error("handlers not attached after Bind")
	}

	if err := r.Bind("NO_SUCH_ACTION", okHandler, nil); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Bind unknown err = %v, want ErrActionNotFound", err)
	}

	if err := r.BindVerifier("RESTRICT_ACCESS", okHandler); err != nil {
		t.Fatalf("BindVerifier: %v", err)
	}
	def, _ = r.Resolve("RESTRICT_ACCESS")
	if def.VerifyHandler == nil {
		t.Error("verify handler not attached after BindVerifier")
	}
}

func TestValidateParameters(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	tests := []struct {
		name        string
		params      map[string]any
		wantValid   bool
		wantMissing []string
		wantInvalid []string
	}{
		{
			name:      "all present",
			params:    map[string]any{"resource_id": "role-1", "policy": "{}"},
			wantValid: true,
		},
		{
			name:        "absent parameter is missing",
			params:      map[string]any{"resource_id": "role-1"},
			wantMissing: []string{"policy"},
		},
		{
			name:        "nil parameter is invalid",
			params:      map[string]any{"resource_id": "role-1", "policy": nil},
			wantInvalid: []string{"policy"},
		},
		{
			name:        "blank string is invalid",
			params:      map[string]any{"resource_id": "   ", "policy": "{}"},
			wantInvalid: []string{"resource_id"},
		},
		{
			name:        "empty bag misses everything",
			params:      nil,
			wantMissing: []string{"resource_id", "policy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vr, err := r.ValidateParameters("UPDATE_POLICY", tt.params)
			if err != nil {
				t.Fatalf("ValidateParameters: %v", err)
			}
			if vr.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", vr.Valid, tt.wantValid)
			}
			if len(vr.MissingRequired) != len(tt.wantMissing) {
				t.Errorf("missing = %v, want %v", vr.MissingRequired, tt.wantMissing)
			}
			if len(vr.InvalidParameters) != len(tt.wantInvalid) {
				t.Errorf("invalid = %v, want %v", vr.InvalidParameters, tt.wantInvalid)
			}
		})
	}

	if _, err := r.ValidateParameters("NO_SUCH_ACTION", nil); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("unknown action err = %v, want ErrActionNotFound", err)
	}
}

func TestList_Sorted(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	defs := r.List()
	if len(defs) == 0 {
		t.Fatal("List returned no catalog entries")
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Name >= defs[i].Name {
			t.Fatalf("List not sorted: %s before %s", defs[i-1].Name, defs[i].Name)
		}
	}
}

// TestLoadCatalog verifies YAML catalog loading overwrites metadata while
// preserving handlers bound before the reload.
func TestLoadCatalog(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	if err := r.Bind("RESTRICT_ACCESS", okHandler, okHandler); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	catalog := []byte(`
- name: RESTRICT_ACCESS
  description: tightened description
  category: access
  risk_level: HIGH
  reversible: true
  required_parameters: [resource_id, principal_id]
- name: QUARANTINE_DATASET
  description: move a dataset into the quarantine zone
  category: data
  risk_level: HIGH
  required_parameters: [dataset_id]
`)
	if err := r.LoadCatalog(catalog); err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	def, err := r.Resolve("RESTRICT_ACCESS")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if def.RiskLevel != RiskHigh {
		t.Errorf("risk = %s after reload, want HIGH", def.RiskLevel)
	}
	if len(def.RequiredParameters) != 2 {
		t.Errorf("required = %v, want two entries", def.RequiredParameters)
	}
	if def.Handler == nil || def.RollbackHandler == nil {
		t.Error("bound handlers lost across catalog reload")
	}

	if _, err := r.Resolve("QUARANTINE_DATASET"); err != nil {
		t.Errorf("new catalog entry did not register: %v", err)
	}
}

func TestLoadCatalog_BadYAML(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	if err := r.LoadCatalog([]byte("{not yaml")); err == nil {
		t.Error("LoadCatalog accepted malformed YAML")
	}
}

func TestExportCatalog(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	data, err := r.ExportCatalog()
	if err != nil {
		t.Fatalf("ExportCatalog: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("ExportCatalog returned no data")
	}

	// Round-trip into a fresh registry.
	other := &Registry{definitions: make(map[string]*Definition), logger: zap.NewNop()}
	if err := other.LoadCatalog(data); err != nil {
		t.Fatalf("LoadCatalog of export: %v", err)
	}
	if len(other.List()) != len(r.List()) {
		t.Errorf("round-trip count = %d, want %d", len(other.List()), len(r.List()))
	}
}
