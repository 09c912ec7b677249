package actions

import "go.uber.org/zap"

// loadDefaultCatalog registers the built-in remediation actions. These are
// metadata-only entries; deployments bind concrete handlers via Bind.
func (r *Registry) loadDefaultCatalog() {
	defaults := []*Definition{
		{
			Name:               "RESTRICT_ACCESS",
			Description:        "Remove public or over-broad access from a storage resource",
			Category:           CategoryAccess,
			Provider:           "aws",
			RiskLevel:          RiskMedium,
			Reversible:         true,
			RequiredParameters: []string{"resource_id"},
		},
		{
			Name:               "UPDATE_POLICY",
			Description:        "Replace an over-permissive IAM or access policy with a scoped one",
			Category:           CategoryPolicy,
			Provider:           "aws",
			RiskLevel:          RiskHigh,
			Reversible:         true,
			RequiredParameters: []string{"resource_id", "policy"},
		},
		{
			Name:               "ENABLE_ENCRYPTION",
			Description:        "Enable at-rest encryption on a storage resource",
			Category:           CategoryEncryption,
			Provider:           "aws",
			RiskLevel:          RiskMedium,
			Reversible:         false,
			RequiredParameters: []string{"resource_id"},
		},
		{
			Name:               "ANONYMIZE_DATA",
			Description:        "Anonymize PII fields in a dataset flagged by detection",
			Category:           CategoryData,
			Provider:           "internal",
			RiskLevel:          RiskHigh,
			Reversible:         false,
			RequiredParameters: []string{"dataset_id", "fields"},
		},
		{
			Name:               "DELETE_DATA",
			Description:        "Delete data retained past its lawful retention period",
			Category:           CategoryData,
			Provider:           "internal",
			RiskLevel:          RiskHigh,
			Reversible:         false,
			RequiredParameters: []string{"dataset_id"},
		},
		{
			Name:               "REVOKE_CREDENTIALS",
			Description:        "Revoke credentials for a principal with excessive privileges",
			Category:           CategoryIdentity,
			Provider:           "aws",
			RiskLevel:          RiskMedium,
			Reversible:         true,
			RequiredParameters: []string{"principal_id"},
		},
		{
			Name:               "ENABLE_AUDIT_LOGGING",
			Description:        "Enable access logging on a resource missing an audit trail",
			Category:           CategoryLogging,
			Provider:           "aws",
			RiskLevel:          RiskLow,
			Reversible:         true,
			RequiredParameters: []string{"resource_id"},
		},
	}

	for _, def := range defaults {
		r.definitions[def.Name] = def
	}

	r.logger.Info("Default action catalog loaded",
		zap.Int("count", len(defaults)),
	)
}
