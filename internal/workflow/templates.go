/*-------------------------------------------------------------------------
 *
 * templates.go
 *    Built-in workflow templates
 *
 * One template per supported operation family. Templates are the first
 * planning choice; the model planner only runs when no template fits.
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/internal/workflow/templates.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"strings"

	"github.com/portalmind/PortalAgent/internal/nlp"
)

/* templateBuilders maps intents to their template, in catalog order */
var templateBuilders = map[nlp.Intent]func(map[string]interface{}) *Plan{
	nlp.IntentBackup:     backupTemplate,
	nlp.IntentRestore:    restoreTemplate,
	nlp.IntentAnalyze:    analysisTemplate,
	nlp.IntentOptimize:   optimizationTemplate,
	nlp.IntentMonitor:    monitoringTemplate,
	nlp.IntentMigration:  migrationTemplate,
	nlp.IntentCompliance: complianceTemplate,
}

/* TemplateNames lists available templates for the API */
func TemplateNames() []string {
	return []string{
		"backup_workflow",
		"restore_workflow",
		"analysis_workflow",
		"optimization_workflow",
		"monitoring_workflow",
		"migration_workflow",
		"compliance_workflow",
		"disaster_recovery",
		"multi_environment_sync",
	}
}

/* TemplateForIntent returns the template plan for an intent */
func TemplateForIntent(intent nlp.Intent, parameters map[string]interface{}) (*Plan, bool) {
	builder, ok := templateBuilders[intent]
	if !ok {
		return nil, false
	}
	return builder(parameters), true
}

/* templateAliases covers template names whose stem is not an intent,
 * including the legacy catalog names some clients still send */
var templateAliases = map[string]nlp.Intent{
	"analysis":                 nlp.IntentAnalyze,
	"optimization":             nlp.IntentOptimize,
	"monitoring":               nlp.IntentMonitor,
	"database_migration":       nlp.IntentMigration,
	"performance_optimization": nlp.IntentOptimize,
	"backup_and_restore":       nlp.IntentBackup,
	"health_check_suite":       nlp.IntentMonitor,
	"compliance_audit":         nlp.IntentCompliance,
}

/* namedTemplates are templates addressed by name only; they have no
 * single owning intent */
var namedTemplates = map[string]func(map[string]interface{}) *Plan{
	"disaster_recovery":      disasterRecoveryTemplate,
	"multi_environment_sync": multiEnvironmentSyncTemplate,
}

/* TemplateByName resolves a template by its listed name, a legacy alias
 * or its intent stem */
func TemplateByName(name string, parameters map[string]interface{}) (*Plan, bool) {
	stem := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "_workflow")
	if builder, ok := namedTemplates[stem]; ok {
		return builder(parameters), true
	}
	intent, ok := templateAliases[stem]
	if !ok {
		intent = nlp.ParseIntent(stem)
	}
	return TemplateForIntent(intent, parameters)
}

func backupTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "backup_workflow",
		Description: "Validate the target, create a backup and verify it",
		Type:        string(nlp.IntentBackup),
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:        "validate_target",
				Name:      "Validate target database",
				Type:      StepValidation,
				Operation: "validate_database",
			},
			{
				ID:             "create_backup",
				Name:           "Create backup",
				Type:           StepBackupOperation,
				Operation:      "create_backup",
				DependsOn:      []string{"validate_target"},
				TimeoutSeconds: 1800,
			},
			{
				ID:         "verify_backup",
				Name:       "Verify backup integrity",
				Type:       StepValidation,
				Operation:  "verify_backup",
				DependsOn:  []string{"create_backup"},
				RetryCount: 2,
			},
			{
				ID:        "notify_completion",
				Name:      "Notify completion",
				Type:      StepNotification,
				Operation: "notify",
				DependsOn: []string{"verify_backup"},
			},
		},
	}
}

func restoreTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "restore_workflow",
		Description: "Locate a backup, restore it and verify the result",
		Type:        string(nlp.IntentRestore),
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:         "locate_backup",
				Name:       "Locate latest backup",
				Type:       StepValidation,
				Operation:  "locate_backup",
				RetryCount: 2,
			},
			{
				ID:        "pre_restore_check",
				Name:      "Check target availability",
				Type:      StepValidation,
				Operation: "check_target",
			},
			{
				ID:             "restore_backup",
				Name:           "Restore from backup",
				Type:           StepRestoreOperation,
				Operation:      "restore_backup",
				DependsOn:      []string{"locate_backup", "pre_restore_check"},
				TimeoutSeconds: 3600,
			},
			{
				ID:        "verify_restore",
				Name:      "Verify restored data",
				Type:      StepValidation,
				Operation: "verify_restore",
				DependsOn: []string{"restore_backup"},
			},
			{
				ID:        "notify_completion",
				Name:      "Notify completion",
				Type:      StepNotification,
				Operation: "notify",
				DependsOn: []string{"verify_restore"},
			},
		},
	}
}

func analysisTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "analysis_workflow",
		Description: "Collect statistics and produce an analysis report",
		Type:        string(nlp.IntentAnalyze),
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:         "collect_statistics",
				Name:       "Collect database statistics",
				Type:       StepAnalysisOperation,
				Operation:  "collect_statistics",
				RetryCount: 2,
			},
			{
				ID:         "collect_metrics",
				Name:       "Collect performance metrics",
				Type:       StepMonitoringOperation,
				Operation:  "collect_metrics",
				RetryCount: 2,
			},
			{
				ID:        "analyze_results",
				Name:      "Analyze collected data",
				Type:      StepAnalysisOperation,
				Operation: "analyze",
				DependsOn: []string{"collect_statistics", "collect_metrics"},
			},
		},
	}
}

func optimizationTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "optimization_workflow",
		Description: "Analyze performance, apply optimizations and re-measure",
		Type:        string(nlp.IntentOptimize),
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:         "baseline_metrics",
				Name:       "Capture baseline metrics",
				Type:       StepMonitoringOperation,
				Operation:  "collect_metrics",
				RetryCount: 2,
			},
			{
				ID:             "apply_optimizations",
				Name:           "Apply optimizations",
				Type:           StepOptimizationOperation,
				Operation:      "optimize",
				DependsOn:      []string{"baseline_metrics"},
				TimeoutSeconds: 1800,
			},
			{
				ID:         "compare_metrics",
				Name:       "Compare against baseline",
				Type:       StepAnalysisOperation,
				Operation:  "compare_metrics",
				DependsOn:  []string{"apply_optimizations"},
				RetryCount: 1,
			},
		},
	}
}

func monitoringTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "monitoring_workflow",
		Description: "Check health and collect current metrics",
		Type:        string(nlp.IntentMonitor),
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:         "check_health",
				Name:       "Check database health",
				Type:       StepMonitoringOperation,
				Operation:  "check_health",
				RetryCount: 2,
			},
			{
				ID:         "collect_metrics",
				Name:       "Collect metrics",
				Type:       StepMonitoringOperation,
				Operation:  "collect_metrics",
				RetryCount: 2,
			},
			{
				ID:        "summarize_status",
				Name:      "Summarize status",
				Type:      StepAnalysisOperation,
				Operation: "summarize",
				DependsOn: []string{"check_health", "collect_metrics"},
			},
		},
	}
}

func migrationTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "migration_workflow",
		Description: "Back up the source, migrate and verify the target",
		Type:        string(nlp.IntentMigration),
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:        "validate_source",
				Name:      "Validate source database",
				Type:      StepValidation,
				Operation: "validate_database",
			},
			{
				ID:        "validate_target",
				Name:      "Validate target database",
				Type:      StepValidation,
				Operation: "validate_target",
			},
			{
				ID:             "backup_source",
				Name:           "Back up source before migration",
				Type:           StepBackupOperation,
				Operation:      "create_backup",
				DependsOn:      []string{"validate_source"},
				TimeoutSeconds: 1800,
			},
			{
				ID:             "run_migration",
				Name:           "Run migration",
				Type:           StepDatabaseOperation,
				Operation:      "migrate",
				DependsOn:      []string{"backup_source", "validate_target"},
				TimeoutSeconds: 7200,
			},
			{
				ID:        "verify_migration",
				Name:      "Verify migrated data",
				Type:      StepValidation,
				Operation: "verify_migration",
				DependsOn: []string{"run_migration"},
			},
			{
				ID:        "notify_completion",
				Name:      "Notify completion",
				Type:      StepNotification,
				Operation: "notify",
				DependsOn: []string{"verify_migration"},
			},
		},
	}
}

func complianceTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "compliance_workflow",
		Description: "Run compliance checks and generate the audit report",
		Type:        string(nlp.IntentCompliance),
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:         "inventory_scan",
				Name:       "Scan database inventory",
				Type:       StepValidation,
				Operation:  "inventory_scan",
				RetryCount: 2,
			},
			{
				ID:        "run_checks",
				Name:      "Run compliance checks",
				Type:      StepComplianceCheck,
				Operation: "run_checks",
				DependsOn: []string{"inventory_scan"},
			},
			{
				ID:        "generate_report",
				Name:      "Generate audit report",
				Type:      StepComplianceCheck,
				Operation: "generate_report",
				DependsOn: []string{"run_checks"},
			},
		},
	}
}

func disasterRecoveryTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "disaster_recovery",
		Description: "Assess the damage, restore from the latest backup and verify recovery",
		Type:        "disaster_recovery",
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:        "assess_impact",
				Name:      "Assess incident impact",
				Type:      StepAIAnalysis,
				Operation: "assess_impact",
			},
			{
				ID:         "locate_backup",
				Name:       "Locate latest viable backup",
				Type:       StepValidation,
				Operation:  "locate_backup",
				RetryCount: 2,
			},
			{
				ID:             "restore_backup",
				Name:           "Restore from backup",
				Type:           StepRestoreOperation,
				Operation:      "restore_backup",
				DependsOn:      []string{"assess_impact", "locate_backup"},
				TimeoutSeconds: 3600,
			},
			{
				ID:         "verify_recovery",
				Name:       "Verify recovered systems",
				Type:       StepPerformanceTest,
				Operation:  "verify_recovery",
				DependsOn:  []string{"restore_backup"},
				RetryCount: 2,
			},
			{
				ID:        "notify_completion",
				Name:      "Notify completion",
				Type:      StepNotification,
				Operation: "notify",
				DependsOn: []string{"verify_recovery"},
			},
		},
	}
}

func multiEnvironmentSyncTemplate(parameters map[string]interface{}) *Plan {
	return &Plan{
		Name:        "multi_environment_sync",
		Description: "Back up the target, sync data from the source environment and verify consistency",
		Type:        "multi_environment_sync",
		Parameters:  parameters,
		Source:      SourceTemplate,
		Steps: []Step{
			{
				ID:        "validate_source_env",
				Name:      "Validate source environment",
				Type:      StepValidation,
				Operation: "validate_environment",
			},
			{
				ID:        "validate_target_env",
				Name:      "Validate target environment",
				Type:      StepValidation,
				Operation: "validate_environment",
			},
			{
				ID:             "backup_target",
				Name:           "Back up target before sync",
				Type:           StepBackupOperation,
				Operation:      "create_backup",
				DependsOn:      []string{"validate_target_env"},
				TimeoutSeconds: 1800,
			},
			{
				ID:             "sync_data",
				Name:           "Sync data across environments",
				Type:           StepDatabaseOperation,
				Operation:      "sync_environments",
				DependsOn:      []string{"validate_source_env", "backup_target"},
				TimeoutSeconds: 3600,
			},
			{
				ID:        "verify_consistency",
				Name:      "Verify cross-environment consistency",
				Type:      StepValidation,
				Operation: "verify_consistency",
				DependsOn: []string{"sync_data"},
			},
			{
				ID:        "notify_completion",
				Name:      "Notify completion",
				Type:      StepNotification,
				Operation: "notify",
				DependsOn: []string{"verify_consistency"},
			},
		},
	}
}
