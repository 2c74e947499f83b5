package consistency

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/classify"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
)

// ValidationReport is the outcome of checking one file.
type ValidationReport struct {
	Path           string
	FixedContent   string
	Issues         []string
	Fixes          []schemas.FixSuggestion
	FixesApplied   int
	Classification schemas.ClassificationResult
}

// Validator runs classify, analyze and fix over a generated file. It never
// rejects a file; the worst outcome is an unchanged file with issues listed.
type Validator struct {
	classifier *classify.Classifier
	ctx        *ProjectContext
	analyzer   *ImportAnalyzer
	fixer      AutoFixer
	logger     *zap.Logger
}

// NewValidator wires a validator over a shared project context.
func NewValidator(classifier *classify.Classifier, ctx *ProjectContext, cfg config.ConsistencyConfig, logger *zap.Logger) *Validator {
	return &Validator{
		classifier: classifier,
		ctx:        ctx,
		analyzer:   NewImportAnalyzer(ctx, cfg, logger),
		logger:     logger.Named("validator"),
	}
}

// Context returns the project context the validator reads.
func (v *Validator) Context() *ProjectContext { return v.ctx }

// ValidateAndFix classifies content, repairs its imports and classifies the
// result again. The caller decides whether to register the final
// classification.
func (v *Validator) ValidateAndFix(filePath, content string) ValidationReport {
	filePath = schemas.NormalizePath(filePath)
	res := v.classifier.Classify(filePath, content)
	fixes := v.analyzer.Analyze(filePath, res)

	report := ValidationReport{Path: filePath, FixedContent: content, Fixes: fixes, Classification: res}
	if len(fixes) == 0 {
		return report
	}
	for _, f := range fixes {
		report.Issues = append(report.Issues, f.Reason)
	}

	report.FixedContent, report.FixesApplied = v.fixer.Apply(content, fixes)
	if report.FixesApplied > 0 {
		report.Classification = v.classifier.Classify(filePath, report.FixedContent)
	}
	v.logger.Info("Applied import fixes",
		zap.String("path", filePath),
		zap.Int("issues", len(report.Issues)),
		zap.Int("fixes_applied", report.FixesApplied),
	)
	return report
}
