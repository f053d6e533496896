// Package logging provides categorized structured logging for the
// crucible engine. Each subsystem logs under its own named zap logger;
// hosts install a root logger once at startup, and everything is a
// silent no-op until they do.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Category names a logging subsystem.
type Category string

const (
	CategorySession   Category = "session"   // Controller state machine
	CategoryRules     Category = "rules"     // Rule library loading
	CategoryValidate  Category = "validate"  // Structural validation
	CategoryVerify    Category = "verify"    // Control-flow verification
	CategoryRepair    Category = "repair"    // AST repair passes
	CategoryScore     Category = "score"     // Candidate scoring
	CategoryGenerator Category = "generator" // Generator collaborator calls
	CategoryRunner    Category = "runner"    // Test runner executions
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// SetLogger installs the root logger. Passing nil reverts to no-op.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Get returns (or creates) the sugared logger for a category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	r := root
	mu.RUnlock()

	if r == nil {
		r = zap.NewNop()
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := r.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes the root logger, if any.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Session logs to the session category.
func Session(format string, args ...interface{}) {
	Get(CategorySession).Infof(format, args...)
}

// SessionDebug logs debug to the session category.
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debugf(format, args...)
}

// SessionWarn logs warning to the session category.
func SessionWarn(format string, args ...interface{}) {
	Get(CategorySession).Warnf(format, args...)
}

// Rules logs to the rules category.
func Rules(format string, args ...interface{}) {
	Get(CategoryRules).Infof(format, args...)
}

// RulesDebug logs debug to the rules category.
func RulesDebug(format string, args ...interface{}) {
	Get(CategoryRules).Debugf(format, args...)
}

// Validate logs to the validate category.
func Validate(format string, args ...interface{}) {
	Get(CategoryValidate).Infof(format, args...)
}

// ValidateDebug logs debug to the validate category.
func ValidateDebug(format string, args ...interface{}) {
	Get(CategoryValidate).Debugf(format, args...)
}

// Verify logs to the verify category.
func Verify(format string, args ...interface{}) {
	Get(CategoryVerify).Infof(format, args...)
}

// VerifyDebug logs debug to the verify category.
func VerifyDebug(format string, args ...interface{}) {
	Get(CategoryVerify).Debugf(format, args...)
}

// VerifyWarn logs warning to the verify category.
func VerifyWarn(format string, args ...interface{}) {
	Get(CategoryVerify).Warnf(format, args...)
}

// Repair logs to the repair category.
func Repair(format string, args ...interface{}) {
	Get(CategoryRepair).Infof(format, args...)
}

// RepairDebug logs debug to the repair category.
func RepairDebug(format string, args ...interface{}) {
	Get(CategoryRepair).Debugf(format, args...)
}

// RepairWarn logs warning to the repair category.
func RepairWarn(format string, args ...interface{}) {
	Get(CategoryRepair).Warnf(format, args...)
}

// Score logs to the score category.
func Score(format string, args ...interface{}) {
	Get(CategoryScore).Infof(format, args...)
}

// Generator logs to the generator category.
func Generator(format string, args ...interface{}) {
	Get(CategoryGenerator).Infof(format, args...)
}

// GeneratorDebug logs debug to the generator category.
func GeneratorDebug(format string, args ...interface{}) {
	Get(CategoryGenerator).Debugf(format, args...)
}

// GeneratorError logs error to the generator category.
func GeneratorError(format string, args ...interface{}) {
	Get(CategoryGenerator).Errorf(format, args...)
}

// Runner logs to the runner category.
func Runner(format string, args ...interface{}) {
	Get(CategoryRunner).Infof(format, args...)
}

// RunnerDebug logs debug to the runner category.
func RunnerDebug(format string, args ...interface{}) {
	Get(CategoryRunner).Debugf(format, args...)
}
