// Package errors provides centralized error handling with categories and context
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is an interface for errors that can specify their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryGeometry              ErrorCategory = "geometry"               // Bounding box outside the source image
	CategoryMissingSource         ErrorCategory = "missing-source"         // Input directory or file does not exist
	CategoryClassifierUnavailable ErrorCategory = "classifier-unavailable" // Model could not be loaded or initialized
	CategoryClassification        ErrorCategory = "classification"         // Per-image inference failure
	CategoryLedger                ErrorCategory = "ledger"                 // Result ledger could not be written
	CategoryImageDecode           ErrorCategory = "image-decode"
	CategoryImageEncode           ErrorCategory = "image-encode"
	CategoryValidation            ErrorCategory = "validation"
	CategoryFileIO                ErrorCategory = "file-io"
	CategoryConfiguration         ErrorCategory = "configuration"
	CategoryReport                ErrorCategory = "report"
	CategoryDatabase              ErrorCategory = "database"
	CategoryCancellation          ErrorCategory = "cancellation"
	CategoryGeneric               ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	component string         // Component where error occurred (lazily detected)
	Category  ErrorCategory  // Error category for better grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	mu        sync.RWMutex
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.component
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}

	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext adds the file path and, when known, its size
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	if filePath != "" {
		eb.Context("path", filePath)
		eb.Context("file_extension", getFileExtension(filePath))
	}
	if fileSize > 0 {
		eb.Context("file_size", fileSize)
	}
	return eb
}

// ModelContext adds classifier model context
func (eb *ErrorBuilder) ModelContext(modelPath, schema string) *ErrorBuilder {
	if modelPath != "" {
		eb.Context("model_path", modelPath)
	}
	if schema != "" {
		eb.Context("schema", schema)
	}
	return eb
}

// Timing adds performance timing context
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	eb.Context("operation", operation)
	eb.Context("duration_ms", duration.Milliseconds())
	return eb
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	if eb.err == nil {
		eb.err = NewStd("unknown error")
	}
	if eb.component == "" {
		eb.component = detectComponent()
	}
	if eb.category == "" {
		eb.category = detectCategory(eb.err)
	}

	return &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

const modulePrefix = "github.com/qualitylab/partclass/"

// detectComponent walks the call stack and returns the first package outside
// this one, relative to the module root.
func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		fn := frame.Function
		if strings.HasPrefix(fn, modulePrefix) && !strings.HasPrefix(fn, modulePrefix+"internal/errors") {
			if component := componentFromFunc(fn); component != "" {
				return component
			}
		}
		if !more {
			break
		}
	}

	return ComponentUnknown
}

// componentFromFunc converts "github.com/qualitylab/partclass/internal/ledger.(*Ledger).Append"
// into "ledger".
func componentFromFunc(funcName string) string {
	name := strings.TrimPrefix(funcName, modulePrefix)
	name = strings.TrimPrefix(name, "internal/")

	lastSlash := strings.LastIndex(name, "/")
	if dot := strings.Index(name[lastSlash+1:], "."); dot > 0 {
		name = name[:lastSlash+1+dot]
	}
	if name == "" || name == "main" {
		return ""
	}
	return name
}

// detectCategory derives a category from the error chain when none was set
func detectCategory(err error) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}

	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	return CategoryGeneric
}

// getFileExtension extracts file extension for categorization
func getFileExtension(path string) string {
	if lastDot := strings.LastIndex(path, "."); lastDot > 0 && lastDot < len(path)-1 {
		return strings.ToLower(path[lastDot+1:])
	}
	return "none"
}

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// Standard library passthrough functions
// These allow this package to be a drop-in replacement for the standard errors package

// NewStd creates a new standard error (passthrough to standard library)
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target (passthrough to standard library)
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target (passthrough to standard library)
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// IsCategory checks if an error carries the specified category, either as an
// EnhancedError or as a CategorizedError anywhere in its chain.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	if As(err, &enhancedErr) && enhancedErr.Category == category {
		return true
	}
	var catErr CategorizedError
	return As(err, &catErr) && catErr.ErrorCategory() == category
}

// CategoryOf returns the category carried by err, or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	return detectCategory(err)
}
