// conf/validate.go

package conf

import (
	"fmt"
	"image"
	"slices"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateModelSettings(&settings.Model); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateCropSettings(&settings.Crop); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLoggingSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(settings *ModelSettings) error {
	if !slices.Contains(SchemaNames, settings.Schema) {
		return fmt.Errorf("model.schema must be one of %v, got %q", SchemaNames, settings.Schema)
	}
	if settings.Threads < 0 {
		return fmt.Errorf("model.threads must be non-negative, got %d", settings.Threads)
	}
	return nil
}

func validateCropSettings(settings *CropSettings) error {
	if settings.Engine != EngineDraw && settings.Engine != EngineGoCV {
		return fmt.Errorf("crop.engine must be %q or %q, got %q", EngineDraw, EngineGoCV, settings.Engine)
	}
	if !settings.Enabled {
		return nil
	}

	if settings.ProcessingFolder == "" {
		return fmt.Errorf("crop.processingfolder is required when cropping is enabled")
	}
	if _, err := ParsePoint(settings.LeftUp); err != nil {
		return fmt.Errorf("crop.leftup: %w", err)
	}
	if _, err := ParsePoint(settings.RightDown); err != nil {
		return fmt.Errorf("crop.rightdown: %w", err)
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	if settings.CSV == "" {
		return fmt.Errorf("output.csv must not be empty")
	}
	if settings.ReportFormat != ReportHTML && settings.ReportFormat != ReportText {
		return fmt.Errorf("output.reportformat must be %q or %q, got %q", ReportHTML, ReportText, settings.ReportFormat)
	}

	db := settings.Database
	if !db.Enabled {
		return nil
	}
	switch db.Driver {
	case DriverSQLite:
		if db.Path == "" {
			return fmt.Errorf("output.database.path is required for the sqlite driver")
		}
	case DriverMySQL:
		if db.DSN == "" {
			return fmt.Errorf("output.database.dsn is required for the mysql driver")
		}
	default:
		return fmt.Errorf("output.database.driver must be %q or %q, got %q", DriverSQLite, DriverMySQL, db.Driver)
	}
	return nil
}

func validateLoggingSettings(settings *Settings) error {
	switch settings.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", settings.Logging.Level)
	}
	if settings.Logging.File.Enabled && settings.Logging.File.Path == "" {
		return fmt.Errorf("logging.file.path is required when file logging is enabled")
	}
	return nil
}

// ParsePoint parses an "x,y" pair of non-negative pixel coordinates.
func ParsePoint(s string) (image.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("point %q must be in x,y form", s)
	}

	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid x coordinate in %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid y coordinate in %q: %w", s, err)
	}
	if x < 0 || y < 0 {
		return image.Point{}, fmt.Errorf("point %q must not be negative", s)
	}

	return image.Pt(x, y), nil
}
