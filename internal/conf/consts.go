package conf

// Category schema names accepted by model.schema.
const (
	Schema3Class = "3class"
	Schema5Class = "5class"
)

// SchemaNames lists the valid model.schema values.
var SchemaNames = []string{Schema3Class, Schema5Class}

// Crop engines.
const (
	EngineDraw = "draw"
	EngineGoCV = "gocv"
)

// Report formats.
const (
	ReportHTML = "html"
	ReportText = "text"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)
