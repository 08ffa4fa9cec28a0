package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldDataset   = "dataset"
	FieldKey       = "key"
	FieldFeature   = "feature"
	FieldIndex     = "index"
	FieldTotal     = "total"
	FieldPath      = "path"
	FieldWorkers   = "workers"
)
