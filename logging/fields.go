package logging

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldDomain     = "domain"
	FieldRecordID   = "record_id"
	FieldAdminID    = "admin_id"
	FieldFrom       = "from"
	FieldTo         = "to"
	FieldAction     = "action"
	FieldAmount     = "amount"
	FieldChart      = "chart"
	FieldExchange   = "exchange"
	FieldQueue      = "queue"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentWorkflow = "workflow"
	ComponentAMQP     = "amqp"
	ComponentCharts   = "charts"
	ComponentCLI      = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpList     = "list"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpValidate = "validate"
	OpDispatch = "dispatch"
	OpPublish  = "publish"
	OpRender   = "render"
	OpMigrate  = "migrate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
