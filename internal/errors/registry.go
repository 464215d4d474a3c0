package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Config errors (G100-G119)

	"G100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No gaze.json was found in the given directory.",
	},
	"G101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "gaze.json could not be parsed.",
	},
	"G102": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A field in gaze.json has a value outside its allowed range.",
	},
	"G103": {
		Category: CategoryConfig,
		Message:  "Config write failed",
		Detail:   "gaze.json could not be written.",
	},

	// Source errors (G120-G139)

	"G120": {
		Category: CategorySource,
		Message:  "Invalid source definition",
		Detail:   "A source in gaze.json has no name, a duplicate name, or an unsupported type.",
	},
	"G121": {
		Category: CategorySource,
		Message:  "Invalid initial value",
		Detail:   "A source's initial value does not match its declared type.",
	},

	// Snapshot errors (G140-G159)

	"G140": {
		Category: CategorySnapshot,
		Message:  "Snapshot store unavailable",
		Detail:   "The snapshot store could not be configured.",
	},
	"G141": {
		Category: CategorySnapshot,
		Message:  "Snapshot restore failed",
		Detail:   "One or more sources could not be restored from the snapshot store.",
	},

	// CLI errors (G160-G179)

	"G160": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
	"G161": {
		Category: CategoryCLI,
		Message:  "Config already exists",
		Detail:   "Refusing to overwrite an existing gaze.json.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
