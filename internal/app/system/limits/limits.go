// internal/app/system/limits/limits.go
package limits

// Request body size limits for various features.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MultipartOverhead is allowed on top of the document cap for the text
	// fields and part headers of a registration form. It is also the
	// in-memory threshold passed to ParseMultipartForm.
	MultipartOverhead = 1 << 20 // 1 MB

	// MaxStepBody bounds a step-validation request, participants included.
	MaxStepBody = 64 << 10 // 64 KB

	// MaxWizardFields bounds one batch of wizard field changes.
	MaxWizardFields = 32 << 10 // 32 KB

	// MaxClickBody bounds a click-tracking event.
	MaxClickBody = 8 << 10 // 8 KB

	// MaxSmallJSON bounds single-value bodies: a college name, a debug
	// reset request, a team size.
	MaxSmallJSON = 4 << 10 // 4 KB
)
