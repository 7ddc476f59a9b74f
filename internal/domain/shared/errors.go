package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common kernel errors
var (
	ErrNotFound               = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput           = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrPlanRequired           = NewDomainError("PLAN_REQUIRED", "Tenant plan does not include this module")
	ErrMissingDependency      = NewDomainError("MISSING_DEPENDENCY", "A required module dependency is not enabled")
	ErrIncompatibleModule     = NewDomainError("INCOMPATIBLE_MODULE", "Module conflicts with an enabled module")
	ErrCoreModuleProtected    = NewDomainError("CORE_MODULE_PROTECTED", "Core modules cannot be disabled")
	ErrDependentModulesActive = NewDomainError("DEPENDENT_MODULES_ACTIVE", "Other enabled modules depend on this module")
	ErrUnknownEntity          = NewDomainError("UNKNOWN_ENTITY", "Target entity is not registered")
	ErrActionNotFound         = NewDomainError("ACTION_NOT_FOUND", "No extension defines this action")
	ErrHandlerFailure         = NewDomainError("HANDLER_FAILURE", "A hook or action handler failed")
)
