package model

// Eligibility reason codes returned when a purchase is denied.
const (
	ReasonAlreadyEnrolled       = "already_enrolled"
	ReasonCourseUnpublished     = "course_unpublished"
	ReasonOwnCourse             = "own_course"
	ReasonFeatureAlreadyOwned   = "feature_already_owned"
	ReasonCoveredBySubscription = "covered_by_subscription"
	ReasonFeatureInactive       = "feature_inactive"
)

// EligibilityDecision is the outcome of the pre-checkout eligibility check.
// Denial is expressed in data, not as an error; lookup failures during the
// check surface as errors and must never be read as a denial.
type EligibilityDecision struct {
	Allowed bool
	Reason  string // set when Allowed is false
	Message string // human-readable, already localized by the caller's locale
}

func Allow() EligibilityDecision {
	return EligibilityDecision{Allowed: true}
}

func Deny(reason, message string) EligibilityDecision {
	return EligibilityDecision{Allowed: false, Reason: reason, Message: message}
}
