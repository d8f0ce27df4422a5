package browser

// Platform constants for the Gradescope grading platform behind the QUT SSO
// gateway. Every selector the pipeline probes lives here so that adapting to
// interface drift touches one file only.
const (
	// BaseURL is the landing page of the grading platform.
	BaseURL = "https://www.gradescope.com.au"

	// SSOEntryURL triggers the institutional SAML flow. Navigating here with
	// a live session redirects straight back to the authenticated landing
	// page, which makes it double as a cheap session probe.
	SSOEntryURL = BaseURL + "/auth/saml/qut"

	// SelAuthenticatedMarker is a post-login UI element. Presence of this
	// marker, not the URL, is what decides the session is authenticated,
	// since SSO redirects are transient.
	SelAuthenticatedMarker = "a.courseBox"

	// SelCourseBox and SelCourseShortname identify the course listing.
	SelCourseBox       = "a.courseBox"
	SelCourseShortname = "h3.courseBox--shortname"

	// SelAssignmentLink identifies assignment rows on a course page.
	SelAssignmentLink = `a[href*="/assignments/"]`

	// SSO login form controls.
	SelSSOUsername   = `input[name="username"]`
	SelSSOPassword   = `input[name="password"]`
	SelSSOLoginBtn   = `button#kc-login`
	SelSSOLoginError = `span#input-error, div.alert-error`

	// SelSSORememberMe covers the checkbox variants institutional themes
	// use. Checking it is best-effort.
	SelSSORememberMe = `input[type="checkbox"][name*="remember" i], input[type="checkbox"][id*="remember" i]`

	// Submission controls. The resubmit button is distinguished from the
	// plain submit button by its label, hence the XPath form.
	SelSubmitButton    = "button.js-submitAssignment"
	SelResubmitButton  = `//button[contains(@class,"js-submitAssignment") and contains(.,"Resubmit")]`
	SelUploadMethod    = "input#submission_method_upload"
	SelFileInput       = `input[type="file"]`
	SelUploadConfirm   = "button.js-submitCode"
	SelSubmissionView  = "div.submissionOutlineHeader"
	SelPlatformAlert   = "div.alert-error"
	SelGradeTotalScore = "div.submissionOutlineHeader--totalPoints"
)
