package consent

// PageState identifies which consent screen the browser is on.
type PageState int

const (
	LoginPage PageState = iota
	MobileApprovalPage
	TermsPage
	AccountSelectionPage
	ConfirmationPage
	UnknownPage
)

func (s PageState) String() string {
	switch s {
	case LoginPage:
		return "LoginPage"
	case MobileApprovalPage:
		return "MobileApprovalPage"
	case TermsPage:
		return "TermsPage"
	case AccountSelectionPage:
		return "AccountSelectionPage"
	case ConfirmationPage:
		return "ConfirmationPage"
	default:
		return "UnknownPage"
	}
}

// Selectors are the CSS selectors of every control the flow touches.
type Selectors struct {
	// Login form
	Username    string
	Password    string
	LoginSubmit string

	// Mobile approval variant; MobileApprove doubles as its page marker
	MobileApprove  string
	RememberDevice string
	ContinueButton string
	// ContinueText is a JavaScript regex matched in the page against ContinueButton's
	// text, written in the /pattern/flags form. Go regexp syntax such as (?i) is rejected.
	ContinueText   string
	FinalContinue  string

	// Terms; TermsCheckbox doubles as the terms page marker
	TermsCheckbox   string
	TermsSubmit     string
	TermsModalAgree string

	AccountCheckbox string
	AccountSubmit   string

	ConfirmationDone string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Username:    "#loginIdInput",
		Password:    "#passwordInput",
		LoginSubmit: "#btnLogin",

		MobileApprove:  "#mobile_approve",
		RememberDevice: "#remember-device-yes-content",
		ContinueButton: "button",
		ContinueText:   `/^\s*continue\s*$/i`,
		FinalContinue:  "#submit-btn",

		TermsCheckbox:   "#acceptTerms",
		TermsSubmit:     "#submit-btn",
		TermsModalAgree: "#agree-modal-btn-",

		AccountCheckbox: `input[type="checkbox"][id^="account"]`,
		AccountSubmit:   "#submit-btn",

		ConfirmationDone: "#cancel-btn",
	}
}
