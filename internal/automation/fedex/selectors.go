package fedex

// Invoice lookup section.
const (
	selInvoiceType   = "#invoiceType"
	selInvoiceNumber = "#invoiceNumber"
	selCountry       = "#country"
	selAmount        = "#amount"
	selDate          = "#date"
	selEmail         = "#email"
	selVerifyButton  = "button.fdx-c-button--primary"
	selVerified      = ".fdx-c-message--success, .verified-amount"
	selVerifiedAmt   = ".verified-amount"
)

// Card and billing section.
const (
	selCardForm       = "#ccForm"
	selCardName       = "input#ccName"
	selCardNumber     = "input#ccNumber"
	selExpiryMonth    = "select#expMonth"
	selExpiryYear     = "select#expYear"
	selCVV            = "input#cvv"
	selBillingCountry = "select#country"
	selAddress1       = "input#address1"
	selAddress2       = "input#address2"
	selCity           = "input#city"
	selState          = "select#state"
	selPostalCode     = "input#postalCode"
	selTerms          = ".fdx-c-checkbox__input"
	selSubmit         = `button[type="submit"]`
)

const (
	selMessageError   = ".fdx-c-message--error"
	selMessageSuccess = ".fdx-c-message--success"
)

// Messages already on screen when the payment is submitted carry staleAttr,
// so the outcome race only sees messages rendered after submit.
const (
	staleAttr         = "data-invoicepayer-stale"
	selOutcomeSuccess = selMessageSuccess + ":not([" + staleAttr + "])"
	selOutcomeError   = selMessageError + ":not([" + staleAttr + "])"
)
