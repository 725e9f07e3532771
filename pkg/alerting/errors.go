package alerting

import "errors"

var (
	errMissingWebhookURL  = errors.New("webhook url is required")
	errMissingRecipients  = errors.New("at least one recipient is required")
	errMissingSMTPHost    = errors.New("smtp host is required")
	errMissingCredentials = errors.New("twilio credentials are required")
	errUnexpectedStatus   = errors.New("unexpected response status")
	errUnknownChannelType = errors.New("unknown notification channel type")
	errUnknownRuleDialect = errors.New("unknown rule condition type")
	errEmptyExpression    = errors.New("empty expression")
	errUnexpectedToken    = errors.New("unexpected token")
	errUnterminatedString = errors.New("unterminated string literal")
	errTrailingInput      = errors.New("trailing input after expression")
	errExpectedComparison = errors.New("expected comparison operator")
	errUnbalancedParens   = errors.New("unbalanced parentheses")
)
